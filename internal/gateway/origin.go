package gateway

import (
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// normalizeOrigins lowercases and validates the configured origin list.
// A single "*" entry allows every origin.
func normalizeOrigins(origins []string, logger *zap.Logger) (map[string]struct{}, bool) {
	normalized := make(map[string]struct{}, len(origins))
	allowAll := false

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			allowAll = true
			continue
		}
		n, ok := normalizeOrigin(trimmed)
		if !ok {
			logger.Warn("ignoring invalid origin in configuration", zap.String("origin", origin))
			continue
		}
		normalized[n] = struct{}{}
	}
	return normalized, allowAll
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// originAllowed accepts requests without an Origin header (non-browser
// clients), configured origins, and same-host browser requests.
func (g *Gateway) originAllowed(origin, requestHost string) bool {
	if origin == "" {
		return true
	}
	if g.allowAllOrigins {
		return true
	}
	normalized, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	if _, exists := g.allowedOrigins[normalized]; exists {
		return true
	}
	parsed, err := url.Parse(normalized)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Host, requestHost) ||
		strings.EqualFold(parsed.Hostname(), requestHost)
}
