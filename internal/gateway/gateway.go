// Package gateway exposes the daemon's wire surface: the WebSocket push
// endpoint and the HTTP message/query API.
package gateway

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/ripplechat/ripple/internal/broker"
	"github.com/ripplechat/ripple/internal/bus"
	"github.com/ripplechat/ripple/internal/config"
	"github.com/ripplechat/ripple/internal/registry"
	"github.com/ripplechat/ripple/internal/session"
	"github.com/ripplechat/ripple/internal/unread"
	"go.uber.org/zap"
)

// Gateway wires the fiber app to the messaging core.
type Gateway struct {
	app      *fiber.App
	registry *registry.Registry
	broker   *broker.Broker
	unread   *unread.Tracker
	verifier *session.Verifier
	bus      *bus.Bus
	logger   *zap.Logger

	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
}

// New creates a gateway with all routes registered.
func New(
	cfg *config.Config,
	reg *registry.Registry,
	brk *broker.Broker,
	tracker *unread.Tracker,
	verifier *session.Verifier,
	b *bus.Bus,
	logger *zap.Logger,
) *Gateway {
	allowed, allowAll := normalizeOrigins(cfg.AllowedOrigins, logger)

	g := &Gateway{
		app: fiber.New(fiber.Config{
			AppName:               "rippled",
			DisableStartupMessage: true,
		}),
		registry:        reg,
		broker:          brk,
		unread:          tracker,
		verifier:        verifier,
		bus:             b,
		logger:          logger,
		allowedOrigins:  allowed,
		allowAllOrigins: allowAll,
	}
	g.routes()
	return g
}

func (g *Gateway) routes() {
	g.app.Get("/healthz", g.handleHealth)
	g.app.Get("/ws", g.upgradeMiddleware, websocket.New(g.handleWS))

	api := g.app.Group("/api", g.requireIdentity)
	api.Post("/messages", g.handleSendMessage)
	// Registered before :counterpart so "unread" is not taken for a user id.
	api.Get("/messages/unread", g.handleUnreadCount)
	api.Get("/messages/:counterpart", g.handleConversationWith)
	api.Get("/conversations", g.handleConversations)
}

// Listen serves the gateway on addr. Blocks until shutdown.
func (g *Gateway) Listen(addr string) error {
	return g.app.Listen(addr)
}

// Shutdown gracefully shuts the HTTP server down. Live WebSocket
// connections observe the close and unregister themselves.
func (g *Gateway) Shutdown() error {
	return g.app.Shutdown()
}
