// Package broker fans newly persisted messages out to the recipient's
// live connections. The store is the system of record; push is a
// latency optimization and is never attempted before persistence
// succeeds.
package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ripplechat/ripple/internal/bus"
	"github.com/ripplechat/ripple/internal/registry"
	"github.com/ripplechat/ripple/internal/store"
	"go.uber.org/zap"
)

// ErrInvalidInput is returned when sender, recipient, or content is empty.
var ErrInvalidInput = errors.New("sender, recipient and content are required")

// MessageStore persists outgoing messages.
type MessageStore interface {
	Create(ctx context.Context, sender, recipient, content string) (store.Message, error)
}

// Broker delivers persisted messages to the recipient's room.
type Broker struct {
	store    MessageStore
	registry *registry.Registry
	bus      *bus.Bus
	logger   *zap.Logger
}

// New creates a broker.
func New(s MessageStore, r *registry.Registry, b *bus.Bus, logger *zap.Logger) *Broker {
	return &Broker{
		store:    s,
		registry: r,
		bus:      b,
		logger:   logger,
	}
}

// SendMessage validates, persists, and then pushes a message to every
// connection currently registered for the recipient. The persisted
// message is returned to the sender. A persistence failure aborts the
// whole call and no push happens. Push failures are best-effort: a dead
// connection is logged and skipped so the recipient's other connections
// still receive the event.
func (b *Broker) SendMessage(ctx context.Context, sender, recipient, content string) (store.Message, error) {
	if strings.TrimSpace(sender) == "" ||
		strings.TrimSpace(recipient) == "" ||
		strings.TrimSpace(content) == "" {
		return store.Message{}, ErrInvalidInput
	}

	m, err := b.store.Create(ctx, sender, recipient, content)
	if err != nil {
		return store.Message{}, fmt.Errorf("persist message: %w", err)
	}

	b.bus.Publish(bus.Event{
		Kind:      bus.KindMessageCreated,
		Timestamp: time.Now(),
		Payload:   m,
	})

	conns := b.registry.Connections(recipient)
	for _, c := range conns {
		if err := c.Push(m); err != nil {
			b.logger.Debug("push skipped",
				zap.Int64("message_id", m.ID),
				zap.String("recipient", recipient),
				zap.Error(err))
		}
	}
	if len(conns) == 0 {
		b.logger.Debug("recipient offline, no push",
			zap.Int64("message_id", m.ID),
			zap.String("recipient", recipient))
	}

	return m, nil
}
