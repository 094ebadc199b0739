// Package activity consumes domain events from the bus and records
// them in the process log, so connection churn, message traffic, and
// read receipts show up as one stream an operator can follow.
package activity

import (
	"context"

	"github.com/ripplechat/ripple/internal/bus"
	"github.com/ripplechat/ripple/internal/status"
	"github.com/ripplechat/ripple/internal/store"
	"github.com/ripplechat/ripple/internal/unread"
	"go.uber.org/zap"
)

// Monitor subscribes to every core event namespace and logs each event.
type Monitor struct {
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewMonitor creates a new activity monitor.
func NewMonitor(b *bus.Bus, logger *zap.Logger) *Monitor {
	return &Monitor{
		bus:    b,
		logger: logger,
	}
}

// Start subscribes to all core events on the bus.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	ch, unsub := m.bus.Subscribe("", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				m.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the monitor.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Monitor) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindMessageCreated:
		msg, ok := evt.Payload.(store.Message)
		if !ok {
			return
		}
		m.logger.Info("message created",
			zap.Int64("message_id", msg.ID),
			zap.String("sender", msg.SenderID),
			zap.String("recipient", msg.RecipientID))
	case bus.KindConversationRead:
		r, ok := evt.Payload.(unread.ReadReceipt)
		if !ok {
			return
		}
		m.logger.Info("conversation read",
			zap.String("user", r.UserID),
			zap.String("counterpart", r.Counterpart))
	case bus.KindConnStateChanged:
		c, ok := evt.Payload.(status.Change)
		if !ok {
			return
		}
		m.logger.Info("connection state changed",
			zap.String("conn_id", c.ConnID),
			zap.String("from", string(c.From)),
			zap.String("to", string(c.To)))
	}
}
