// Package unread answers the authoritative unread-count and
// conversation queries. Clients seed their cached counter from Count at
// session start and increment it on each pushed event; this package is
// the query side they reconcile against.
package unread

import (
	"context"
	"fmt"
	"time"

	"github.com/ripplechat/ripple/internal/bus"
	"github.com/ripplechat/ripple/internal/store"
	"go.uber.org/zap"
)

// Store is the subset of message-store operations the tracker consumes.
type Store interface {
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, sender, recipient string) error
	FindBetween(ctx context.Context, userA, userB string) ([]store.Message, error)
	AggregateConversations(ctx context.Context, userID string) ([]store.Conversation, error)
}

// Tracker exposes unread counts and conversation views.
type Tracker struct {
	store  Store
	bus    *bus.Bus
	logger *zap.Logger
}

// New creates a tracker backed by the given store.
func New(s Store, b *bus.Bus, logger *zap.Logger) *Tracker {
	return &Tracker{store: s, bus: b, logger: logger}
}

// Count returns the number of unread messages addressed to userID.
// Pure read, no side effects.
func (t *Tracker) Count(ctx context.Context, userID string) (int, error) {
	n, err := t.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkConversationRead bulk-transitions all unread messages from
// counterpart to userID to read. Idempotent.
func (t *Tracker) MarkConversationRead(ctx context.Context, userID, counterpart string) error {
	if err := t.store.MarkRead(ctx, counterpart, userID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	t.bus.Publish(bus.Event{
		Kind:      bus.KindConversationRead,
		Timestamp: time.Now(),
		Payload:   ReadReceipt{UserID: userID, Counterpart: counterpart},
	})
	return nil
}

// OpenConversation returns the full message history with counterpart in
// persistence order, and marks the counterpart's messages read as a
// side effect of viewing them.
func (t *Tracker) OpenConversation(ctx context.Context, userID, counterpart string) ([]store.Message, error) {
	msgs, err := t.store.FindBetween(ctx, userID, counterpart)
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	if err := t.MarkConversationRead(ctx, userID, counterpart); err != nil {
		// The history was already fetched; losing the read transition
		// leaves counts stale until the next open, not wrong.
		t.logger.Warn("mark conversation read failed",
			zap.String("user_id", userID),
			zap.String("counterpart", counterpart),
			zap.Error(err))
	}
	return msgs, nil
}

// Conversations returns per-counterpart summaries for userID, most
// recent first.
func (t *Tracker) Conversations(ctx context.Context, userID string) ([]store.Conversation, error) {
	convs, err := t.store.AggregateConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregate conversations: %w", err)
	}
	return convs, nil
}

// ReadReceipt is the payload for conversation.read events.
type ReadReceipt struct {
	UserID      string
	Counterpart string
}
