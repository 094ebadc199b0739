package activity

import (
	"context"
	"testing"
	"time"

	"github.com/ripplechat/ripple/internal/bus"
	"github.com/ripplechat/ripple/internal/status"
	"github.com/ripplechat/ripple/internal/store"
	"github.com/ripplechat/ripple/internal/unread"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testMonitor(t *testing.T) (*bus.Bus, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	b := bus.New()
	m := NewMonitor(b, zap.New(core))
	m.Start(context.Background())
	t.Cleanup(m.Stop)
	return b, logs
}

func waitForLog(t *testing.T, logs *observer.ObservedLogs, msg string) observer.LoggedEntry {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if entries := logs.FilterMessage(msg).All(); len(entries) > 0 {
			return entries[0]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %q log entry recorded", msg)
	return observer.LoggedEntry{}
}

func TestMonitorLogsMessageCreated(t *testing.T) {
	b, logs := testMonitor(t)

	b.Publish(bus.Event{
		Kind:      bus.KindMessageCreated,
		Timestamp: time.Now(),
		Payload:   store.Message{ID: 7, SenderID: "u1", RecipientID: "u2"},
	})

	entry := waitForLog(t, logs, "message created")
	fields := entry.ContextMap()
	if fields["sender"] != "u1" || fields["recipient"] != "u2" {
		t.Errorf("fields = %v, want sender=u1 recipient=u2", fields)
	}
}

func TestMonitorLogsConnStateChange(t *testing.T) {
	b, logs := testMonitor(t)

	b.Publish(bus.Event{
		Kind:      bus.KindConnStateChanged,
		Timestamp: time.Now(),
		Payload:   status.Change{ConnID: "c1", From: status.Connected, To: status.Registered},
	})

	entry := waitForLog(t, logs, "connection state changed")
	fields := entry.ContextMap()
	if fields["conn_id"] != "c1" || fields["to"] != string(status.Registered) {
		t.Errorf("fields = %v, want conn_id=c1 to=%s", fields, status.Registered)
	}
}

func TestMonitorLogsReadReceipt(t *testing.T) {
	b, logs := testMonitor(t)

	b.Publish(bus.Event{
		Kind:      bus.KindConversationRead,
		Timestamp: time.Now(),
		Payload:   unread.ReadReceipt{UserID: "u2", Counterpart: "u1"},
	})

	entry := waitForLog(t, logs, "conversation read")
	fields := entry.ContextMap()
	if fields["user"] != "u2" || fields["counterpart"] != "u1" {
		t.Errorf("fields = %v, want user=u2 counterpart=u1", fields)
	}
}

// A malformed payload is skipped without panicking or logging; later
// events on the same subscription still get through.
func TestMonitorIgnoresUnknownPayload(t *testing.T) {
	b, logs := testMonitor(t)

	b.Publish(bus.Event{Kind: bus.KindMessageCreated, Payload: "not a message"})
	b.Publish(bus.Event{
		Kind:    bus.KindConnStateChanged,
		Payload: status.Change{ConnID: "c9", From: status.Connecting, To: status.Connected},
	})

	waitForLog(t, logs, "connection state changed")
	if n := logs.FilterMessage("message created").Len(); n != 0 {
		t.Errorf("malformed payload produced %d log entries, want 0", n)
	}
}
