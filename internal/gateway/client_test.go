package gateway

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ripplechat/ripple/internal/store"
	"go.uber.org/zap"
)

// Push only touches the outbound queue, so these tests run without a
// live socket.

func TestPushQueuesFrame(t *testing.T) {
	c := newClient(nil, nil, zap.NewNop())

	m := store.Message{ID: 7, SenderID: "u1", RecipientID: "u2", Content: "hi"}
	if err := c.Push(m); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	data := <-c.send
	var frame pushFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatal(err)
	}
	if frame.Event != eventNewMessage {
		t.Errorf("event = %q, want %q", frame.Event, eventNewMessage)
	}
	if frame.ID == "" {
		t.Error("push frame should carry an event id")
	}
	if frame.Data.ID != 7 || frame.Data.Content != "hi" {
		t.Errorf("data = %+v", frame.Data)
	}
}

func TestPushAfterCloseFails(t *testing.T) {
	c := newClient(nil, nil, zap.NewNop())
	c.close()

	err := c.Push(store.Message{ID: 1})
	if !errors.Is(err, errConnClosed) {
		t.Errorf("error = %v, want errConnClosed", err)
	}
}

func TestPushDropsWhenBufferFull(t *testing.T) {
	c := newClient(nil, nil, zap.NewNop())

	for i := 0; i < sendBuffer; i++ {
		if err := c.Push(store.Message{ID: int64(i)}); err != nil {
			t.Fatalf("Push(%d) error = %v", i, err)
		}
	}

	err := c.Push(store.Message{ID: 999})
	if !errors.Is(err, errSendBufferFull) {
		t.Errorf("error = %v, want errSendBufferFull", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	c := newClient(nil, nil, zap.NewNop())
	c.close()
	c.close() // must not panic
}
