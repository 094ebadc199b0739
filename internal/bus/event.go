package bus

import "time"

// Event kinds published by the messaging core. Subscribers filter by
// namespace prefix, e.g. "message." receives every message event.
const (
	KindMessageCreated   = "message.created"
	KindConversationRead = "conversation.read"
	KindConnStateChanged = "conn.state_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
