package gateway

import "github.com/ripplechat/ripple/internal/store"

// Wire event names.
const (
	eventJoinRoom   = "join-room"
	eventNewMessage = "new-message"
)

// clientFrame is a frame received from a connected client.
type clientFrame struct {
	Event string `json:"event"`
	Token string `json:"token,omitempty"`
}

// pushFrame is a server-initiated event written to a client connection.
type pushFrame struct {
	Event string        `json:"event"`
	ID    string        `json:"id"`
	Data  store.Message `json:"data"`
}

type sendMessageRequest struct {
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
}

type errorResponse struct {
	Error string `json:"error"`
}
