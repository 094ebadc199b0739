package store

// Message is a persisted direct message. Immutable once written except
// for Read, which transitions false to true at most once.
type Message struct {
	ID          int64  `json:"id"`
	SenderID    string `json:"senderId"`
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
	CreatedAt   int64  `json:"createdAt"` // unix millis
	Read        bool   `json:"read"`
}

// Conversation is a derived per-counterpart summary: the most recent
// message exchanged with that counterpart, and whether it is still
// unread from the viewer's perspective.
type Conversation struct {
	Counterpart string  `json:"counterpart"`
	LastMessage Message `json:"lastMessage"`
	Unread      bool    `json:"unread"`
}
