package store

import (
	"context"
	"fmt"
	"time"
)

// Create persists a new message with read=false and returns the stored row.
func (db *DB) Create(ctx context.Context, sender, recipient, content string) (Message, error) {
	now := time.Now().UnixMilli()
	res, err := db.ExecContext(ctx, `
		INSERT INTO messages (sender_id, recipient_id, content, created_at, read)
		VALUES (?, ?, ?, ?, 0)`,
		sender, recipient, content, now)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Message{}, fmt.Errorf("message id: %w", err)
	}
	return Message{
		ID:          id,
		SenderID:    sender,
		RecipientID: recipient,
		Content:     content,
		CreatedAt:   now,
		Read:        false,
	}, nil
}

// FindBetween returns all messages exchanged between two users in
// persistence order: created_at ascending, id as the tie-break
// (millisecond timestamps can collide under load).
func (db *DB) FindBetween(ctx context.Context, userA, userB string) ([]Message, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, sender_id, recipient_id, content, created_at, read
		FROM messages
		WHERE (sender_id = ?1 AND recipient_id = ?2)
		   OR (sender_id = ?2 AND recipient_id = ?1)
		ORDER BY created_at ASC, id ASC`,
		userA, userB)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Content, &m.CreatedAt, &m.Read); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CountUnread returns the number of unread messages addressed to userID.
func (db *DB) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE recipient_id = ? AND read = 0`, userID).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// MarkRead transitions every unread message from sender to recipient to
// read=true. Idempotent: repeat calls match zero rows. The read flag
// never reverts.
func (db *DB) MarkRead(ctx context.Context, sender, recipient string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE messages SET read = 1
		WHERE sender_id = ? AND recipient_id = ? AND read = 0`,
		sender, recipient)
	return err
}

// AggregateConversations returns, for each distinct counterpart of
// userID, the most recent message exchanged with them, newest
// conversation first. Recency ties break on id, which preserves
// insertion order.
func (db *DB) AggregateConversations(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT counterpart, id, sender_id, recipient_id, content, created_at, read
		FROM (
			SELECT
				CASE WHEN sender_id = ?1 THEN recipient_id ELSE sender_id END AS counterpart,
				id, sender_id, recipient_id, content, created_at, read,
				ROW_NUMBER() OVER (
					PARTITION BY CASE WHEN sender_id = ?1 THEN recipient_id ELSE sender_id END
					ORDER BY created_at DESC, id DESC
				) AS rn
			FROM messages
			WHERE sender_id = ?1 OR recipient_id = ?1
		)
		WHERE rn = 1
		ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		var m Message
		if err := rows.Scan(&c.Counterpart, &m.ID, &m.SenderID, &m.RecipientID, &m.Content, &m.CreatedAt, &m.Read); err != nil {
			return nil, err
		}
		c.LastMessage = m
		c.Unread = !m.Read && m.RecipientID == userID
		convs = append(convs, c)
	}
	return convs, rows.Err()
}
