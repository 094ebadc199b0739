package store

import (
	"context"
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate; a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestCreateReturnsPersistedMessage(t *testing.T) {
	db := testDB(t)

	m, err := db.Create(context.Background(), "u1", "u2", "hi")
	if err != nil {
		t.Fatal(err)
	}
	if m.ID == 0 {
		t.Error("ID should be assigned")
	}
	if m.Read {
		t.Error("new message should be unread")
	}
	if m.SenderID != "u1" || m.RecipientID != "u2" || m.Content != "hi" {
		t.Errorf("message = %+v", m)
	}
}

func TestFindBetweenOrdering(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	m1, err := db.Create(ctx, "u1", "u2", "first")
	if err != nil {
		t.Fatal(err)
	}
	m2, err := db.Create(ctx, "u2", "u1", "second")
	if err != nil {
		t.Fatal(err)
	}
	// Unrelated pair must not leak in.
	if _, err := db.Create(ctx, "u3", "u4", "noise"); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.FindBetween(ctx, "u1", "u2")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].ID != m1.ID || msgs[1].ID != m2.ID {
		t.Errorf("order = [%d %d], want [%d %d]", msgs[0].ID, msgs[1].ID, m1.ID, m2.ID)
	}

	// Symmetric: argument order must not matter.
	rev, err := db.FindBetween(ctx, "u2", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rev) != 2 || rev[0].ID != m1.ID {
		t.Errorf("FindBetween(u2,u1) = %v", rev)
	}
}

// Messages created in the same millisecond must still come back in
// insertion order via the id tie-break.
func TestFindBetweenTimestampCollision(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	// Force identical timestamps by inserting directly.
	for _, content := range []string{"a", "b", "c"} {
		if _, err := db.Exec(`
			INSERT INTO messages (sender_id, recipient_id, content, created_at, read)
			VALUES ('u1', 'u2', ?, 1000, 0)`, content); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := db.FindBetween(ctx, "u1", "u2")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i, want := range []string{"a", "b", "c"} {
		if msgs[i].Content != want {
			t.Errorf("msgs[%d].Content = %q, want %q", i, msgs[i].Content, want)
		}
	}
}

func TestCountUnreadAndMarkRead(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := db.Create(ctx, "u1", "u2", "hi"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := db.Create(ctx, "u3", "u2", "yo"); err != nil {
		t.Fatal(err)
	}

	n, err := db.CountUnread(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("CountUnread = %d, want 4", n)
	}

	// Mark u1's messages read; u3's stay unread.
	if err := db.MarkRead(ctx, "u1", "u2"); err != nil {
		t.Fatal(err)
	}
	n, err = db.CountUnread(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("CountUnread after MarkRead = %d, want 1", n)
	}

	// Idempotent: repeating must not change the count.
	if err := db.MarkRead(ctx, "u1", "u2"); err != nil {
		t.Fatal(err)
	}
	again, err := db.CountUnread(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if again != n {
		t.Errorf("CountUnread after repeat MarkRead = %d, want %d", again, n)
	}
}

// The read flag is monotonic: marking one direction read must never
// flip other rows back to unread.
func TestMarkReadDoesNotRevert(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := db.Create(ctx, "u1", "u2", "hi"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkRead(ctx, "u1", "u2"); err != nil {
		t.Fatal(err)
	}

	// A later mark for an unrelated sender touches nothing.
	if err := db.MarkRead(ctx, "u9", "u2"); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.FindBetween(ctx, "u1", "u2")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || !msgs[0].Read {
		t.Errorf("message read flag reverted: %+v", msgs)
	}
}

func TestAggregateConversations(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	// u1 and u3 both message u2; u2 replies to u1.
	if _, err := db.Create(ctx, "u1", "u2", "from u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Create(ctx, "u3", "u2", "from u3"); err != nil {
		t.Fatal(err)
	}
	last, err := db.Create(ctx, "u2", "u1", "reply to u1")
	if err != nil {
		t.Fatal(err)
	}

	convs, err := db.AggregateConversations(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 2 {
		t.Fatalf("got %d conversations, want 2", len(convs))
	}

	byCounterpart := map[string]Conversation{}
	for _, c := range convs {
		byCounterpart[c.Counterpart] = c
	}

	u1 := byCounterpart["u1"]
	if u1.LastMessage.ID != last.ID {
		t.Errorf("u1 lastMessage.ID = %d, want %d", u1.LastMessage.ID, last.ID)
	}
	// u2 sent the last message in the u1 thread, so nothing unread there.
	if u1.Unread {
		t.Error("u1 conversation should not be unread (last message is outgoing)")
	}

	u3 := byCounterpart["u3"]
	if u3.LastMessage.Content != "from u3" {
		t.Errorf("u3 lastMessage = %q", u3.LastMessage.Content)
	}
	if !u3.Unread {
		t.Error("u3 conversation should be unread")
	}
}

// With equal timestamps the most recent message per counterpart is the
// one with the larger id.
func TestAggregateConversationsTieBreak(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, content := range []string{"older", "newer"} {
		if _, err := db.Exec(`
			INSERT INTO messages (sender_id, recipient_id, content, created_at, read)
			VALUES ('u1', 'u2', ?, 5000, 0)`, content); err != nil {
			t.Fatal(err)
		}
	}

	convs, err := db.AggregateConversations(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 {
		t.Fatalf("got %d conversations, want 1", len(convs))
	}
	if convs[0].LastMessage.Content != "newer" {
		t.Errorf("lastMessage = %q, want newer", convs[0].LastMessage.Content)
	}
}
