// Package registry tracks which live connections belong to which
// authenticated user. Membership is ephemeral: nothing is persisted and
// a restart clears every room.
package registry

import (
	"sync"

	"github.com/ripplechat/ripple/internal/store"
	"go.uber.org/zap"
)

// Conn is a live connection handle able to receive pushed messages.
// Push must not block: implementations queue to an outbound channel
// drained by their own writer and report an error when they cannot.
type Conn interface {
	Push(m store.Message) error
}

// Registry maps user ids to their set of active connections. Safe for
// concurrent use: register and unregister may race with a broadcast
// iterating the same user's set.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]map[Conn]struct{}
	owners map[Conn]string
	logger *zap.Logger
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		rooms:  make(map[string]map[Conn]struct{}),
		owners: make(map[Conn]string),
		logger: logger,
	}
}

// Register adds the connection to userID's room. Idempotent: registering
// the same connection twice is a no-op. The caller must have verified
// the identity already; the registry performs no authentication.
func (r *Registry) Register(userID string, c Conn) {
	if userID == "" || c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.owners[c]; ok {
		if prev == userID {
			return
		}
		// Connection re-announced under another identity: move it.
		r.removeLocked(c, prev)
	}
	room, ok := r.rooms[userID]
	if !ok {
		room = make(map[Conn]struct{})
		r.rooms[userID] = room
	}
	room[c] = struct{}{}
	r.owners[c] = userID
	r.logger.Info("connection registered",
		zap.String("user_id", userID),
		zap.Int("connections", len(room)))
}

// Unregister removes the connection from whatever room it belongs to.
// Safe to call for handles that were never registered.
func (r *Registry) Unregister(c Conn) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owners[c]
	if !ok {
		return
	}
	r.removeLocked(c, userID)
	r.logger.Info("connection unregistered",
		zap.String("user_id", userID),
		zap.Int("connections", len(r.rooms[userID])))
}

func (r *Registry) removeLocked(c Conn, userID string) {
	delete(r.owners, c)
	if room, ok := r.rooms[userID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(r.rooms, userID)
		}
	}
}

// Connections returns a snapshot of userID's active connections. The
// snapshot stays valid while register/unregister proceed concurrently.
func (r *Registry) Connections(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[userID]
	if len(room) == 0 {
		return nil
	}
	conns := make([]Conn, 0, len(room))
	for c := range room {
		conns = append(conns, c)
	}
	return conns
}

// Count returns the number of active connections for userID.
func (r *Registry) Count(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[userID])
}
