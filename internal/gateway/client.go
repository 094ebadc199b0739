package gateway

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/ripplechat/ripple/internal/bus"
	"github.com/ripplechat/ripple/internal/status"
	"github.com/ripplechat/ripple/internal/store"
	"go.uber.org/zap"
)

const (
	// sendBuffer bounds the per-connection outbound queue. A consumer
	// that falls further behind starts missing pushes; the store query
	// catches it back up.
	sendBuffer = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// joinWait is how long an upgraded connection may stay
	// unauthenticated before it is dropped.
	joinWait = 10 * time.Second
)

var (
	errConnClosed     = errors.New("connection closed")
	errSendBufferFull = errors.New("send buffer full")
)

// client is one WebSocket connection. It owns the outbound channel the
// broker pushes into; writePump is the only goroutine writing to the
// wire.
type client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	machine *status.Machine
	logger  *zap.Logger
}

func newClient(conn *websocket.Conn, b *bus.Bus, logger *zap.Logger) *client {
	id := uuid.NewString()
	return &client{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		machine: status.NewMachine(id, b),
		logger:  logger,
	}
}

// Push queues a new-message event for delivery. Never blocks: a closed
// connection or a full buffer reports an error the broker logs and
// moves past.
func (c *client) Push(m store.Message) error {
	data, err := json.Marshal(pushFrame{
		Event: eventNewMessage,
		ID:    uuid.NewString(),
		Data:  m,
	})
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errSendBufferFull
	}
}

// writePump drains the outbound channel to the wire and keeps the
// connection alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("write failed", zap.String("conn_id", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		}
	}
}

// close marks the connection finished. Idempotent.
func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}
