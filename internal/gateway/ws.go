package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/ripplechat/ripple/internal/status"
	"go.uber.org/zap"
)

// upgradeMiddleware gates the WebSocket endpoint: upgrade requests only,
// from allowed origins.
func (g *Gateway) upgradeMiddleware(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if !g.originAllowed(c.Get(fiber.HeaderOrigin), c.Hostname()) {
		g.logger.Warn("blocked upgrade from disallowed origin",
			zap.String("origin", c.Get(fiber.HeaderOrigin)))
		return fiber.ErrForbidden
	}
	return c.Next()
}

// handleWS runs one connection's lifecycle: handshake done, await the
// join-room announcement, register, then pump until the transport
// closes. The deferred unregister fires on every exit path, including
// connections that never registered.
func (g *Gateway) handleWS(conn *websocket.Conn) {
	c := newClient(conn, g.bus, g.logger)
	_ = c.machine.Transition(status.Connected)

	defer func() {
		g.registry.Unregister(c)
		c.close()
		_ = conn.Close()
		_ = c.machine.Transition(status.Disconnected)
	}()

	userID, err := g.awaitJoin(conn)
	if err != nil {
		// Unauthenticated connections join no room and receive nothing.
		g.logger.Info("connection closed before registration",
			zap.String("conn_id", c.id), zap.Error(err))
		return
	}

	g.registry.Register(userID, c)
	_ = c.machine.Transition(status.Registered)

	go c.writePump()
	g.readLoop(c)
}

// awaitJoin reads the first frame, which must be a join-room
// announcement carrying an identity token, and returns the verified
// user id.
func (g *Gateway) awaitJoin(conn *websocket.Conn) (string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(joinWait))

	_, data, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("read join frame: %w", err)
	}

	var frame clientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return "", fmt.Errorf("parse join frame: %w", err)
	}
	if frame.Event != eventJoinRoom {
		return "", fmt.Errorf("expected %s, got %q", eventJoinRoom, frame.Event)
	}

	userID, err := g.verifier.Verify(frame.Token)
	if err != nil {
		return "", err
	}
	return userID, nil
}

// readLoop keeps the connection's read side alive for pong handling.
// Messages are sent over the HTTP call, not the socket. The one inbound
// frame honored after join is another join-room announcement: a client
// refreshing its token or switching identity re-announces, and the last
// verified announcement wins. Anything else is ignored.
func (g *Gateway) readLoop(c *client) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Event != eventJoinRoom {
			continue
		}
		userID, err := g.verifier.Verify(frame.Token)
		if err != nil {
			// The connection keeps its current room.
			g.logger.Warn("re-announcement with invalid token",
				zap.String("conn_id", c.id), zap.Error(err))
			continue
		}
		g.registry.Register(userID, c)
		g.logger.Info("connection re-announced",
			zap.String("conn_id", c.id), zap.String("user", userID))
	}
}
