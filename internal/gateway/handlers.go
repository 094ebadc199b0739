package gateway

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/ripplechat/ripple/internal/broker"
	"github.com/ripplechat/ripple/internal/store"
	"go.uber.org/zap"
)

const identityKey = "userID"

// requireIdentity verifies the bearer token on every API call and
// stashes the authenticated user id in the request context.
func (g *Gateway) requireIdentity(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Error: "missing bearer token"})
	}

	userID, err := g.verifier.Verify(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Error: "invalid identity token"})
	}

	c.Locals(identityKey, userID)
	return c.Next()
}

func identity(c *fiber.Ctx) string {
	id, _ := c.Locals(identityKey).(string)
	return id
}

func (g *Gateway) handleHealth(c *fiber.Ctx) error {
	return c.SendString("ok")
}

// handleSendMessage persists and delivers a message. The sender is the
// authenticated identity; it cannot be spoofed from the body.
func (g *Gateway) handleSendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "malformed request body"})
	}

	m, err := g.broker.SendMessage(c.UserContext(), identity(c), req.Recipient, req.Content)
	if err != nil {
		if errors.Is(err, broker.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
		}
		g.logger.Error("send message failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "message could not be saved"})
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

func (g *Gateway) handleUnreadCount(c *fiber.Ctx) error {
	n, err := g.unread.Count(c.UserContext(), identity(c))
	if err != nil {
		g.logger.Error("unread count failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "count unavailable"})
	}
	return c.JSON(fiber.Map{"unreadCount": n})
}

func (g *Gateway) handleConversations(c *fiber.Ctx) error {
	convs, err := g.unread.Conversations(c.UserContext(), identity(c))
	if err != nil {
		g.logger.Error("conversation aggregation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "conversations unavailable"})
	}
	if convs == nil {
		convs = []store.Conversation{}
	}
	return c.JSON(convs)
}

// handleConversationWith returns the ordered history with one
// counterpart and marks their messages read as a side effect of viewing.
func (g *Gateway) handleConversationWith(c *fiber.Ctx) error {
	counterpart := c.Params("counterpart")
	msgs, err := g.unread.OpenConversation(c.UserContext(), identity(c), counterpart)
	if err != nil {
		g.logger.Error("open conversation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "conversation unavailable"})
	}
	if msgs == nil {
		msgs = []store.Message{}
	}
	return c.JSON(msgs)
}
