package server

import (
	"strings"

	"bookdot/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GetMessages handles GET /api/conversations/:id/messages
func (s *Server) GetMessages(c *fiber.Ctx) error {
	messages, err := s.daos.Messages.ByConversation(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	return c.JSON(messages)
}

// SendMessage handles POST /api/conversations/:id/messages
func (s *Server) SendMessage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	conversationID := strings.TrimSpace(c.Params("id"))
	if conversationID == "" {
		return respondError(c, models.NewValidationError("conversation id is required"))
	}

	var in models.SendMessageInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       currentUserID(c),
		Content:        in.Content,
		IsEncrypted:    in.IsEncrypted,
		CreatedAt:      s.now(),
	}
	if err := s.daos.Messages.Upsert(ctx, msg); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// MarkMessageRead handles PUT /api/messages/:id/read
func (s *Server) MarkMessageRead(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := c.Params("id")
	msg, err := s.daos.Messages.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if msg == nil {
		return respondError(c, models.NewNotFoundError("message", id))
	}
	if _, err := s.daos.Messages.MarkAsRead(ctx, id, s.now()); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkConversationRead handles PUT /api/conversations/:id/read
func (s *Server) MarkConversationRead(c *fiber.Ctx) error {
	if _, err := s.daos.Messages.MarkConversationAsRead(c.UserContext(), c.Params("id"), currentUserID(c), s.now()); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteMessage handles DELETE /api/messages/:id. Only the sender may delete.
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := c.Params("id")
	msg, err := s.daos.Messages.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if msg == nil {
		return respondError(c, models.NewNotFoundError("message", id))
	}
	if msg.SenderID != currentUserID(c) {
		return respondError(c, models.NewNotOwnerError("message"))
	}
	if _, err := s.daos.Messages.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
