package api

import (
	"context"

	"bookdot/internal/models"

	"github.com/gofiber/fiber/v2"
)

// MessageAPI is the direct-message surface of the backend.
type MessageAPI interface {
	Conversation(ctx context.Context, conversationID string) ([]*models.Message, error)
	Send(ctx context.Context, conversationID string, in models.SendMessageInput) (*models.Message, error)
	MarkAsRead(ctx context.Context, messageID string) error
	MarkConversationAsRead(ctx context.Context, conversationID string) error
	DeleteMessage(ctx context.Context, messageID string) error
}

var _ MessageAPI = (*Client)(nil)

func (c *Client) Conversation(ctx context.Context, conversationID string) ([]*models.Message, error) {
	var messages []*models.Message
	err := c.do(ctx, fiber.MethodGet, "/conversations/"+escape(conversationID)+"/messages", nil, nil, &messages)
	return messages, err
}

func (c *Client) Send(ctx context.Context, conversationID string, in models.SendMessageInput) (*models.Message, error) {
	var msg models.Message
	if err := c.do(ctx, fiber.MethodPost, "/conversations/"+escape(conversationID)+"/messages", nil, in, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) MarkAsRead(ctx context.Context, messageID string) error {
	return c.do(ctx, fiber.MethodPut, "/messages/"+escape(messageID)+"/read", nil, nil, nil)
}

func (c *Client) MarkConversationAsRead(ctx context.Context, conversationID string) error {
	return c.do(ctx, fiber.MethodPut, "/conversations/"+escape(conversationID)+"/read", nil, nil, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, fiber.MethodDelete, "/messages/"+escape(messageID), nil, nil, nil)
}
