package api

import (
	"context"
	"net/url"

	"bookdot/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UserAPI is the users surface of the backend.
type UserAPI interface {
	Me(ctx context.Context) (*models.User, error)
	UpdateMe(ctx context.Context, in models.UpdateProfileInput) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	SearchUsers(ctx context.Context, query string) ([]*models.User, error)
	Follow(ctx context.Context, id string) error
	Unfollow(ctx context.Context, id string) error
}

var _ UserAPI = (*Client)(nil)

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	return c.user(ctx, "/users/me")
}

func (c *Client) UpdateMe(ctx context.Context, in models.UpdateProfileInput) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, fiber.MethodPut, "/users/me", nil, in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	return c.user(ctx, "/users/"+escape(id))
}

func (c *Client) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return c.user(ctx, "/users/username/"+escape(username))
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]*models.User, error) {
	var users []*models.User
	err := c.do(ctx, fiber.MethodGet, "/users/search", url.Values{"q": {query}}, nil, &users)
	return users, err
}

func (c *Client) Follow(ctx context.Context, id string) error {
	return c.do(ctx, fiber.MethodPost, "/users/"+escape(id)+"/follow", nil, nil, nil)
}

func (c *Client) Unfollow(ctx context.Context, id string) error {
	return c.do(ctx, fiber.MethodDelete, "/users/"+escape(id)+"/follow", nil, nil, nil)
}

func (c *Client) user(ctx context.Context, path string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, fiber.MethodGet, path, nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
