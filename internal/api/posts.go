package api

import (
	"context"
	"net/url"
	"strconv"

	"bookdot/internal/models"

	"github.com/gofiber/fiber/v2"
)

// PostAPI is the posts surface of the backend.
type PostAPI interface {
	Feed(ctx context.Context, limit, offset int) ([]*models.Post, error)
	ByUser(ctx context.Context, userID string) ([]*models.Post, error)
	Get(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, in models.CreatePostInput) (*models.Post, error)
	Like(ctx context.Context, id string) (models.LikeResult, error)
	Unlike(ctx context.Context, id string) (models.LikeResult, error)
	Delete(ctx context.Context, id string) error
}

var _ PostAPI = (*Client)(nil)

func (c *Client) Feed(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	var posts []*models.Post
	err := c.do(ctx, fiber.MethodGet, "/posts/feed", q, nil, &posts)
	return posts, err
}

func (c *Client) ByUser(ctx context.Context, userID string) ([]*models.Post, error) {
	var posts []*models.Post
	err := c.do(ctx, fiber.MethodGet, "/posts/user/"+escape(userID), nil, nil, &posts)
	return posts, err
}

func (c *Client) Get(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, fiber.MethodGet, "/posts/"+escape(id), nil, nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) Create(ctx context.Context, in models.CreatePostInput) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, fiber.MethodPost, "/posts", nil, in, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) Like(ctx context.Context, id string) (models.LikeResult, error) {
	var res models.LikeResult
	err := c.do(ctx, fiber.MethodPost, "/posts/"+escape(id)+"/like", nil, nil, &res)
	return res, err
}

func (c *Client) Unlike(ctx context.Context, id string) (models.LikeResult, error) {
	var res models.LikeResult
	err := c.do(ctx, fiber.MethodDelete, "/posts/"+escape(id)+"/like", nil, nil, &res)
	return res, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, fiber.MethodDelete, "/posts/"+escape(id), nil, nil, nil)
}
