package server

import (
	"context"

	"bookdot/internal/cache"
	"bookdot/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// hydratePosts attaches authors and the caller's like state.
func (s *Server) hydratePosts(ctx context.Context, viewer string, posts []*models.Post) ([]*models.Post, error) {
	authorIDs := make([]string, 0, len(posts))
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		authorIDs = append(authorIDs, p.UserID)
		ids = append(ids, p.ID)
	}
	authors, err := s.daos.Users.GetMany(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	liked, err := s.daos.PostLikes.LikedBy(ctx, viewer, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		p.User = authors[p.UserID]
		p.IsLiked = liked[p.ID]
		if p.ImageURLs == nil {
			p.ImageURLs = []string{}
		}
	}
	return posts, nil
}

// GetFeed handles GET /api/posts/feed
func (s *Server) GetFeed(c *fiber.Ctx) error {
	ctx := c.UserContext()
	page := parsePagination(c)
	posts, err := s.daos.Posts.Feed(ctx, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	posts, err = s.hydratePosts(ctx, currentUserID(c), posts)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetUserPosts handles GET /api/posts/user/:userId
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	posts, err := s.daos.Posts.ByUser(ctx, c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	posts, err = s.hydratePosts(ctx, currentUserID(c), posts)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := c.Params("id")
	post, err := s.daos.Posts.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if post == nil {
		return respondError(c, models.NewNotFoundError("post", id))
	}
	posts, err := s.hydratePosts(ctx, currentUserID(c), []*models.Post{post})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts[0])
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	uid := currentUserID(c)

	var in models.CreatePostInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	author, err := s.ensureUser(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}

	imageURLs := in.ImageURLs
	if imageURLs == nil {
		imageURLs = []string{}
	}
	post := &models.Post{
		ID:        uuid.NewString(),
		UserID:    uid,
		Content:   in.Content,
		ImageURLs: imageURLs,
		VideoURL:  in.VideoURL,
		CreatedAt: s.now(),
	}
	if err := s.daos.Posts.Create(ctx, post); err != nil {
		return respondError(c, err)
	}
	s.invalidateUser(ctx, author)

	post.User = author
	return c.Status(fiber.StatusCreated).JSON(post)
}

// LikePost handles POST /api/posts/:id/like. Liking twice keeps one like.
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.changeLike(c, true)
}

// UnlikePost handles DELETE /api/posts/:id/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	return s.changeLike(c, false)
}

func (s *Server) changeLike(c *fiber.Ctx, like bool) error {
	ctx := c.UserContext()
	uid := currentUserID(c)
	id := c.Params("id")

	post, err := s.daos.Posts.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if post == nil {
		return respondError(c, models.NewNotFoundError("post", id))
	}
	if _, err := s.ensureUser(ctx, uid); err != nil {
		return respondError(c, err)
	}

	var res models.LikeResult
	if like {
		res, err = s.daos.PostLikes.Like(ctx, id, uid)
	} else {
		res, err = s.daos.PostLikes.Unlike(ctx, id, uid)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	uid := currentUserID(c)
	id := c.Params("id")

	post, err := s.daos.Posts.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if post == nil {
		return respondError(c, models.NewNotFoundError("post", id))
	}
	if post.UserID != uid {
		return respondError(c, models.NewNotOwnerError("post"))
	}
	if _, err := s.daos.Posts.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	s.cache.Invalidate(ctx, cache.UserKey(uid))
	return c.SendStatus(fiber.StatusNoContent)
}
