// Package service holds the feed use cases the presenters call.
package service

import (
	"context"
	"strings"

	"bookdot/internal/models"
	"bookdot/internal/repository"
	"bookdot/internal/stream"
)

type PostService struct {
	posts repository.PostRepository
}

func NewPostService(posts repository.PostRepository) *PostService {
	return &PostService{posts: posts}
}

// Feed streams the reconciled home feed.
func (s *PostService) Feed(ctx context.Context) *stream.Subscription[[]*models.Post] {
	return s.posts.Feed(ctx)
}

func (s *PostService) UserPosts(ctx context.Context, userID string) *stream.Subscription[[]*models.Post] {
	return s.posts.ByUser(ctx, userID)
}

func (s *PostService) CreatePost(ctx context.Context, content string, imageURLs []string) (*models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, models.NewValidationError("Post content cannot be empty")
	}
	return s.posts.Create(ctx, models.CreatePostInput{Content: content, ImageURLs: imageURLs})
}

// LikePost unlikes a post the caller has liked and likes it otherwise.
func (s *PostService) LikePost(ctx context.Context, postID string, isLiked bool) error {
	if isLiked {
		return s.posts.Unlike(ctx, postID)
	}
	return s.posts.Like(ctx, postID)
}

func (s *PostService) DeletePost(ctx context.Context, postID string) error {
	return s.posts.Delete(ctx, postID)
}
