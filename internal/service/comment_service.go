package service

import (
	"context"
	"strings"

	"bookdot/internal/models"
	"bookdot/internal/repository"
	"bookdot/internal/stream"
)

type CommentService struct {
	comments repository.CommentRepository
}

func NewCommentService(comments repository.CommentRepository) *CommentService {
	return &CommentService{comments: comments}
}

func (s *CommentService) Comments(ctx context.Context, postID string) *stream.Subscription[[]*models.Comment] {
	return s.comments.ByPost(ctx, postID)
}

func (s *CommentService) CreateComment(ctx context.Context, postID, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, models.NewValidationError("Comment content cannot be empty")
	}
	return s.comments.Create(ctx, postID, content)
}

func (s *CommentService) LikeComment(ctx context.Context, commentID string, isLiked bool) error {
	if isLiked {
		return s.comments.Unlike(ctx, commentID)
	}
	return s.comments.Like(ctx, commentID)
}

func (s *CommentService) DeleteComment(ctx context.Context, commentID string) error {
	return s.comments.Delete(ctx, commentID)
}
