// Package repository merges cached rows with live engagement state and
// mediates every mutation. Two families exist: cache-backed repositories
// over the local store (optionally mirroring writes to the REST backend) and
// document-store repositories that read the remote collections directly.
package repository

import (
	"context"
	"time"

	"bookdot/internal/models"
	"bookdot/internal/observability"
	"bookdot/internal/stream"

	"github.com/google/uuid"
)

// Session exposes the signed-in uid, or "" when nobody is signed in.
type Session interface {
	CurrentUserID() string
}

// PostRepository is the feed surface shared by both backends.
type PostRepository interface {
	Feed(ctx context.Context) *stream.Subscription[[]*models.Post]
	ByUser(ctx context.Context, userID string) *stream.Subscription[[]*models.Post]
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, in models.CreatePostInput) (*models.Post, error)
	ToggleLike(ctx context.Context, id string) error
	// Like and Unlike both toggle; Unlike on a post that is not liked
	// likes it.
	Like(ctx context.Context, id string) error
	Unlike(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// CommentRepository is the comment surface shared by both backends.
type CommentRepository interface {
	ByPost(ctx context.Context, postID string) *stream.Subscription[[]*models.Comment]
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	Create(ctx context.Context, postID, content string) (*models.Comment, error)
	ToggleLike(ctx context.Context, id string) error
	// Like and Unlike both toggle.
	Like(ctx context.Context, id string) error
	Unlike(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// clock and id generation are swapped out in tests.
type env struct {
	now   func() time.Time
	newID func() string
}

func defaultEnv() env {
	return env{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

func requireSession(s Session) (string, error) {
	if s == nil {
		return "", models.NewNotAuthenticatedError()
	}
	uid := s.CurrentUserID()
	if uid == "" {
		return "", models.NewNotAuthenticatedError()
	}
	return uid, nil
}

func currentUserID(s Session) string {
	if s == nil {
		return ""
	}
	return s.CurrentUserID()
}

// boundary converts err into an application error and records the outcome.
func boundary(repo, op string, err error) error {
	observability.ObserveOperation(repo, op, err)
	if err == nil {
		return nil
	}
	return models.AsAppError(err)
}
