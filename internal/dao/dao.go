// Package dao holds the table accessors shared by the local cache and the
// REST backend. Getters return nil without an error when no row matches.
package dao

import (
	"errors"

	"bookdot/internal/database"

	"gorm.io/gorm"
)

// Feed queries never return more than this many rows.
const MaxFeedLimit = 50

// Denormalized count recomputation. Each runs as a single statement so a
// concurrent writer can never leave a stale count behind.
const (
	recountUserPosts = `UPDATE users SET post_count = (SELECT COUNT(*) FROM posts WHERE posts.user_id = users.id) WHERE id = ?`
	recountPostLikes = `UPDATE posts SET like_count = (SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id) WHERE id = ?`
	recountComments  = `UPDATE posts SET comment_count = (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) WHERE id = ?`
	recountCmtLikes  = `UPDATE comments SET like_count = (SELECT COUNT(*) FROM comment_likes WHERE comment_likes.comment_id = comments.id) WHERE id = ?`
)

// DAOs groups every accessor over one store.
type DAOs struct {
	Users        *Users
	Posts        *Posts
	PostLikes    *Likes
	Comments     *Comments
	CommentLikes *Likes
	Messages     *Messages
	Stories      *Stories
}

// New builds the accessors for store.
func New(store *database.Store) *DAOs {
	return &DAOs{
		Users:        &Users{store: store},
		Posts:        &Posts{store: store},
		PostLikes:    NewPostLikes(store),
		Comments:     &Comments{store: store},
		CommentLikes: NewCommentLikes(store),
		Messages:     &Messages{store: store},
		Stories:      &Stories{store: store},
	}
}

func first[T any](q *gorm.DB) (*T, error) {
	var row T
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxFeedLimit {
		return MaxFeedLimit
	}
	return limit
}
