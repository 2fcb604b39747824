package models

import "time"

// Comment belongs to exactly one post.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	PostID    string    `gorm:"size:64;not null;index:idx_comments_post_created" json:"post_id"`
	UserID    string    `gorm:"size:64;not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	LikeCount int       `gorm:"not null;default:0" json:"like_count"`
	CreatedAt time.Time `gorm:"index:idx_comments_post_created" json:"created_at"`

	User    *User `gorm:"-" json:"user,omitempty"`
	IsLiked bool  `gorm:"-" json:"is_liked"`
}

// CommentLike records that a user liked a comment.
type CommentLike struct {
	CommentID string    `gorm:"primaryKey;size:64" json:"comment_id"`
	UserID    string    `gorm:"primaryKey;size:64" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Comment Comment `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`
	User    User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// CreateCommentInput is validated before a comment is written.
type CreateCommentInput struct {
	PostID  string `json:"post_id" validate:"required"`
	Content string `json:"content" validate:"notblank,max=10000"`
}
