package models

import "time"

// Post is a feed entry. LikeCount and CommentCount are denormalized copies of
// row counts and are rewritten after every like or comment mutation.
type Post struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	UserID       string    `gorm:"size:64;not null;index" json:"user_id"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	ImageURLs    []string  `gorm:"type:text;serializer:json" json:"image_urls"`
	VideoURL     *string   `json:"video_url,omitempty"`
	LikeCount    int       `gorm:"not null;default:0" json:"like_count"`
	CommentCount int       `gorm:"not null;default:0" json:"comment_count"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`

	// Resolved at read time, never stored.
	User    *User `gorm:"-" json:"user,omitempty"`
	IsLiked bool  `gorm:"-" json:"is_liked"`
}

// PostLike records that a user liked a post. At most one row exists per pair.
type PostLike struct {
	PostID    string    `gorm:"primaryKey;size:64" json:"post_id"`
	UserID    string    `gorm:"primaryKey;size:64" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Post Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// CreatePostInput is validated before a post is written.
type CreatePostInput struct {
	Content   string   `json:"content" validate:"notblank,max=50000"`
	ImageURLs []string `json:"image_urls" validate:"max=10,dive,url"`
	VideoURL  *string  `json:"video_url,omitempty" validate:"omitempty,url"`
}

// LikeResult is returned by the backend like endpoints.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}
