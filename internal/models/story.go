package models

import "time"

// MediaType is the kind of media a story points at.
type MediaType string

const (
	MediaTypeImage MediaType = "IMAGE"
	MediaTypeVideo MediaType = "VIDEO"
)

// Story is an expiring media entry.
type Story struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	UserID    string    `gorm:"size:64;not null;index" json:"user_id"`
	MediaURL  string    `gorm:"not null" json:"media_url"`
	MediaType MediaType `gorm:"size:16;not null" json:"media_type"`
	ViewCount int       `gorm:"not null;default:0" json:"view_count"`
	IsViewed  bool      `gorm:"not null" json:"is_viewed"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`

	User *User `gorm:"-" json:"user,omitempty"`
}

// CreateStoryInput describes a new story. TTL defaults to 24 hours.
type CreateStoryInput struct {
	MediaURL  string        `json:"media_url" validate:"required,url"`
	MediaType MediaType     `json:"media_type" validate:"oneof=IMAGE VIDEO"`
	TTL       time.Duration `json:"ttl"`
}
