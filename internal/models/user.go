// Package models contains the domain models shared by the local cache, the
// document store and the REST backend.
package models

import "time"

// User is a member profile. IsFollowing is viewer-relative and only ever
// toggled optimistically; no follow relationship table exists.
type User struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	Username       string    `gorm:"size:64;index" json:"username"`
	DisplayName    string    `gorm:"size:100" json:"display_name"`
	AvatarURL      *string   `json:"avatar_url,omitempty"`
	Bio            string    `gorm:"type:text" json:"bio"`
	FollowerCount  int       `gorm:"not null;default:0" json:"follower_count"`
	FollowingCount int       `gorm:"not null;default:0" json:"following_count"`
	PostCount      int       `gorm:"not null;default:0" json:"post_count"`
	IsFollowing    bool      `gorm:"not null" json:"is_following"`
	CreatedAt      time.Time `json:"created_at"`
}

// UpdateProfileInput carries the editable profile fields.
type UpdateProfileInput struct {
	DisplayName string  `json:"display_name" validate:"notblank,max=50"`
	Bio         string  `json:"bio" validate:"max=500"`
	AvatarURL   *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

// AuthUser is the client-side view of the signed-in anonymous identity.
type AuthUser struct {
	AccountID   string    `json:"account_id"`
	DisplayName string    `json:"display_name"`
	IsLoggedIn  bool      `json:"is_logged_in"`
	CreatedAt   time.Time `json:"created_at"`
}
