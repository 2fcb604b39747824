package models

import "time"

// Document-store shapes. Timestamps are unix milliseconds so they sort
// numerically inside the store.

// UserDocument is stored at users/{uid}.
type UserDocument struct {
	ID             string  `json:"id"`
	Username       string  `json:"username"`
	DisplayName    string  `json:"displayName"`
	AvatarURL      *string `json:"avatarUrl"`
	Bio            string  `json:"bio"`
	FollowerCount  int     `json:"followerCount"`
	FollowingCount int     `json:"followingCount"`
	PostCount      int     `json:"postCount"`
	IsFollowing    bool    `json:"isFollowing"`
	CreatedAt      int64   `json:"createdAt"`
}

// AccountMapping is stored at userAccountIds/{accountId}.
type AccountMapping struct {
	UID string `json:"uid"`
}

// PostDocument is stored at posts/{id}.
type PostDocument struct {
	ID           string   `json:"id"`
	UserID       string   `json:"userId"`
	Content      string   `json:"content"`
	ImageURLs    []string `json:"imageUrls"`
	VideoURL     *string  `json:"videoUrl"`
	LikeCount    int      `json:"likeCount"`
	CommentCount int      `json:"commentCount"`
	CreatedAt    int64    `json:"createdAt"`
}

// CommentDocument is stored at comments/{id}.
type CommentDocument struct {
	ID        string `json:"id"`
	PostID    string `json:"postId"`
	UserID    string `json:"userId"`
	Content   string `json:"content"`
	LikeCount int    `json:"likeCount"`
	CreatedAt int64  `json:"createdAt"`
}

// Like target types.
const (
	LikeTargetPost    = "post"
	LikeTargetComment = "comment"
)

// LikeDocument is stored at likes/{targetId}_{userId}.
type LikeDocument struct {
	TargetID   string `json:"targetId"`
	TargetType string `json:"targetType"`
	UserID     string `json:"userId"`
	CreatedAt  int64  `json:"createdAt"`
}

// LikeDocumentID builds the deterministic like document id.
func LikeDocumentID(targetID, userID string) string {
	return targetID + "_" + userID
}

// ToUser converts a profile document into the relational model.
func (d UserDocument) ToUser() *User {
	return &User{
		ID:             d.ID,
		Username:       d.Username,
		DisplayName:    d.DisplayName,
		AvatarURL:      d.AvatarURL,
		Bio:            d.Bio,
		FollowerCount:  d.FollowerCount,
		FollowingCount: d.FollowingCount,
		PostCount:      d.PostCount,
		IsFollowing:    d.IsFollowing,
		CreatedAt:      time.UnixMilli(d.CreatedAt).UTC(),
	}
}

// ToPost converts a post document. Author and like state are resolved by the caller.
func (d PostDocument) ToPost() *Post {
	return &Post{
		ID:           d.ID,
		UserID:       d.UserID,
		Content:      d.Content,
		ImageURLs:    d.ImageURLs,
		VideoURL:     d.VideoURL,
		LikeCount:    d.LikeCount,
		CommentCount: d.CommentCount,
		CreatedAt:    time.UnixMilli(d.CreatedAt).UTC(),
	}
}

// ToComment converts a comment document.
func (d CommentDocument) ToComment() *Comment {
	return &Comment{
		ID:        d.ID,
		PostID:    d.PostID,
		UserID:    d.UserID,
		Content:   d.Content,
		LikeCount: d.LikeCount,
		CreatedAt: time.UnixMilli(d.CreatedAt).UTC(),
	}
}

// UnknownUser is the placeholder author used when a profile cannot be read.
func UnknownUser(id string) *User {
	return &User{ID: id, Username: "unknown", DisplayName: "Unknown User"}
}
