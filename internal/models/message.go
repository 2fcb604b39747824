package models

import "time"

// Message is a direct message. Conversations are not modeled beyond their id.
type Message struct {
	ID             string     `gorm:"primaryKey;size:64" json:"id"`
	ConversationID string     `gorm:"size:64;not null;index" json:"conversation_id"`
	SenderID       string     `gorm:"size:64;not null" json:"sender_id"`
	Content        string     `gorm:"type:text;not null" json:"content"`
	IsEncrypted    bool       `gorm:"not null" json:"is_encrypted"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
}

// SendMessageInput is the body of a send request.
type SendMessageInput struct {
	Content     string `json:"content" validate:"notblank,max=10000"`
	IsEncrypted bool   `json:"is_encrypted"`
}
