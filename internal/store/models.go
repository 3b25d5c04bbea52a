package store

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	ContentTypeText  = "text"
	ContentTypeImage = "image"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt    time.Time `json:"created_at"`
}

type Chat struct {
	ID        string    `json:"id"` // Using UUID for external ID
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

type Message struct {
	ID          string    `json:"id"` // Using UUID for external ID
	ChatID      string    `json:"chat_id"`
	Role        string    `json:"role"`         // "user" or "assistant"
	Content     string    `json:"content"`      // text, or /uploads path for images
	ContentType string    `json:"content_type"` // "text" or "image"
	CreatedAt   time.Time `json:"created_at"`
}
