package domain

import (
	"time"
)

// Account is the identity record. It is never returned to clients.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the public face of an account.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	College   string    `json:"college"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Thread is a named discussion category.
type Thread struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is a message in a thread, joined with its author's profile on read.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	ThreadID  string    `json:"thread_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    *Profile  `json:"profiles,omitempty"`
}

// Comment is a reply to a post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    *Profile  `json:"profiles,omitempty"`
}

// Roles of a chat transcript entry.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry of an assistant transcript.
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content"`
}
