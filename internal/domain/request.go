package domain

// SignupRequest represents a sign-up request.
type SignupRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=6"`
	Username string `json:"username" form:"username" binding:"required,max=50"`
}

// LoginRequest represents a sign-in request.
type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

// RefreshTokenRequest represents a refresh token request.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UpdateProfileRequest is the full-record profile update. Both fields are
// written even when empty.
type UpdateProfileRequest struct {
	Username string `json:"username" binding:"max=50"`
	College  string `json:"college" binding:"max=120"`
}

// CreatePostRequest creates a post in a thread.
type CreatePostRequest struct {
	ThreadID string `json:"thread_id"`
	Content  string `json:"content"`
}

// CreateCommentRequest creates a comment on a post.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// ReplyRequest is a stateless assistant call carrying the whole transcript.
type ReplyRequest struct {
	Messages []ChatMessage `json:"messages" binding:"required,min=1,dive"`
}

// SubmitRequest submits user input to a chat session.
type SubmitRequest struct {
	Input string `json:"input"`
}
