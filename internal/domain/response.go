package domain

// SessionUser is the identity carried by a valid session.
type SessionUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// AuthResponse represents authentication response with tokens.
type AuthResponse struct {
	User             SessionUser `json:"user"`
	AccessToken      string      `json:"access_token"`
	RefreshToken     string      `json:"refresh_token"`
	ExpiresAt        int64       `json:"expires_at"`
	RefreshExpiresAt int64       `json:"refresh_expires_at"`
}

// ProfileView is the profile screen's mount state.
type ProfileView struct {
	Profile *Profile `json:"profile"`
	Email   string   `json:"email"`
}

// FeedView is the feed screen's mount state.
type FeedView struct {
	Threads          []*Thread `json:"threads"`
	Posts            []*Post   `json:"posts"`
	SelectedThreadID *string   `json:"selected_thread_id"`
}

// ChatView is the chat screen's mount state.
type ChatView struct {
	SessionID string        `json:"session_id"`
	Messages  []ChatMessage `json:"messages"`
	Loading   bool          `json:"loading"`
}

// SubmitResponse reports whether input was accepted and the transcript after
// the exchange.
type SubmitResponse struct {
	Accepted bool          `json:"accepted"`
	Messages []ChatMessage `json:"messages"`
}

// ReplyResponse is the assistant's reply text.
type ReplyResponse struct {
	Reply string `json:"reply"`
}
