package pubsub

// Channels carried on the bus.
const (
	// ChannelPosts announces changes to the posts table.
	ChannelPosts = "public:posts"

	// ChannelAuth announces sign-in state transitions.
	ChannelAuth = "auth:state"
)

// Event types.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"

	EventSignedIn  = "SIGNED_IN"
	EventSignedOut = "SIGNED_OUT"
)

// PostChangePayload accompanies events on ChannelPosts. It names the row
// only; subscribers refetch the content.
type PostChangePayload struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	AuthorID string `json:"author_id"`
}

// AuthStatePayload accompanies events on ChannelAuth.
type AuthStatePayload struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}
