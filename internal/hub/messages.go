package hub

import (
	"encoding/json"

	"github.com/campusconnect/campus/internal/domain"
)

const (
	MsgTypeSelectThread = "select_thread"
	MsgTypePing         = "ping"

	MsgTypePosts = "posts"
	MsgTypePong  = "pong"
	MsgTypeError = "error"
)

type BaseMessage struct {
	Type string `json:"type"`
}

// SelectThreadMessage changes the client's filter; a null thread_id selects
// every thread.
type SelectThreadMessage struct {
	Type     string  `json:"type"`
	ThreadID *string `json:"thread_id"`
}

type PostsMessage struct {
	Type     string         `json:"type"`
	ThreadID *string        `json:"thread_id"`
	Posts    []*domain.Post `json:"posts"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func encode(v interface{}) []byte {
	data, _ := json.Marshal(v)
	return data
}
