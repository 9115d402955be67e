// Package chat holds the assistant conversation state of open chat screens.
package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/campusconnect/campus/internal/domain"
	"github.com/campusconnect/campus/pkg/log"
)

const (
	Greeting     = "Hello! I am your campus AI assistant. Ask me anything about college life, study tips, or campus events!"
	ErrorMessage = "Sorry, I encountered an error. Please try again."
)

// Replier produces the assistant's next message for a transcript.
type Replier interface {
	Reply(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// Session is one chat screen: a transcript and a pending flag.
type Session struct {
	ID      string
	OwnerID string

	replier Replier

	mu       sync.Mutex
	messages []domain.ChatMessage
	pending  bool
}

// NewSession starts a transcript holding only the greeting.
func NewSession(id, ownerID string, replier Replier) *Session {
	return &Session{
		ID:      id,
		OwnerID: ownerID,
		replier: replier,
		messages: []domain.ChatMessage{
			{Role: domain.RoleAssistant, Content: Greeting},
		},
	}
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ChatMessage(nil), s.messages...)
}

// Pending reports whether a reply is outstanding.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Submit sends input to the assistant. Blank input, or input while a reply is
// pending, is ignored and reported as not accepted. An accepted submission
// grows the transcript by the user message and exactly one assistant reply.
func (s *Session) Submit(ctx context.Context, input string) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return false
	}
	s.messages = append(s.messages, domain.ChatMessage{Role: domain.RoleUser, Content: input})
	s.pending = true
	transcript := append([]domain.ChatMessage(nil), s.messages...)
	s.mu.Unlock()

	reply, err := s.replier.Reply(ctx, transcript)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldChatID, s.ID).Msg("assistant reply failed")
		reply = ErrorMessage
	}

	s.mu.Lock()
	s.messages = append(s.messages, domain.ChatMessage{Role: domain.RoleAssistant, Content: reply})
	s.pending = false
	s.mu.Unlock()

	return true
}
