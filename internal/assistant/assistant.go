// Package assistant bridges chat transcripts to a hosted completion API,
// answering with a canned reply when no credential is configured.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campusconnect/campus/internal/domain"
	"github.com/campusconnect/campus/pkg/log"
)

const (
	// PlaceholderKey is the unconfigured value shipped in sample env files.
	PlaceholderKey = "YOUR_API_KEY"

	FallbackReply = "I'm a simulated AI assistant. To get real responses, please configure the VITE_AI_API_KEY in your .env file with a valid OpenAI or Gemini API key. For now, I can tell you that I think your question is interesting!"

	ApologyReply = "Sorry, I'm having trouble connecting to my brain right now. Please try again later."

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultModel         = "gpt-3.5-turbo"
	DefaultBaseURL       = "https://api.openai.com/v1"
	DefaultFallbackDelay = time.Second
)

// Config configures the bridge.
type Config struct {
	Provider      string
	APIKey        string
	Model         string
	BaseURL       string
	FallbackDelay time.Duration
}

// Provider performs one completion call for a transcript.
type Provider interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
	Name() string
}

// Bridge turns a transcript into one reply string.
type Bridge struct {
	provider      Provider
	fallbackDelay time.Duration
}

// New builds a bridge for cfg. Without a usable key no provider is created.
func New(ctx context.Context, cfg Config) (*Bridge, error) {
	if cfg.FallbackDelay <= 0 {
		cfg.FallbackDelay = DefaultFallbackDelay
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	b := &Bridge{fallbackDelay: cfg.FallbackDelay}
	if !Configured(cfg.APIKey) {
		return b, nil
	}

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		b.provider = NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case ProviderGemini:
		p, err := NewGeminiProvider(ctx, cfg.APIKey, cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, err
		}
		b.provider = p
	default:
		return nil, fmt.Errorf("unsupported assistant provider: %s", cfg.Provider)
	}
	return b, nil
}

// NewWithProvider builds a bridge around an existing provider; a nil
// provider means the fallback is always used.
func NewWithProvider(p Provider, fallbackDelay time.Duration) *Bridge {
	if fallbackDelay <= 0 {
		fallbackDelay = DefaultFallbackDelay
	}
	return &Bridge{provider: p, fallbackDelay: fallbackDelay}
}

// Configured reports whether key is a real credential.
func Configured(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != PlaceholderKey
}

// Live reports whether replies come from a remote provider.
func (b *Bridge) Live() bool {
	return b.provider != nil
}

// Reply returns the assistant's answer to messages. Provider failures are
// logged and answered with ApologyReply, so a configured bridge never
// returns an error. The one exception is the unconfigured path: if ctx is
// done during the fallback wait, Reply returns ctx.Err() instead of
// FallbackReply. Callers substitute their own error message.
func (b *Bridge) Reply(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	l := log.Ctx(ctx)

	if b.provider == nil {
		timer := time.NewTimer(b.fallbackDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
			return FallbackReply, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	reply, err := b.provider.Complete(ctx, messages)
	if err != nil {
		l.Error().Err(err).Str(log.FieldProvider, b.provider.Name()).Msg("assistant completion failed")
		return ApologyReply, nil
	}
	if strings.TrimSpace(reply) == "" {
		l.Error().Str(log.FieldProvider, b.provider.Name()).Msg("assistant completion returned no content")
		return ApologyReply, nil
	}
	return reply, nil
}
