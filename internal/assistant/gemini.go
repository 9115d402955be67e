package assistant

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/campusconnect/campus/internal/domain"
)

// GeminiProvider calls Google's GenerateContent API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini client. A baseURL other than the OpenAI
// default overrides the API endpoint.
func NewGeminiProvider(ctx context.Context, apiKey, baseURL, model string) (*GeminiProvider, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" && baseURL != DefaultBaseURL {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if model == DefaultModel {
		model = "gemini-2.0-flash"
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

func (p *GeminiProvider) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	contents := toGeminiContents(messages)
	if len(contents) == 0 {
		return "", ErrNoChoices
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return "", err
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil ||
		len(result.Candidates[0].Content.Parts) == 0 {
		return "", ErrNoChoices
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}

// toGeminiContents maps the transcript to user/model turns. Gemini requires
// the conversation to open with a user turn, so a leading greeting is dropped.
func toGeminiContents(messages []domain.ChatMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == domain.RoleAssistant {
			if len(contents) == 0 {
				continue
			}
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return contents
}
