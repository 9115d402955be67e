package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/campusconnect/campus/internal/domain"
)

var transcript = []domain.ChatMessage{
	{Role: domain.RoleAssistant, Content: "Hello!"},
	{Role: domain.RoleUser, Content: "What is the best study tip?"},
}

func TestFallbackWhenUnconfigured(t *testing.T) {
	for _, key := range []string{"", "   ", PlaceholderKey} {
		b, err := New(context.Background(), Config{APIKey: key, FallbackDelay: 20 * time.Millisecond})
		if err != nil {
			t.Fatalf("New(%q): %v", key, err)
		}
		if b.Live() {
			t.Fatalf("key %q should not produce a live bridge", key)
		}

		start := time.Now()
		reply, err := b.Reply(context.Background(), transcript)
		if err != nil {
			t.Fatalf("Reply: %v", err)
		}
		if reply != FallbackReply {
			t.Errorf("reply = %q, want fallback", reply)
		}
		if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
			t.Errorf("fallback returned after %s, want >= 20ms", elapsed)
		}
	}
}

func TestFallbackHonoursCancellation(t *testing.T) {
	b := NewWithProvider(nil, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.Reply(ctx, transcript); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

type fakeProvider struct {
	reply string
	err   error
}

func (f fakeProvider) Complete(context.Context, []domain.ChatMessage) (string, error) {
	return f.reply, f.err
}

func (f fakeProvider) Name() string { return "fake" }

func TestProviderFailuresBecomeApology(t *testing.T) {
	tests := []struct {
		name     string
		provider fakeProvider
		want     string
	}{
		{"success", fakeProvider{reply: "Sleep well."}, "Sleep well."},
		{"error", fakeProvider{err: errors.New("boom")}, ApologyReply},
		{"empty", fakeProvider{reply: "  "}, ApologyReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewWithProvider(tt.provider, time.Millisecond)
			got, err := b.Reply(context.Background(), transcript)
			if err != nil {
				t.Fatalf("Reply returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Reply = %q, want %q", got, tt.want)
			}
		})
	}
}

func newOpenAIServer(t *testing.T, status int, body string, check func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIProviderSendsTranscript(t *testing.T) {
	var gotModel string
	var gotMessages int
	var gotAuth string

	srv := newOpenAIServer(t, http.StatusOK,
		`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Use spaced repetition."},"finish_reason":"stop"}]}`,
		func(r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			var req struct {
				Model    string            `json:"model"`
				Messages []json.RawMessage `json:"messages"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			gotModel = req.Model
			gotMessages = len(req.Messages)
		})

	b, err := New(context.Background(), Config{APIKey: "sk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	reply, err := b.Reply(context.Background(), transcript)
	if err != nil {
		t.Fatal(err)
	}
	if reply != "Use spaced repetition." {
		t.Errorf("reply = %q", reply)
	}
	if gotModel != DefaultModel {
		t.Errorf("model = %q, want %q", gotModel, DefaultModel)
	}
	if gotMessages != len(transcript) {
		t.Errorf("sent %d messages, want %d", gotMessages, len(transcript))
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestOpenAIProviderErrorBody(t *testing.T) {
	srv := newOpenAIServer(t, http.StatusUnauthorized,
		`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`, nil)

	b, err := New(context.Background(), Config{APIKey: "sk-bad", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	reply, err := b.Reply(context.Background(), transcript)
	if err != nil {
		t.Fatalf("Reply returned error: %v", err)
	}
	if reply != ApologyReply {
		t.Errorf("reply = %q, want apology", reply)
	}
}

func TestOpenAIProviderNoChoices(t *testing.T) {
	srv := newOpenAIServer(t, http.StatusOK, `{"id":"1","object":"chat.completion","choices":[]}`, nil)

	b, err := New(context.Background(), Config{APIKey: "sk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	reply, _ := b.Reply(context.Background(), transcript)
	if reply != ApologyReply {
		t.Errorf("reply = %q, want apology", reply)
	}
}

func TestGeminiContentsOpenWithUser(t *testing.T) {
	contents := toGeminiContents(append(transcript, domain.ChatMessage{Role: domain.RoleAssistant, Content: "ok"}))
	if len(contents) != 2 {
		t.Fatalf("len = %d, want 2", len(contents))
	}
	if contents[0].Role != "user" || contents[1].Role != "model" {
		t.Errorf("roles = %q, %q", contents[0].Role, contents[1].Role)
	}
}

func TestUnknownProvider(t *testing.T) {
	if _, err := New(context.Background(), Config{APIKey: "k", Provider: "llama"}); err == nil {
		t.Fatal("expected error")
	}
}
