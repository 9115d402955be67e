package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/campusconnect/campus/internal/domain"
)

type stubReplier struct {
	reply string
	err   error

	mu   sync.Mutex
	seen [][]domain.ChatMessage
}

func (r *stubReplier) Reply(_ context.Context, messages []domain.ChatMessage) (string, error) {
	r.mu.Lock()
	r.seen = append(r.seen, messages)
	r.mu.Unlock()
	return r.reply, r.err
}

// blockingReplier holds every call until release is closed.
type blockingReplier struct {
	started chan struct{}
	release chan struct{}
}

func (r *blockingReplier) Reply(context.Context, []domain.ChatMessage) (string, error) {
	r.started <- struct{}{}
	<-r.release
	return "done", nil
}

func TestNewSessionStartsWithGreeting(t *testing.T) {
	s := NewSession("c1", "u1", &stubReplier{})
	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].Role != domain.RoleAssistant || msgs[0].Content != Greeting {
		t.Fatalf("unexpected initial transcript: %+v", msgs)
	}
	if s.Pending() {
		t.Fatal("new session should be idle")
	}
}

func TestSubmitAppendsExactlyTwo(t *testing.T) {
	r := &stubReplier{reply: "Try the library."}
	s := NewSession("c1", "u1", r)

	if !s.Submit(context.Background(), "Where can I study?") {
		t.Fatal("submit not accepted")
	}

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3", len(msgs))
	}
	if msgs[1].Role != domain.RoleUser || msgs[1].Content != "Where can I study?" {
		t.Errorf("user message = %+v", msgs[1])
	}
	if msgs[2].Role != domain.RoleAssistant || msgs[2].Content != "Try the library." {
		t.Errorf("assistant message = %+v", msgs[2])
	}

	if len(r.seen) != 1 || len(r.seen[0]) != 2 {
		t.Fatalf("replier saw %+v, want one call with greeting and question", r.seen)
	}
	if s.Pending() {
		t.Error("session still pending after reply")
	}
}

func TestSubmitBlankIsNoop(t *testing.T) {
	r := &stubReplier{reply: "x"}
	s := NewSession("c1", "u1", r)

	for _, input := range []string{"", "   ", "\n\t"} {
		if s.Submit(context.Background(), input) {
			t.Errorf("blank input %q accepted", input)
		}
	}
	if len(s.Messages()) != 1 || len(r.seen) != 0 {
		t.Fatal("blank input changed state")
	}
}

func TestSubmitWhilePendingIsNoop(t *testing.T) {
	r := &blockingReplier{started: make(chan struct{}), release: make(chan struct{})}
	s := NewSession("c1", "u1", r)

	done := make(chan bool)
	go func() { done <- s.Submit(context.Background(), "first") }()

	select {
	case <-r.started:
	case <-time.After(time.Second):
		t.Fatal("first submit never reached the replier")
	}

	if !s.Pending() {
		t.Fatal("session not pending while reply outstanding")
	}
	if s.Submit(context.Background(), "second") {
		t.Fatal("submit accepted while pending")
	}
	if n := len(s.Messages()); n != 2 {
		t.Fatalf("len while pending = %d, want 2", n)
	}

	close(r.release)
	if !<-done {
		t.Fatal("first submit not accepted")
	}
	if n := len(s.Messages()); n != 3 {
		t.Fatalf("len after reply = %d, want 3", n)
	}
}

func TestSubmitReplierErrorAppendsErrorMessage(t *testing.T) {
	s := NewSession("c1", "u1", &stubReplier{err: errors.New("network down")})

	if !s.Submit(context.Background(), "hello") {
		t.Fatal("submit not accepted")
	}
	msgs := s.Messages()
	if len(msgs) != 3 || msgs[2].Content != ErrorMessage {
		t.Fatalf("unexpected transcript: %+v", msgs)
	}
	if s.Pending() {
		t.Error("session still pending after failure")
	}
}

func TestStoreOwnerChecks(t *testing.T) {
	store := NewStore(&stubReplier{reply: "ok"}, StoreConfig{})
	s := store.Open("alice")

	if _, err := store.Get(s.ID, "alice"); err != nil {
		t.Fatalf("owner Get: %v", err)
	}
	if _, err := store.Get(s.ID, "bob"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("foreign Get err = %v", err)
	}
	if err := store.Close(s.ID, "bob"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("foreign Close err = %v", err)
	}
	if err := store.Close(s.ID, "alice"); err != nil {
		t.Fatalf("owner Close: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("Len = %d after close", store.Len())
	}
}

func TestStoreCloseOwner(t *testing.T) {
	store := NewStore(&stubReplier{}, StoreConfig{})
	store.Open("alice")
	store.Open("alice")
	store.Open("bob")

	if n := store.CloseOwner("alice"); n != 2 {
		t.Fatalf("CloseOwner = %d, want 2", n)
	}
	if store.Len() != 1 {
		t.Fatalf("Len = %d, want 1", store.Len())
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestStoreReapsIdleSessions(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	store := NewStore(&stubReplier{}, StoreConfig{IdleTimeout: time.Minute})
	store.now = clock.now

	idle := store.Open("alice")
	active := store.Open("bob")

	clock.t = clock.t.Add(40 * time.Second)
	if _, err := store.Get(active.ID, "bob"); err != nil {
		t.Fatal(err)
	}

	clock.t = clock.t.Add(40 * time.Second)
	if n := store.Reap(); n != 1 {
		t.Fatalf("Reap = %d, want 1", n)
	}
	if _, err := store.Get(idle.ID, "alice"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("idle session err = %v", err)
	}
	if _, err := store.Get(active.ID, "bob"); err != nil {
		t.Errorf("recently used session dropped: %v", err)
	}
}

func TestStoreGetExpiresLazily(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	store := NewStore(&stubReplier{}, StoreConfig{IdleTimeout: time.Minute})
	store.now = clock.now

	s := store.Open("alice")
	clock.t = clock.t.Add(2 * time.Minute)

	if _, err := store.Get(s.ID, "alice"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d", store.Len())
	}
}

func TestStoreKeepsPendingSessions(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	r := &blockingReplier{started: make(chan struct{}), release: make(chan struct{})}
	store := NewStore(r, StoreConfig{IdleTimeout: time.Minute})
	store.now = clock.now

	s := store.Open("alice")
	done := make(chan struct{})
	go func() {
		s.Submit(context.Background(), "hi")
		close(done)
	}()
	<-r.started

	clock.t = clock.t.Add(time.Hour)
	if n := store.Reap(); n != 0 {
		t.Errorf("Reap = %d while reply pending", n)
	}
	close(r.release)
	<-done

	if n := store.Reap(); n != 1 {
		t.Errorf("Reap = %d after reply, want 1", n)
	}
}

func TestStoreBoundsSessionsPerOwner(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	store := NewStore(&stubReplier{}, StoreConfig{MaxPerOwner: 3})
	store.now = clock.now

	first := store.Open("alice")
	for i := 0; i < 1000; i++ {
		clock.t = clock.t.Add(time.Second)
		store.Open("alice")
	}
	store.Open("bob")

	if store.Len() != 4 {
		t.Fatalf("Len = %d, want 4", store.Len())
	}
	if _, err := store.Get(first.ID, "alice"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("oldest session kept: err = %v", err)
	}
}

func TestStoreRunStopsWithContext(t *testing.T) {
	store := NewStore(&stubReplier{}, StoreConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
