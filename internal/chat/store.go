package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campusconnect/campus/pkg/log"
)

var ErrSessionNotFound = errors.New("chat session not found")

const (
	DefaultIdleTimeout = 30 * time.Minute
	DefaultMaxPerOwner = 5
)

// StoreConfig bounds how long and how many chat screens stay open.
type StoreConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	MaxPerOwner int           `mapstructure:"max_per_owner"`
}

type storeEntry struct {
	session  *Session
	lastSeen time.Time
}

// Store keeps open chat sessions in memory, keyed by id and checked against
// their owner. Sessions idle for longer than the idle timeout are dropped,
// and opening more than MaxPerOwner sessions evicts the owner's least
// recently used one.
type Store struct {
	replier     Replier
	idleTimeout time.Duration
	maxPerOwner int
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*storeEntry
}

// NewStore creates an empty store. Zero config fields take their defaults.
func NewStore(replier Replier, cfg StoreConfig) *Store {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.MaxPerOwner <= 0 {
		cfg.MaxPerOwner = DefaultMaxPerOwner
	}
	return &Store{
		replier:     replier,
		idleTimeout: cfg.IdleTimeout,
		maxPerOwner: cfg.MaxPerOwner,
		now:         time.Now,
		sessions:    make(map[string]*storeEntry),
	}
}

// Open creates a session for ownerID.
func (s *Store) Open(ownerID string) *Session {
	session := NewSession(uuid.New().String(), ownerID, s.replier)

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		owned  int
		oldest *storeEntry
	)
	for _, e := range s.sessions {
		if e.session.OwnerID != ownerID {
			continue
		}
		owned++
		if oldest == nil || e.lastSeen.Before(oldest.lastSeen) {
			oldest = e
		}
	}
	if owned >= s.maxPerOwner && oldest != nil {
		delete(s.sessions, oldest.session.ID)
	}

	s.sessions[session.ID] = &storeEntry{session: session, lastSeen: s.now()}
	return session
}

// Get returns the session id owned by ownerID and marks it as used.
func (s *Store) Get(id, ownerID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok || e.session.OwnerID != ownerID {
		return nil, ErrSessionNotFound
	}
	now := s.now()
	if s.expired(e, now) {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}
	e.lastSeen = now
	return e.session, nil
}

// Close discards the session id owned by ownerID.
func (s *Store) Close(id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok || e.session.OwnerID != ownerID {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// CloseOwner discards every session of ownerID.
func (s *Store) CloseOwner(ownerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.sessions {
		if e.session.OwnerID == ownerID {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Reap drops idle sessions and returns how many were removed. Sessions
// waiting on a reply are kept.
func (s *Store) Reap() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, e := range s.sessions {
		if s.expired(e, now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *Store) expired(e *storeEntry, now time.Time) bool {
	return now.Sub(e.lastSeen) > s.idleTimeout && !e.session.Pending()
}

// Run reaps idle sessions until ctx is done.
func (s *Store) Run(ctx context.Context) {
	interval := s.idleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Reap(); n > 0 {
				l := log.L()
				l.Debug().Int("reaped", n).Int("open", s.Len()).Msg("dropped idle chat sessions")
			}
		}
	}
}

// Len returns the number of open sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
