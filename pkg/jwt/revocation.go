package jwt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore records revoked sessions until their tokens would have
// expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, sessionID string, until time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// MemoryRevocationStore keeps revocations in process memory.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

// NewMemoryRevocationStore creates an empty in-memory store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]time.Time)}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, sessionID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[sessionID] = until
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	until, ok := s.revoked[sessionID]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		s.mu.Lock()
		delete(s.revoked, sessionID)
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}

// Cleanup drops expired entries.
func (s *MemoryRevocationStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, until := range s.revoked {
		if now.After(until) {
			delete(s.revoked, id)
		}
	}
}

// RedisRevocationStore shares revocations between instances; entries expire
// through the key TTL.
type RedisRevocationStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocationStore wraps an existing client.
func NewRedisRevocationStore(client *redis.Client, prefix string) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, prefix: prefix}
}

func (s *RedisRevocationStore) key(sessionID string) string {
	return fmt.Sprintf("%s:revoked:%s", s.prefix, sessionID)
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.key(sessionID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	err := s.client.Get(ctx, s.key(sessionID)).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return false, err
}
