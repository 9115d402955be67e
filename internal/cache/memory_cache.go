package cache

import (
	"context"
	"sync"
	"time"

	"github.com/campusconnect/campus/internal/domain"
)

type memoryEntry struct {
	profile   domain.Profile
	expiresAt time.Time
}

// MemoryProfileCache keeps profiles in process memory.
type MemoryProfileCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryProfileCache creates an empty cache.
func NewMemoryProfileCache() *MemoryProfileCache {
	return &MemoryProfileCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryProfileCache) Get(_ context.Context, id string) (*domain.Profile, error) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrCacheMiss
	}
	p := entry.profile
	return &p, nil
}

func (c *MemoryProfileCache) Set(_ context.Context, profile *domain.Profile, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[profile.ID] = memoryEntry{profile: *profile, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *MemoryProfileCache) Delete(_ context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.entries, id)
	}
	return nil
}

func (c *MemoryProfileCache) Close() error { return nil }
