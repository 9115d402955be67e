package cache

import (
	"context"
	"errors"
	"time"

	"github.com/campusconnect/campus/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// ProfileCache is a read-through cache for profiles keyed by account id.
type ProfileCache interface {
	Get(ctx context.Context, id string) (*domain.Profile, error)
	Set(ctx context.Context, profile *domain.Profile, ttl time.Duration) error
	Delete(ctx context.Context, ids ...string) error
	Close() error
}

// NoopProfileCache always misses.
type NoopProfileCache struct{}

func (NoopProfileCache) Get(context.Context, string) (*domain.Profile, error) {
	return nil, ErrCacheMiss
}

func (NoopProfileCache) Set(context.Context, *domain.Profile, time.Duration) error { return nil }

func (NoopProfileCache) Delete(context.Context, ...string) error { return nil }

func (NoopProfileCache) Close() error { return nil }
