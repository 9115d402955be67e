package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusconnect/campus/internal/domain"
)

func TestMemoryProfileCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryProfileCache()

	if _, err := c.Get(ctx, "u1"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("empty cache err = %v", err)
	}

	p := &domain.Profile{ID: "u1", Username: "ada"}
	c.Set(ctx, p, time.Minute)
	p.Username = "mutated"

	got, err := c.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Username != "ada" {
		t.Errorf("cached profile aliased caller value: %q", got.Username)
	}

	c.Delete(ctx, "u1")
	if _, err := c.Get(ctx, "u1"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("after delete err = %v", err)
	}
}

func TestMemoryProfileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryProfileCache()
	c.Set(ctx, &domain.Profile{ID: "u1"}, -time.Second)

	if _, err := c.Get(ctx, "u1"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expired entry err = %v", err)
	}
}

func TestNoopProfileCacheAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c ProfileCache = NoopProfileCache{}
	c.Set(ctx, &domain.Profile{ID: "u1"}, time.Minute)
	if _, err := c.Get(ctx, "u1"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("err = %v", err)
	}
}
