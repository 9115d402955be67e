package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campusconnect/campus/internal/domain"
)

type RedisProfileCache struct {
	client *redis.Client
	prefix string
}

// NewRedisProfileCache stores profiles under prefix in an existing client.
func NewRedisProfileCache(client *redis.Client, prefix string) *RedisProfileCache {
	return &RedisProfileCache{
		client: client,
		prefix: prefix,
	}
}

func (c *RedisProfileCache) key(id string) string {
	return fmt.Sprintf("%s:id:%s", c.prefix, id)
}

func (c *RedisProfileCache) Get(ctx context.Context, id string) (*domain.Profile, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var profile domain.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &profile, nil
}

func (c *RedisProfileCache) Set(ctx context.Context, profile *domain.Profile, ttl time.Duration) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, c.key(profile.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisProfileCache) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, c.key(id))
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}

	return nil
}

func (c *RedisProfileCache) Close() error {
	return c.client.Close()
}
