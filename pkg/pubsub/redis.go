package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

type redisSubscription struct {
	ps     *redis.PubSub
	cancel context.CancelFunc
}

// RedisPubSub implements PubSub with Redis PUBLISH/SUBSCRIBE.
type RedisPubSub struct {
	client *redis.Client
	mu     sync.Mutex
	subs   map[string]*redisSubscription
}

// NewRedisPubSub dials Redis and fails fast when it is unreachable.
func NewRedisPubSub(cfg RedisConfig) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisPubSub{
		client: client,
		subs:   make(map[string]*redisSubscription),
	}, nil
}

// Publish sends the JSON-encoded event on channel.
func (r *RedisPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe waits for the SUBSCRIBE confirmation before returning, so events
// published after it returns are not missed.
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.subs[channel]; ok {
		prev.cancel()
		prev.ps.Close()
		delete(r.subs, channel)
	}

	ps := r.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	r.subs[channel] = &redisSubscription{ps: ps, cancel: cancel}

	out := make(chan *Event, subscriberBuffer)
	go r.forward(subCtx, channel, ps.Channel(), out)

	return out, nil
}

func (r *RedisPubSub) forward(ctx context.Context, channel string, in <-chan *redis.Message, out chan<- *Event) {
	defer close(out)

	logger := channelLogger("redis", channel)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			if !push(ctx, logger, out, []byte(msg.Payload)) {
				return
			}
		}
	}
}

// Unsubscribe closes the subscription for channel.
func (r *RedisPubSub) Unsubscribe(_ context.Context, channel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[channel]
	if !ok {
		return nil
	}
	delete(r.subs, channel)
	sub.cancel()
	return sub.ps.Close()
}

// Close drops every subscription and the client.
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	for channel, sub := range r.subs {
		sub.cancel()
		sub.ps.Close()
		delete(r.subs, channel)
	}
	r.mu.Unlock()

	return r.client.Close()
}
