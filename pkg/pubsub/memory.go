package pubsub

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by operations on a closed bus.
var ErrClosed = errors.New("pubsub closed")

type memorySub struct {
	ch     chan *Event
	cancel context.CancelFunc
	once   sync.Once
}

func (s *memorySub) close() {
	s.once.Do(func() {
		s.cancel()
		close(s.ch)
	})
}

// MemoryPubSub is an in-process bus for single-instance deployments and
// tests.
type MemoryPubSub struct {
	mu     sync.RWMutex
	subs   map[string][]*memorySub
	closed bool
}

// NewMemoryPubSub creates an empty in-process bus.
func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{subs: make(map[string][]*memorySub)}
}

// Publish delivers event to every subscriber of channel. Slow subscribers
// drop the event rather than block the publisher.
func (m *MemoryPubSub) Publish(_ context.Context, channel string, event *Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	for _, sub := range m.subs[channel] {
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe registers a new subscriber on channel.
func (m *MemoryPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &memorySub{ch: make(chan *Event, subscriberBuffer), cancel: cancel}
	m.subs[channel] = append(m.subs[channel], sub)

	go func() {
		<-subCtx.Done()
		m.remove(channel, sub)
	}()

	return sub.ch, nil
}

func (m *MemoryPubSub) remove(channel string, target *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := m.subs[channel]
	for i, sub := range subs {
		if sub == target {
			m.subs[channel] = append(subs[:i], subs[i+1:]...)
			sub.close()
			break
		}
	}
	if len(m.subs[channel]) == 0 {
		delete(m.subs, channel)
	}
}

// Unsubscribe drops every subscriber of channel.
func (m *MemoryPubSub) Unsubscribe(_ context.Context, channel string) error {
	m.mu.Lock()
	subs := m.subs[channel]
	delete(m.subs, channel)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	return nil
}

// Close drops all subscribers.
func (m *MemoryPubSub) Close() error {
	m.mu.Lock()
	all := m.subs
	m.subs = make(map[string][]*memorySub)
	m.closed = true
	m.mu.Unlock()

	for _, subs := range all {
		for _, sub := range subs {
			sub.close()
		}
	}
	return nil
}
