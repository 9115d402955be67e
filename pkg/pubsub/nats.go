package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
)

// channelToSubject maps "public:posts" to "campus.public.posts".
func channelToSubject(channel string) string {
	return "campus." + strings.ReplaceAll(channel, ":", ".")
}

type natsSubscription struct {
	sub    *nats.Subscription
	cancel context.CancelFunc
}

// NATSPubSub implements PubSub on NATS core subjects.
type NATSPubSub struct {
	conn          *nats.Conn
	subscriptions map[string]*natsSubscription
	mu            sync.Mutex
}

// NewNATSPubSub connects to the configured NATS server.
func NewNATSPubSub(cfg NATSConfig) (*NATSPubSub, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name(cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return &NATSPubSub{
		conn:          nc,
		subscriptions: make(map[string]*natsSubscription),
	}, nil
}

// Publish publishes event on the channel's subject.
func (n *NATSPubSub) Publish(_ context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return n.conn.Publish(channelToSubject(channel), data)
}

// Subscribe subscribes to the channel's subject.
func (n *NATSPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if existing, ok := n.subscriptions[channel]; ok {
		existing.cancel()
		delete(n.subscriptions, channel)
	}

	subCtx, cancel := context.WithCancel(ctx)
	msgCh := make(chan *nats.Msg, subscriberBuffer)
	sub, err := n.conn.ChanSubscribe(channelToSubject(channel), msgCh)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	n.subscriptions[channel] = &natsSubscription{sub: sub, cancel: cancel}

	eventCh := make(chan *Event, subscriberBuffer)
	go n.forward(subCtx, channel, sub, msgCh, eventCh)

	return eventCh, nil
}

func (n *NATSPubSub) forward(ctx context.Context, channel string, sub *nats.Subscription, msgCh <-chan *nats.Msg, eventCh chan<- *Event) {
	defer close(eventCh)
	defer sub.Unsubscribe()

	logger := channelLogger("nats", channel)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-msgCh:
			if !push(ctx, logger, eventCh, msg.Data) {
				return
			}
		}
	}
}

// Unsubscribe drops the subscription for channel.
func (n *NATSPubSub) Unsubscribe(_ context.Context, channel string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if sub, ok := n.subscriptions[channel]; ok {
		sub.cancel()
		delete(n.subscriptions, channel)
	}
	return nil
}

// Close drains the connection.
func (n *NATSPubSub) Close() error {
	n.mu.Lock()
	for key, sub := range n.subscriptions {
		sub.cancel()
		delete(n.subscriptions, key)
	}
	n.mu.Unlock()

	return n.conn.Drain()
}
