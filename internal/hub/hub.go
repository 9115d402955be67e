package hub

import (
	"context"
	"sync"
	"time"

	"github.com/campusconnect/campus/internal/domain"
	"github.com/campusconnect/campus/pkg/log"
	"github.com/campusconnect/campus/pkg/pubsub"
)

// PostLister fetches the feed for a thread filter.
type PostLister interface {
	ListPosts(ctx context.Context, threadID *string) ([]*domain.Post, error)
}

// delivery queues data for one client. Refetch results carry the refetch
// sequence number; control replies carry zero.
type delivery struct {
	client *Client
	data   []byte
	seq    uint64
}

// Hub owns the bus subscriptions and fans post changes out to registered
// feed clients. Every INSERT triggers a full refetch per client using that
// client's current filter.
type Hub struct {
	lister     PostLister
	subscriber pubsub.Subscriber

	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	done       chan struct{}

	refetchTimeout time.Duration

	mu sync.RWMutex
}

// NewHub creates a hub reading posts through lister and events from
// subscriber. Call Run to start it.
func NewHub(lister PostLister, subscriber pubsub.Subscriber) *Hub {
	return &Hub{
		lister:         lister,
		subscriber:     subscriber,
		clients:        make(map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		deliver:        make(chan delivery, 256),
		done:           make(chan struct{}),
		refetchTimeout: 10 * time.Second,
	}
}

// Run subscribes to the post and auth channels and serves the hub until ctx
// is done.
func (h *Hub) Run(ctx context.Context) error {
	posts, err := h.subscriber.Subscribe(ctx, pubsub.ChannelPosts)
	if err != nil {
		return err
	}
	auth, err := h.subscriber.Subscribe(ctx, pubsub.ChannelAuth)
	if err != nil {
		return err
	}

	go h.loop(ctx, posts, auth)
	return nil
}

func (h *Hub) loop(ctx context.Context, posts, auth <-chan *pubsub.Event) {
	l := log.L()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			l.Debug().Str("client_id", client.ID).Str(log.FieldUserID, client.UserID).Msg("feed client registered")
			h.Refetch(client)

		case client := <-h.unregister:
			h.remove(client)
			l.Debug().Str("client_id", client.ID).Msg("feed client unregistered")

		case d := <-h.deliver:
			h.mu.RLock()
			_, ok := h.clients[d.client.ID]
			h.mu.RUnlock()
			if !ok {
				continue
			}
			if d.seq != 0 {
				if d.seq < d.client.delivered {
					continue
				}
				d.client.delivered = d.seq
			}
			select {
			case d.client.send <- d.data:
			default:
				l.Warn().Str("client_id", d.client.ID).Msg("feed client too slow, dropping")
				h.remove(d.client)
			}

		case ev, ok := <-posts:
			if !ok {
				posts = nil
				continue
			}
			if ev.Type != pubsub.EventInsert {
				continue
			}
			h.mu.RLock()
			for _, client := range h.clients {
				h.Refetch(client)
			}
			h.mu.RUnlock()

		case ev, ok := <-auth:
			if !ok {
				auth = nil
				continue
			}
			if ev.Type != pubsub.EventSignedOut {
				continue
			}
			var payload pubsub.AuthStatePayload
			if err := ev.UnmarshalPayload(&payload); err != nil {
				l.Warn().Err(err).Msg("invalid auth state payload")
				continue
			}
			h.closeSession(payload.SessionID)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.send)
	}
}

func (h *Hub) closeSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		if client.SessionID == sessionID {
			delete(h.clients, id)
			close(client.send)
		}
	}
}

// Register adds client and pushes its initial feed.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes client; safe to call more than once.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Refetch loads the client's current filter and queues the result for it.
// A result that finishes after a later refetch of the same client is
// dropped. Errors are logged; the client keeps its previous listing.
func (h *Hub) Refetch(client *Client) {
	threadID, seq := client.nextRefetch()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.refetchTimeout)
		defer cancel()

		posts, err := h.lister.ListPosts(ctx, threadID)
		if err != nil {
			l := log.L()
			l.Error().Err(err).Str("client_id", client.ID).Msg("feed refetch failed")
			return
		}
		h.queue(delivery{
			client: client,
			data:   encode(PostsMessage{Type: MsgTypePosts, ThreadID: threadID, Posts: posts}),
			seq:    seq,
		})
	}()
}

func (h *Hub) deliverTo(client *Client, data []byte) {
	h.queue(delivery{client: client, data: data})
}

func (h *Hub) queue(d delivery) {
	select {
	case h.deliver <- d:
	case <-h.done:
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
