package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgSubscription struct {
	conn   *pgx.Conn
	cancel context.CancelFunc
}

// PostgresPubSub implements PubSub with LISTEN/NOTIFY. Each subscription
// holds a dedicated connection.
type PostgresPubSub struct {
	dsn           string
	pool          *pgxpool.Pool
	subscriptions map[string]*pgSubscription
	mu            sync.Mutex
}

// NewPostgresPubSub connects a publish pool to the database.
func NewPostgresPubSub(cfg PostgresConfig) (*PostgresPubSub, error) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresPubSub{
		dsn:           cfg.DSN,
		pool:          pool,
		subscriptions: make(map[string]*pgSubscription),
	}, nil
}

// Publish sends event through pg_notify.
func (p *PostgresPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := p.pool.Exec(ctx, "SELECT pg_notify($1, $2)", channel, string(data)); err != nil {
		return fmt.Errorf("failed to notify %s: %w", channel, err)
	}
	return nil
}

// Subscribe issues LISTEN on a dedicated connection.
func (p *PostgresPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.subscriptions[channel]; ok {
		existing.cancel()
		delete(p.subscriptions, channel)
	}

	conn, err := pgx.Connect(ctx, p.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		conn.Close(context.Background())
		return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	p.subscriptions[channel] = &pgSubscription{conn: conn, cancel: cancel}

	eventCh := make(chan *Event, subscriberBuffer)
	go p.listen(subCtx, channel, conn, eventCh)

	return eventCh, nil
}

func (p *PostgresPubSub) listen(ctx context.Context, channel string, conn *pgx.Conn, eventCh chan<- *Event) {
	defer close(eventCh)
	defer conn.Close(context.Background())

	logger := channelLogger("postgres", channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("listen failed")
			}
			return
		}
		if !push(ctx, logger, eventCh, []byte(n.Payload)) {
			return
		}
	}
}

// Unsubscribe stops listening on channel.
func (p *PostgresPubSub) Unsubscribe(_ context.Context, channel string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if sub, ok := p.subscriptions[channel]; ok {
		sub.cancel()
		delete(p.subscriptions, channel)
	}
	return nil
}

// Close stops all listeners and the publish pool.
func (p *PostgresPubSub) Close() error {
	p.mu.Lock()
	for key, sub := range p.subscriptions {
		sub.cancel()
		delete(p.subscriptions, key)
	}
	p.mu.Unlock()

	p.pool.Close()
	return nil
}
