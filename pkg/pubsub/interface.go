package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusconnect/campus/pkg/log"
)

// Event represents a message published to the event bus.
type Event struct {
	Type      string          `json:"type"`
	Key       string          `json:"key,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType, key string, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Key:       key,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// UnmarshalPayload unmarshals the event payload into the given struct.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// Publisher publishes events to the event bus.
type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
}

// Subscriber subscribes to events from the event bus. The returned channel is
// closed when ctx is done or the subscription is dropped.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan *Event, error)
	Unsubscribe(ctx context.Context, channel string) error
}

// PubSub combines Publisher and Subscriber interfaces.
type PubSub interface {
	Publisher
	Subscriber
	Close() error
}

const subscriberBuffer = 100

// push decodes one wire payload and offers it to out. Undecodable payloads
// and events for a full subscriber are logged and dropped. It reports false
// once ctx is done.
func push(ctx context.Context, logger zerolog.Logger, out chan<- *Event, data []byte) bool {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		logger.Warn().Err(err).Msg("dropping undecodable event")
		return ctx.Err() == nil
	}

	select {
	case out <- &event:
	case <-ctx.Done():
		return false
	default:
		logger.Warn().Str("event", event.Type).Msg("subscriber full, dropping event")
	}
	return true
}

func channelLogger(driver, channel string) zerolog.Logger {
	return log.L().With().Str("driver", driver).Str(log.FieldChannel, channel).Logger()
}
