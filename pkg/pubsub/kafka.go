package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"

	"github.com/campusconnect/campus/pkg/log"
)

var invalidTopicChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// channelToTopic maps "public:posts" to "public-posts".
func channelToTopic(channel string) string {
	return invalidTopicChars.ReplaceAllString(strings.ReplaceAll(channel, ":", "-"), "_")
}

const kafkaPollMs = 500

// kafkaConsumer is owned by its poll goroutine, which closes it on exit.
type kafkaConsumer struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (c *kafkaConsumer) stop() {
	c.cancel()
	<-c.done
}

// KafkaPubSub implements PubSub on Kafka topics. Each process joins its own
// consumer group per topic, so every instance sees every event.
type KafkaPubSub struct {
	cfg       KafkaConfig
	producer  *kafka.Producer
	member    string
	reports   chan struct{}
	mu        sync.Mutex
	consumers map[string]*kafkaConsumer
}

// NewKafkaPubSub creates the producer and makes sure the bus topics exist.
func NewKafkaPubSub(cfg KafkaConfig) (*KafkaPubSub, error) {
	if cfg.GroupID == "" {
		cfg.GroupID = "campus"
	}
	if cfg.Partitions <= 0 {
		cfg.Partitions = 1
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	k := &KafkaPubSub{
		cfg:       cfg,
		producer:  producer,
		member:    uuid.NewString(),
		reports:   make(chan struct{}),
		consumers: make(map[string]*kafkaConsumer),
	}
	go k.watchReports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := k.createTopics(ctx, ChannelPosts, ChannelAuth); err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("kafka topics not created")
	}

	return k, nil
}

func (k *KafkaPubSub) createTopics(ctx context.Context, channels ...string) error {
	admin, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return err
	}
	defer admin.Close()

	specs := make([]kafka.TopicSpecification, len(channels))
	for i, ch := range channels {
		specs[i] = kafka.TopicSpecification{
			Topic:             channelToTopic(ch),
			NumPartitions:     k.cfg.Partitions,
			ReplicationFactor: 1,
		}
	}

	results, err := admin.CreateTopics(ctx, specs)
	if err != nil {
		return err
	}
	for _, r := range results {
		switch r.Error.Code() {
		case kafka.ErrNoError, kafka.ErrTopicAlreadyExists:
		default:
			return fmt.Errorf("topic %s: %s", r.Topic, r.Error.String())
		}
	}
	return nil
}

// watchReports logs failed deliveries until the producer is closed.
func (k *KafkaPubSub) watchReports() {
	defer close(k.reports)
	for e := range k.producer.Events() {
		m, ok := e.(*kafka.Message)
		if !ok || m.TopicPartition.Error == nil {
			continue
		}
		l := log.L()
		l.Error().Err(m.TopicPartition.Error).Str("topic", *m.TopicPartition.Topic).Msg("kafka delivery failed")
	}
}

// Publish enqueues event on the channel's topic, keyed by event.Key.
func (k *KafkaPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := channelToTopic(channel)
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.Key),
		Value:          data,
	}
	if err := k.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", topic, err)
	}
	return nil
}

// Subscribe starts a consumer reading the channel's topic from the latest
// offset. A second Subscribe on the same channel replaces the first.
func (k *KafkaPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if prev, ok := k.consumers[channel]; ok {
		prev.stop()
		delete(k.consumers, channel)
	}

	topic := channelToTopic(channel)
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  k.cfg.Brokers,
		"group.id":           fmt.Sprintf("%s-%s-%s", k.cfg.GroupID, topic, k.member),
		"auto.offset.reset":  "latest",
		"enable.auto.commit": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	if err := consumer.Subscribe(topic, nil); err != nil {
		consumer.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	kc := &kafkaConsumer{cancel: cancel, done: make(chan struct{})}
	k.consumers[channel] = kc

	out := make(chan *Event, subscriberBuffer)
	go k.poll(subCtx, channel, consumer, kc.done, out)

	return out, nil
}

func (k *KafkaPubSub) poll(ctx context.Context, channel string, consumer *kafka.Consumer, done chan<- struct{}, out chan<- *Event) {
	defer close(done)
	defer close(out)
	defer consumer.Close()

	logger := channelLogger("kafka", channel)

	for ctx.Err() == nil {
		switch e := consumer.Poll(kafkaPollMs).(type) {
		case *kafka.Message:
			if !push(ctx, logger, out, e.Value) {
				return
			}
		case kafka.Error:
			logger.Error().Err(e).Bool("fatal", e.IsFatal()).Msg("kafka consumer error")
			if e.IsFatal() {
				return
			}
		}
	}
}

// Unsubscribe stops the consumer for channel and waits for it to close.
func (k *KafkaPubSub) Unsubscribe(_ context.Context, channel string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if kc, ok := k.consumers[channel]; ok {
		kc.stop()
		delete(k.consumers, channel)
	}
	return nil
}

// Close stops every consumer, flushes pending messages and closes the
// producer.
func (k *KafkaPubSub) Close() error {
	k.mu.Lock()
	for channel, kc := range k.consumers {
		kc.stop()
		delete(k.consumers, channel)
	}
	k.mu.Unlock()

	if left := k.producer.Flush(5000); left > 0 {
		l := log.L()
		l.Warn().Int("pending", left).Msg("kafka producer closed with undelivered messages")
	}
	k.producer.Close()
	<-k.reports
	return nil
}
