package pubsub

import (
	"fmt"
	"time"
)

// KafkaConfig holds Kafka-specific configuration.
type KafkaConfig struct {
	Brokers    string `mapstructure:"brokers"`
	GroupID    string `mapstructure:"group_id"`
	Partitions int    `mapstructure:"partitions"`
}

// RedisConfig holds Redis-specific configuration.
type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// NATSConfig holds NATS-specific configuration.
type NATSConfig struct {
	URL  string `mapstructure:"url"`
	Name string `mapstructure:"name"`
}

// PostgresConfig holds LISTEN/NOTIFY configuration.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Config holds the configuration for the pub/sub system.
type Config struct {
	Driver   string         `mapstructure:"driver"` // "memory", "redis", "kafka", "nats", "postgres"
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Driver: "memory",
		Redis: RedisConfig{
			Address:      "localhost:6379",
			PoolSize:     10,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		NATS: NATSConfig{
			URL:  "nats://localhost:4222",
			Name: "campus",
		},
	}
}

// NewPubSub creates a new PubSub instance based on the configuration.
func NewPubSub(cfg Config) (PubSub, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryPubSub(), nil
	case "redis":
		return NewRedisPubSub(cfg.Redis)
	case "kafka":
		return NewKafkaPubSub(cfg.Kafka)
	case "nats":
		return NewNATSPubSub(cfg.NATS)
	case "postgres":
		return NewPostgresPubSub(cfg.Postgres)
	default:
		return nil, fmt.Errorf("unsupported pubsub driver: %s", cfg.Driver)
	}
}
