package config

import (
	"fmt"
	"time"

	"github.com/campusconnect/campus/internal/chat"
	"github.com/campusconnect/campus/internal/hub"
	pkgconfig "github.com/campusconnect/campus/pkg/config"
	"github.com/campusconnect/campus/pkg/database"
	"github.com/campusconnect/campus/pkg/log"
	"github.com/campusconnect/campus/pkg/pubsub"
	"github.com/campusconnect/campus/pkg/storage"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	JWT       JWTConfig
	PubSub    pubsub.Config  `mapstructure:"pubsub"`
	Storage   storage.Config `mapstructure:"storage"`
	Assistant AssistantConfig
	Chat      chat.StoreConfig `mapstructure:"chat"`
	Feed      FeedConfig
	Avatar    AvatarConfig
	IDs       IDsConfig  `mapstructure:"ids"`
	WebSocket hub.Config `mapstructure:"websocket"`
	Log       log.Config
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// ToDatabaseConfig converts to the pkg/database configuration.
func (c DatabaseConfig) ToDatabaseConfig() *database.Config {
	return &database.Config{
		Driver:          c.Driver,
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		DBName:          c.DBName,
		SSLMode:         c.SSLMode,
		FilePath:        c.FilePath,
		MaxIdleConns:    c.MaxIdleConns,
		MaxOpenConns:    c.MaxOpenConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		LogLevel:        c.LogLevel,
	}
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig selects the profile cache; driver "none" disables it.
type CacheConfig struct {
	Driver string        `mapstructure:"driver"`
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type JWTConfig struct {
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration"`
	Issuer               string        `mapstructure:"issuer"`
	PrivateKeyPEM        string        `mapstructure:"private_key_pem"`
	// Revocation is "memory" or "redis".
	Revocation string `mapstructure:"revocation"`
}

type AssistantConfig struct {
	Provider      string        `mapstructure:"provider"` // "openai", "gemini"
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	BaseURL       string        `mapstructure:"base_url"`
	FallbackDelay time.Duration `mapstructure:"fallback_delay"`
}

type FeedConfig struct {
	SeedThreads []string `mapstructure:"seed_threads"`
}

type AvatarConfig struct {
	Size      int   `mapstructure:"size"`
	Quality   int   `mapstructure:"quality"`
	MaxBytes  int64 `mapstructure:"max_bytes"`
	MaxPixels int64 `mapstructure:"max_pixels"`
}

type IDsConfig struct {
	Strategy string `mapstructure:"strategy"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.secure_cookies", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "campus")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/campus.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.driver", "none")
	v.SetDefault("cache.prefix", "campus:profile")
	v.SetDefault("cache.ttl", "30s")

	v.SetDefault("jwt.access_token_duration", "15m")
	v.SetDefault("jwt.refresh_token_duration", "168h")
	v.SetDefault("jwt.issuer", "campusconnect")
	v.SetDefault("jwt.private_key_pem", "")
	v.SetDefault("jwt.revocation", "memory")

	def := pubsub.DefaultConfig()
	v.SetDefault("pubsub.driver", def.Driver)
	v.SetDefault("pubsub.redis.address", def.Redis.Address)
	v.SetDefault("pubsub.redis.pool_size", def.Redis.PoolSize)
	v.SetDefault("pubsub.redis.read_timeout", def.Redis.ReadTimeout)
	v.SetDefault("pubsub.redis.write_timeout", def.Redis.WriteTimeout)
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.group_id", "campus")
	v.SetDefault("pubsub.kafka.partitions", 1)
	v.SetDefault("pubsub.nats.url", def.NATS.URL)
	v.SetDefault("pubsub.nats.name", def.NATS.Name)
	v.SetDefault("pubsub.postgres.dsn", "")

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.public_prefix", "/media")
	v.SetDefault("storage.local.base_path", "./data/media")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.bucket", "campus-media")
	v.SetDefault("storage.s3.use_path_style", true)

	v.SetDefault("assistant.provider", "openai")
	v.SetDefault("assistant.api_key", "")
	v.SetDefault("assistant.model", "gpt-3.5-turbo")
	v.SetDefault("assistant.base_url", "https://api.openai.com/v1")
	v.SetDefault("assistant.fallback_delay", "1s")

	v.SetDefault("chat.idle_timeout", chat.DefaultIdleTimeout)
	v.SetDefault("chat.max_per_owner", chat.DefaultMaxPerOwner)

	v.SetDefault("feed.seed_threads", []string{"Academics", "Campus Events", "General", "Housing"})

	v.SetDefault("avatar.size", 256)
	v.SetDefault("avatar.quality", 85)
	v.SetDefault("avatar.max_bytes", 5<<20)
	v.SetDefault("avatar.max_pixels", 4096*4096)

	v.SetDefault("ids.strategy", "ulid")

	ws := hub.DefaultConfig()
	v.SetDefault("websocket.ping_interval", ws.PingInterval)
	v.SetDefault("websocket.pong_wait", ws.PongWait)
	v.SetDefault("websocket.write_wait", ws.WriteWait)
	v.SetDefault("websocket.max_message_size", ws.MaxMessageSize)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "campus")

	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("pubsub.driver", "PUBSUB_DRIVER")
	v.BindEnv("pubsub.redis.address", "REDIS_ADDRESS")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("pubsub.nats.url", "NATS_URL")
	v.BindEnv("pubsub.postgres.dsn", "PUBSUB_POSTGRES_DSN")
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.s3.bucket", "S3_BUCKET")
	v.BindEnv("storage.s3.access_key_id", "S3_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("storage.s3.public_url", "S3_PUBLIC_URL")
	v.BindEnv("jwt.private_key_pem", "JWT_PRIVATE_KEY")
	v.BindEnv("assistant.provider", "AI_PROVIDER")
	v.BindEnv("assistant.api_key", "AI_API_KEY", "VITE_AI_API_KEY")
	v.BindEnv("assistant.model", "AI_MODEL")
	v.BindEnv("assistant.base_url", "AI_BASE_URL")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.PubSub.Driver == "postgres" && cfg.PubSub.Postgres.DSN == "" {
		cfg.PubSub.Postgres.DSN = cfg.Database.ToDatabaseConfig().PostgresDSN()
	}
	if cfg.Assistant.FallbackDelay <= 0 {
		return nil, fmt.Errorf("assistant.fallback_delay must be positive, got %s", cfg.Assistant.FallbackDelay)
	}

	return &cfg, nil
}
