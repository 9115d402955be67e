package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("object not found")

// Storage defines the interface for file storage operations.
type Storage interface {
	// Write stores content from the reader with the given key.
	// The size parameter is the expected content size (-1 if unknown).
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Read retrieves content for the given key.
	// The caller is responsible for closing the returned ReadCloser.
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	Delete(ctx context.Context, key string) error

	// Stat describes the object at key, or returns ErrNotFound.
	Stat(ctx context.Context, key string) (*ObjectInfo, error)

	// URL returns a stable URL a browser can load the object from.
	URL(key string) string
}

// ObjectInfo is what the media route needs to serve an object.
type ObjectInfo struct {
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Config selects and configures a storage driver.
type Config struct {
	Driver string `mapstructure:"driver"` // "local", "s3"
	// PublicPrefix is the path the application serves objects under when the
	// backend has no public URL of its own.
	PublicPrefix string      `mapstructure:"public_prefix"`
	Local        LocalConfig `mapstructure:"local"`
	S3           S3Config    `mapstructure:"s3"`
}

// New creates the configured storage.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStorage(cfg.Local, cfg.PublicPrefix)
	case "s3":
		return NewS3Storage(ctx, cfg.S3, cfg.PublicPrefix)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

func joinURL(prefix, key string) string {
	if prefix == "" {
		prefix = "/media"
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(key, "/")
}
