// Package avatar normalises uploaded profile pictures and stores them.
package avatar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/campusconnect/campus/pkg/log"
	"github.com/campusconnect/campus/pkg/storage"
)

var (
	ErrInvalidImage = errors.New("invalid image")
	ErrTooLarge     = errors.New("image too large")
)

const (
	DefaultSize     = 256
	DefaultQuality  = 85
	DefaultMaxBytes = 5 << 20
	// DefaultMaxPixels bounds the decoded size of an upload (4096x4096).
	DefaultMaxPixels = 4096 * 4096
)

// Config controls the output variant.
type Config struct {
	Size      int
	Quality   int
	MaxBytes  int64
	MaxPixels int64
}

// Processor crops uploads to a centred square, resizes them and writes a JPEG
// to the object store.
type Processor struct {
	store     storage.Storage
	size      int
	quality   int
	maxBytes  int64
	maxPixels int64
}

// NewProcessor creates a processor writing to store. Zero config fields take
// their defaults.
func NewProcessor(store storage.Storage, cfg Config) *Processor {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultQuality
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = DefaultMaxPixels
	}
	return &Processor{
		store:     store,
		size:      cfg.Size,
		quality:   cfg.Quality,
		maxBytes:  cfg.MaxBytes,
		maxPixels: cfg.MaxPixels,
	}
}

// Key is the object key of an avatar upload.
func Key(userID, uploadID string) string {
	return fmt.Sprintf("avatars/%s/%s.jpg", userID, uploadID)
}

// Process decodes r, stores the normalised avatar under Key(userID, uploadID)
// and returns its public URL.
func (p *Processor) Process(ctx context.Context, userID, uploadID string, r io.Reader) (string, error) {
	l := log.Ctx(ctx)

	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > p.maxBytes {
		return "", ErrTooLarge
	}

	// Dimensions come from the header; nothing is decoded past the cap.
	hdr, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if hdr.Width <= 0 || hdr.Height <= 0 {
		return "", ErrInvalidImage
	}
	if int64(hdr.Width)*int64(hdr.Height) > p.maxPixels {
		l.Warn().Str(log.FieldUserID, userID).Int("width", hdr.Width).Int("height", hdr.Height).Msg("rejected oversized avatar")
		return "", fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, hdr.Width, hdr.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	resized := imaging.Fill(img, p.size, p.size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return "", fmt.Errorf("encode avatar: %w", err)
	}

	key := Key(userID, uploadID)
	if err := p.store.Write(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "image/jpeg"); err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}

	l.Info().Str(log.FieldUserID, userID).Str("key", key).Int("size", p.size).Msg("stored avatar")
	return p.store.URL(key), nil
}

// Discard deletes a previous avatar of userID. URLs that do not point at one
// of the user's stored avatars are left alone.
func (p *Processor) Discard(ctx context.Context, userID, url string) error {
	base := p.store.URL("")
	if url == "" || !strings.HasPrefix(url, base) {
		return nil
	}
	key := strings.TrimPrefix(url, base)
	if !strings.HasPrefix(key, "avatars/"+userID+"/") {
		return nil
	}
	return p.store.Delete(ctx, key)
}
