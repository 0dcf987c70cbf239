package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	// ErrObjectNotFound is returned when a requested object does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidKey is returned for empty, absolute or traversing keys.
	ErrInvalidKey = errors.New("invalid object key")
)

// BlobStorage stores binary artifacts of a test run: hint image uploads
// and per-turn screenshots.
type BlobStorage interface {
	// Upload stores the reader's content under the given key.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// Download opens the object stored under the given key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object stored under the given key.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored under the given key.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns an externally usable location for the object. Local
	// storage returns a filesystem path, S3 a presigned URL.
	GetURL(ctx context.Context, key string) (string, error)
}

// Config selects and configures a storage backend.
type Config struct {
	// Type is "local" or "s3".
	Type string

	// BaseDir is the root directory for local storage.
	BaseDir string

	// Bucket and Region configure S3 storage.
	Bucket string
	Region string

	// PresignExpiry bounds S3 presigned URL validity. Zero keeps the
	// default of 15 minutes.
	PresignExpiry time.Duration
}

// New creates a BlobStorage from configuration.
func New(cfg Config) (BlobStorage, error) {
	switch strings.ToLower(cfg.Type) {
	case "local":
		if cfg.BaseDir == "" {
			return nil, fmt.Errorf("base directory is required for local storage")
		}
		return NewLocalStorage(cfg.BaseDir)

	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("bucket is required for s3 storage")
		}
		if cfg.Region == "" {
			return nil, fmt.Errorf("region is required for s3 storage")
		}
		s3Storage, err := NewS3Storage(cfg.Bucket, cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		if cfg.PresignExpiry > 0 {
			s3Storage.presignExpiry = cfg.PresignExpiry
		}
		return s3Storage, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %q", cfg.Type)
	}
}

// ScreenshotKey is the canonical key for the n-th screenshot captured
// during a scenario run.
func ScreenshotKey(scenarioID string, seq int) string {
	return fmt.Sprintf("runs/%s/%04d.png", scenarioID, seq)
}

// HintImageKey is the canonical key for a scenario's uploaded hint
// image at the given position.
func HintImageKey(scenarioID string, position int, fileName string) string {
	return fmt.Sprintf("hints/%s/%02d_%s", scenarioID, position, fileName)
}
