package storage

import (
	"context"
	"io"
)

// ObjectStorage archives import uploads and export artifacts. Implementations
// must be safe for concurrent use by HTTP handlers.
type ObjectStorage interface {
	// EnsureBucket verifies the configured bucket exists, creating it when
	// the backend allows. Called once at startup.
	EnsureBucket(ctx context.Context) error

	// Upload stores an artifact under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// URL returns the address where an uploaded artifact can be fetched.
	URL(key string) string
}
