// Package objectstore holds the byte side of the document store: an
// S3-compatible bucket in production, a local directory for development.
package objectstore

import (
	"context"
	"io"
	"time"
)

// Store writes and serves objects under keys within a single bucket.
type Store interface {
	Bucket() string
	// Put writes body under key, overwriting an existing object.
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a URL granting read access to key for ttl.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}
