package cache

import (
	"context"
	"time"
)

// Cache stores opaque blobs by key and offers a single-owner lock primitive.
// Per-key writes are atomic; no multi-key transaction is provided.
type Cache interface {
	// Get returns ErrMiss when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// AcquireLock sets key to token only if the key is absent. The lock
	// expires after ttl.
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// ReleaseLock deletes key only while it still holds token.
	ReleaseLock(ctx context.Context, key, token string) (bool, error)
	Close() error
}
