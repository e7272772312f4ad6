// Package cache provides the key/value store with per-entry expiry that backs
// the access-token cache. The Redis backend is the deployment store shared by
// all request handlers; the in-memory backend serves tests and single-process
// setups.
package cache

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for cache operations.
var (
	// ErrNotFound is returned when a key does not exist or has expired.
	ErrNotFound = errors.New("cache: entry not found")

	// ErrClosed is returned when an operation is attempted on a closed cache.
	ErrClosed = errors.New("cache: closed")
)

// Cache is a generic key-value store with TTL support.
//
// TTL semantics for Set: a positive duration expires the entry after that
// duration; zero or negative stores the entry without expiry.
type Cache[V any] interface {
	// Get retrieves a value by key.
	// Returns ErrNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) (V, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error

	// Delete removes a key from the cache.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the backend.
	Close() error
}
