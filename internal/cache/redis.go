package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a cache backed by Redis. Values are serialized as JSON and stored
// under prefixed keys with a store-level TTL, so stale entries self-evict
// without any cleanup pass on our side.
type Redis[V any] struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis creates a new Redis-backed cache. All keys are namespaced with
// prefix to keep distinct cache users from colliding in a shared instance.
func NewRedis[V any](client redis.UniversalClient, prefix string) *Redis[V] {
	return &Redis[V]{client: client, prefix: prefix}
}

// Get retrieves a value by key.
// Returns ErrNotFound if the key does not exist or has expired server-side.
func (r *Redis[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V

	data, err := r.client.Get(ctx, r.prefixedKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, ErrNotFound
		}
		return zero, err
	}

	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, err
	}
	return v, nil
}

// Set stores a value with the given TTL. Zero or negative TTL stores the
// value without expiry (Redis treats 0 as no expiration).
func (r *Redis[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefixedKey(key), data, max(ttl, 0)).Err()
}

// Delete removes a key from Redis.
func (r *Redis[V]) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefixedKey(key)).Err()
}

// Close is a no-op: the Redis client lifecycle is managed by the caller.
func (r *Redis[V]) Close() error {
	return nil
}

func (r *Redis[V]) prefixedKey(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

var _ Cache[any] = (*Redis[any])(nil)
