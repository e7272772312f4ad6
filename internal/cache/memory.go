package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry[V any] struct {
	value     V
	expiresAt time.Time // zero value = never expires
}

func (e memoryEntry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is an in-memory cache with TTL-based expiration. A background
// janitor removes stale entries; expired entries are also dropped lazily
// on read so correctness never depends on janitor timing.
type Memory[V any] struct {
	mu     sync.Mutex
	items  map[string]memoryEntry[V]
	done   chan struct{}
	closed bool
}

// NewMemory creates a new in-memory cache. The janitor runs once a minute;
// Close stops it.
func NewMemory[V any]() *Memory[V] {
	m := &Memory[V]{
		items: make(map[string]memoryEntry[V]),
		done:  make(chan struct{}),
	}
	go m.janitor(time.Minute)
	return m
}

// Get retrieves a value by key.
// Returns ErrNotFound if the key does not exist or has expired.
func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok || e.expired(time.Now()) {
		delete(m.items, key)
		var zero V
		return zero, ErrNotFound
	}
	return e.value, nil
}

// Set stores a value with the given TTL. Zero or negative TTL stores the
// value without expiry.
func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	m.items[key] = memoryEntry[V]{value: value, expiresAt: expiresAt}
	return nil
}

// Delete removes a key from the cache.
func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.items, key)
	return nil
}

// Close stops the janitor goroutine. Close is idempotent.
func (m *Memory[V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	return nil
}

func (m *Memory[V]) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for key, e := range m.items {
				if e.expired(now) {
					delete(m.items, key)
				}
			}
			m.mu.Unlock()
		}
	}
}

var _ Cache[any] = (*Memory[any])(nil)
