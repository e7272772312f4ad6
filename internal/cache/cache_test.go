package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/szhangbiao/mailsend/internal/cache"
)

func TestMemory_GetSet(t *testing.T) {
	t.Parallel()

	c := cache.NewMemory[string]()
	defer c.Close()

	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	require.ErrorIs(t, err, cache.ErrNotFound)

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))
	got, err := c.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, "value", got)
}

func TestMemory_Expiry(t *testing.T) {
	t.Parallel()

	c := cache.NewMemory[int]()
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "short", 1, 10*time.Millisecond))

	time.Sleep(30 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestMemory_NoExpiryForZeroTTL(t *testing.T) {
	t.Parallel()

	c := cache.NewMemory[int]()
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "forever", 7, 0))

	got, err := c.Get(ctx, "forever")
	require.NoError(t, err)
	require.Equal(t, 7, got)
}

func TestMemory_Delete(t *testing.T) {
	t.Parallel()

	c := cache.NewMemory[string]()
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))
	require.NoError(t, c.Delete(ctx, "key"))

	_, err := c.Get(ctx, "key")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestMemory_Closed(t *testing.T) {
	t.Parallel()

	c := cache.NewMemory[string]()
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	err := c.Set(context.Background(), "key", "value", time.Minute)
	require.ErrorIs(t, err, cache.ErrClosed)
}

func TestMemory_SupersedesEntry(t *testing.T) {
	t.Parallel()

	c := cache.NewMemory[string]()
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "key", "old", time.Minute))
	require.NoError(t, c.Set(ctx, "key", "new", time.Minute))

	got, err := c.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, "new", got)
}
