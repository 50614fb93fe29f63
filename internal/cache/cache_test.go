// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0) // No cleanup for this test

	cache.Set(ctx, "panelapp:green:137", []byte(`{"id":137}`), 5*time.Minute)

	val, ok := cache.Get(ctx, "panelapp:green:137")
	require.True(t, ok, "expected to find cached panel")
	assert.Equal(t, `{"id":137}`, string(val))

	_, ok = cache.Get(ctx, "panelapp:green:999")
	assert.False(t, ok, "expected not to find uncached panel")
}

func TestMemoryCache_Expiration(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0)

	cache.Set(ctx, "shortlived", []byte("value"), 50*time.Millisecond)

	val, ok := cache.Get(ctx, "shortlived")
	require.True(t, ok)
	assert.Equal(t, "value", string(val))

	time.Sleep(100 * time.Millisecond)

	_, ok = cache.Get(ctx, "shortlived")
	assert.False(t, ok, "expected key to be expired")
}

func TestMemoryCache_Delete(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0)

	cache.Set(ctx, "key1", []byte("value1"), 5*time.Minute)

	_, ok := cache.Get(ctx, "key1")
	require.True(t, ok)

	cache.Delete(ctx, "key1")

	_, ok = cache.Get(ctx, "key1")
	assert.False(t, ok, "expected key to be deleted")
}

func TestMemoryCache_Clear(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0)

	cache.Set(ctx, "key1", []byte("value1"), 5*time.Minute)
	cache.Set(ctx, "key2", []byte("value2"), 5*time.Minute)

	cache.Clear(ctx)

	_, ok := cache.Get(ctx, "key1")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "key2")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Stats().CurrentSize)
}

func TestMemoryCache_Stats(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0)

	cache.Set(ctx, "key1", []byte("value1"), 5*time.Minute)
	cache.Get(ctx, "key1")
	cache.Get(ctx, "missing")

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestMemoryCache_Janitor(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(20 * time.Millisecond)
	defer cache.(*memoryCache).Stop()

	cache.Set(ctx, "doomed", []byte("value"), 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return cache.Stats().CurrentSize == 0
	}, time.Second, 10*time.Millisecond, "janitor should evict the expired entry")
	assert.GreaterOrEqual(t, cache.Stats().Evictions, int64(1))
}

func TestNoOpCache(t *testing.T) {
	ctx := context.Background()
	cache := NewNoOpCache()

	cache.Set(ctx, "key", []byte("value"), time.Minute)
	_, ok := cache.Get(ctx, "key")
	assert.False(t, ok, "noop cache should never hit")
	assert.Equal(t, CacheStats{}, cache.Stats())
}
