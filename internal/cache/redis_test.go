// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMiniRedis creates a test Redis server using miniredis.
func setupMiniRedis(t *testing.T) *RedisCache {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return &RedisCache{
		client: client,
		logger: zerolog.Nop(),
	}
}

func TestRedisCache_SetGet(t *testing.T) {
	ctx := context.Background()
	cache := setupMiniRedis(t)

	cache.Set(ctx, "panelapp:green:137", []byte(`{"id":137,"name":"Mendeliome"}`), 5*time.Minute)

	val, found := cache.Get(ctx, "panelapp:green:137")
	require.True(t, found, "expected cached panel payload")
	assert.Equal(t, `{"id":137,"name":"Mendeliome"}`, string(val))

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestRedisCache_GetMissing(t *testing.T) {
	ctx := context.Background()
	cache := setupMiniRedis(t)

	val, found := cache.Get(ctx, "nonexistent")
	assert.False(t, found)
	assert.Nil(t, val)

	assert.Equal(t, int64(1), cache.Stats().Misses)
}

func TestRedisCache_TTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := &RedisCache{client: client, logger: zerolog.Nop()}

	cache.Set(ctx, "ttl-key", []byte("ttl-value"), 100*time.Millisecond)

	_, found := cache.Get(ctx, "ttl-key")
	require.True(t, found, "expected value before expiry")

	// Fast-forward time in miniredis
	mr.FastForward(200 * time.Millisecond)

	_, found = cache.Get(ctx, "ttl-key")
	assert.False(t, found, "expected value to be expired")
}

func TestRedisCache_Delete(t *testing.T) {
	ctx := context.Background()
	cache := setupMiniRedis(t)

	cache.Set(ctx, "delete-key", []byte("delete-value"), 5*time.Minute)

	_, found := cache.Get(ctx, "delete-key")
	require.True(t, found)

	cache.Delete(ctx, "delete-key")

	_, found = cache.Get(ctx, "delete-key")
	assert.False(t, found, "expected key to be deleted")
}

func TestRedisCache_Clear(t *testing.T) {
	ctx := context.Background()
	cache := setupMiniRedis(t)

	cache.Set(ctx, "key1", []byte("value1"), 5*time.Minute)
	cache.Set(ctx, "key2", []byte("value2"), 5*time.Minute)

	cache.Clear(ctx)

	_, found := cache.Get(ctx, "key1")
	assert.False(t, found)
	assert.Equal(t, 0, cache.Stats().CurrentSize)
}

func TestRedisCache_HealthCheck(t *testing.T) {
	cache := setupMiniRedis(t)
	assert.NoError(t, cache.HealthCheck(context.Background()))
}
