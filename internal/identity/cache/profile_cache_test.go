package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/domain"
)

func setupCache(t *testing.T, ttl time.Duration) (*ProfileCache, *RedisStore, *miniredis.Miniredis) {
	m, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client)
	return NewProfileCache(store, ttl), store, m
}

func studentProfile(id string) *domain.Profile {
	return &domain.Profile{
		ID:        id,
		Email:     id + "@example.com",
		Role:      domain.RoleStudent,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestProfileCache_SetGet(t *testing.T) {
	c, _, _ := setupCache(t, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "p1", studentProfile("p1")))

	got, err := c.Get(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, domain.RoleStudent, got.Role)
}

func TestProfileCache_Miss(t *testing.T) {
	c, _, _ := setupCache(t, 5*time.Minute)

	got, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestProfileCache_TTLBoundary(t *testing.T) {
	c, store, _ := setupCache(t, 300*time.Second)
	ctx := context.Background()

	base := time.Now()
	c.now = func() time.Time { return base }

	require.NoError(t, c.Set(ctx, "p1", studentProfile("p1")))

	t.Run("hit just before expiry", func(t *testing.T) {
		c.now = func() time.Time { return base.Add(299 * time.Second) }

		got, err := c.Get(ctx, "p1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "p1", got.ID)
	})

	t.Run("miss and eviction just past expiry", func(t *testing.T) {
		c.now = func() time.Time { return base.Add(301 * time.Second) }

		got, err := c.Get(ctx, "p1")
		require.NoError(t, err)
		assert.Nil(t, got)

		// The key itself is gone, not just masked.
		raw, err := store.Get(ctx, "identity:profile:p1")
		require.NoError(t, err)
		assert.Nil(t, raw)
	})
}

func TestProfileCache_BackingTTL(t *testing.T) {
	c, store, m := setupCache(t, time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "p1", studentProfile("p1")))

	m.FastForward(2 * time.Second)

	raw, err := store.Get(ctx, "identity:profile:p1")
	require.NoError(t, err)
	assert.Nil(t, raw, "redis should evict the key on its own TTL")
}

func TestProfileCache_Clear(t *testing.T) {
	c, store, _ := setupCache(t, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "p1", studentProfile("p1")))
	require.NoError(t, c.Set(ctx, "p2", studentProfile("p2")))
	require.NoError(t, store.Set(ctx, "other:key", []byte("keep"), 0))

	t.Run("single id", func(t *testing.T) {
		require.NoError(t, c.Clear(ctx, "p1"))

		got, err := c.Get(ctx, "p1")
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = c.Get(ctx, "p2")
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("whole namespace leaves foreign keys alone", func(t *testing.T) {
		require.NoError(t, c.Clear(ctx))

		keys, err := store.Keys(ctx, "identity:profile:")
		require.NoError(t, err)
		assert.Empty(t, keys)

		raw, err := store.Get(ctx, "other:key")
		require.NoError(t, err)
		assert.Equal(t, []byte("keep"), raw)
	})
}

func TestRedisStore_Keys(t *testing.T) {
	_, store, _ := setupCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "ns:a", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "ns:b", []byte("2"), 0))
	require.NoError(t, store.Set(ctx, "xx:c", []byte("3"), 0))

	keys, err := store.Keys(ctx, "ns:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ns:a", "ns:b"}, keys)
}
