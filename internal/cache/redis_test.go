package cache

import (
	"context"
	"testing"
	"time"

	"partstore/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func setupTestCache(t *testing.T) (*RedisCartCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCartCache(client), mr
}

func cachedTestState(userID string) *models.CartState {
	return &models.CartState{
		UserID: userID,
		Items: models.CartItemList{
			{
				ID: "i1",
				Product: models.Product{
					ID:          "p1",
					ProductCode: "BRK-001",
					Name:        "Brake Pads",
					Price:       450,
					InStock:     true,
				},
				Quantity: 2,
			},
		},
		AppliedPromoCode: "SAVE10",
		Version:          3,
	}
}

func TestCacheSetAndGet(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	assert.NoError(t, cache.Set(ctx, "u1", cachedTestState("u1")))

	got, err := cache.Get(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, "SAVE10", got.AppliedPromoCode)
	assert.Equal(t, int64(3), got.Version)
}

func TestCacheGetMiss(t *testing.T) {
	cache, _ := setupTestCache(t)

	got, err := cache.Get(context.Background(), "nobody")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheGetCorruptEntry(t *testing.T) {
	cache, mr := setupTestCache(t)

	mr.Set("cart:u1", "not-json")

	got, err := cache.Get(context.Background(), "u1")
	assert.Nil(t, got)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestCacheDelete(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	assert.NoError(t, cache.Set(ctx, "u1", cachedTestState("u1")))
	assert.NoError(t, cache.Delete(ctx, "u1"))

	_, err := cache.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// Deleting an absent key is not an error.
	assert.NoError(t, cache.Delete(ctx, "u1"))
}

func TestCacheKeysAreScopedPerUser(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	assert.NoError(t, cache.Set(ctx, "u1", cachedTestState("u1")))
	assert.NoError(t, cache.Set(ctx, "u2", cachedTestState("u2")))

	assert.True(t, mr.Exists("cart:u1"))
	assert.True(t, mr.Exists("cart:u2"))

	got, err := cache.Get(ctx, "u2")
	assert.NoError(t, err)
	assert.Equal(t, "u2", got.UserID)
}

func TestCacheEntriesExpire(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	assert.NoError(t, cache.Set(ctx, "u1", cachedTestState("u1")))

	ttl := mr.TTL("cart:u1")
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.LessOrEqual(t, ttl, 20*time.Minute)

	mr.FastForward(21 * time.Minute)
	_, err := cache.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
