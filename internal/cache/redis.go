package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"partstore/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisCartCache caches cart state in Redis under cart:<userID>. TTLs carry
// a random jitter so a burst of writes does not expire in lockstep.
type RedisCartCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

// NewRedisCartCache creates a new RedisCartCache around an existing client.
func NewRedisCartCache(client *redis.Client) *RedisCartCache {
	return &RedisCartCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

// Get returns the cached state for the user, or ErrCacheMiss.
func (r *RedisCartCache) Get(ctx context.Context, userID string) (*models.CartState, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var state models.CartState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached cart: %w", err)
	}
	return &state, nil
}

// Set stores the state for the user with a jittered TTL.
func (r *RedisCartCache) Set(ctx context.Context, userID string, state *models.CartState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal cart for cache: %w", err)
	}

	ttl := r.baseTTL + time.Duration(rand.Intn(5))*time.Minute
	if err := r.client.Set(ctx, cacheKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete invalidates the cached state for the user.
func (r *RedisCartCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}
