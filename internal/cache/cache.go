package cache

import (
	"context"
	"errors"

	"partstore/internal/models"
)

// CartCache is a read-through cache of per-user cart state. The cart service
// treats cache failures as soft: a miss or an error falls back to the
// repository.
type CartCache interface {
	Get(ctx context.Context, userID string) (*models.CartState, error)
	Set(ctx context.Context, userID string, state *models.CartState) error
	Delete(ctx context.Context, userID string) error
}

// ErrCacheMiss means no entry exists for the key.
var ErrCacheMiss = errors.New("cache miss")
