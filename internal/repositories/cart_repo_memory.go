package repositories

import (
	"sync"
	"time"

	"partstore/internal/models"
)

// MemoryCartRepository is an in-memory implementation of CartRepository,
// used in tests and as the fallback when no database is configured. State is
// lost on process exit.
type MemoryCartRepository struct {
	carts map[string]models.CartState
	mu    sync.RWMutex
}

// NewMemoryCartRepository creates a new instance of MemoryCartRepository.
func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{
		carts: make(map[string]models.CartState),
	}
}

// Get returns a copy of the stored state for the user.
func (r *MemoryCartRepository) Get(userID string) (*models.CartState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.carts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	// Copy the slices so callers cannot mutate stored state in place.
	out := state
	out.Items = append(models.CartItemList(nil), state.Items...)
	out.SavedItems = append(models.SavedItemList(nil), state.SavedItems...)
	return &out, nil
}

// Save writes the state if its version still matches the stored one.
func (r *MemoryCartRepository) Save(state *models.CartState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.carts[state.UserID]
	if exists && stored.Version != state.Version {
		return ErrVersionConflict
	}
	now := time.Now()
	if !exists {
		state.CreatedAt = now
	}
	state.Version++
	state.UpdatedAt = now
	r.carts[state.UserID] = *state
	return nil
}

// Delete removes the user's state.
func (r *MemoryCartRepository) Delete(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, userID)
	return nil
}
