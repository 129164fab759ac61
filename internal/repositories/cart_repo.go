package repositories

import (
	"errors"

	"partstore/internal/models"
)

// ErrVersionConflict is returned by Save when the stored cart state has a
// newer version than the one being written. Callers re-read and retry.
var ErrVersionConflict = errors.New("cart state was modified concurrently")

// ErrCartNotFound is returned by Get when no state exists for the user yet.
var ErrCartNotFound = errors.New("cart not found")

// CartRepository is the keyed store behind the cart service. One CartState
// per user id; the service does read-modify-write over whole states, and the
// Version field makes concurrent writes detectable.
type CartRepository interface {
	// Get returns the stored state for the user, or ErrCartNotFound.
	Get(userID string) (*models.CartState, error)
	// Save writes the state, bumping its version. It fails with
	// ErrVersionConflict if the stored version no longer matches.
	Save(state *models.CartState) error
	// Delete removes the user's state entirely. Deleting a missing state is
	// not an error.
	Delete(userID string) error
}
