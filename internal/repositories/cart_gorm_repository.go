package repositories

import (
	"errors"
	"fmt"

	"partstore/internal/models"

	"gorm.io/gorm"
)

// GORMCartRepository is a GORM implementation of CartRepository. Each user's
// cart is one row in user_carts with the item lists stored as JSON; the
// version column gives optimistic concurrency under multi-instance
// deployment.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{
		db: db,
	}
}

// Get retrieves the cart state for a user.
func (r *GORMCartRepository) Get(userID string) (*models.CartState, error) {
	var state models.CartState
	if err := r.db.First(&state, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart for user %s: %w", userID, err)
	}
	return &state, nil
}

// Save inserts or updates the cart state, guarded by the version column.
func (r *GORMCartRepository) Save(state *models.CartState) error {
	if state.Version == 0 {
		// First write for this user.
		state.Version = 1
		if err := r.db.Create(state).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				state.Version = 0
				return ErrVersionConflict
			}
			state.Version = 0
			return fmt.Errorf("failed to create cart for user %s: %w", state.UserID, err)
		}
		return nil
	}

	previous := state.Version
	state.Version = previous + 1
	res := r.db.Model(&models.CartState{}).
		Where("user_id = ? AND version = ?", state.UserID, previous).
		Updates(map[string]interface{}{
			"items":              state.Items,
			"saved_items":        state.SavedItems,
			"applied_promo_code": state.AppliedPromoCode,
			"version":            state.Version,
		})
	if res.Error != nil {
		state.Version = previous
		return fmt.Errorf("failed to save cart for user %s: %w", state.UserID, res.Error)
	}
	if res.RowsAffected == 0 {
		state.Version = previous
		return ErrVersionConflict
	}
	return nil
}

// Delete removes the user's cart row. Missing rows are not an error.
func (r *GORMCartRepository) Delete(userID string) error {
	if err := r.db.Delete(&models.CartState{}, "user_id = ?", userID).Error; err != nil {
		return fmt.Errorf("failed to delete cart for user %s: %w", userID, err)
	}
	return nil
}
