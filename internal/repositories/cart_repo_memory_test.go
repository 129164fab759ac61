package repositories

import (
	"testing"

	"partstore/internal/models"

	"github.com/stretchr/testify/assert"
)

func storedCartState(userID string) *models.CartState {
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
	}
}

func TestMemoryCartRepositoryGetMissing(t *testing.T) {
	repo := NewMemoryCartRepository()

	state, err := repo.Get("nobody")
	assert.Nil(t, state)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestMemoryCartRepositorySaveBumpsVersion(t *testing.T) {
	repo := NewMemoryCartRepository()

	state := storedCartState("u1")
	assert.NoError(t, repo.Save(state))
	assert.Equal(t, int64(1), state.Version)

	got, err := repo.Get("u1")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Len(t, got.Items, 1)

	got.Items[0].Quantity = 5
	assert.NoError(t, repo.Save(got))
	assert.Equal(t, int64(2), got.Version)
}

func TestMemoryCartRepositorySaveDetectsStaleVersion(t *testing.T) {
	repo := NewMemoryCartRepository()

	assert.NoError(t, repo.Save(storedCartState("u1")))

	// Two readers take the same snapshot.
	first, err := repo.Get("u1")
	assert.NoError(t, err)
	second, err := repo.Get("u1")
	assert.NoError(t, err)

	assert.NoError(t, repo.Save(first))
	assert.ErrorIs(t, repo.Save(second), ErrVersionConflict)
}

func TestMemoryCartRepositoryGetReturnsACopy(t *testing.T) {
	repo := NewMemoryCartRepository()
	assert.NoError(t, repo.Save(storedCartState("u1")))

	got, err := repo.Get("u1")
	assert.NoError(t, err)
	got.Items[0].Quantity = 99

	again, err := repo.Get("u1")
	assert.NoError(t, err)
	assert.Equal(t, 2, again.Items[0].Quantity)
}

func TestMemoryCartRepositoryDelete(t *testing.T) {
	repo := NewMemoryCartRepository()
	assert.NoError(t, repo.Save(storedCartState("u1")))

	assert.NoError(t, repo.Delete("u1"))
	_, err := repo.Get("u1")
	assert.ErrorIs(t, err, ErrCartNotFound)

	// Deleting an absent cart is not an error.
	assert.NoError(t, repo.Delete("u1"))
}
