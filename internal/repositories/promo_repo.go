package repositories

import (
	"errors"

	"partstore/internal/models"
)

// ErrPromoNotFound is returned when no promo code exists for the given code.
var ErrPromoNotFound = errors.New("promo code not found")

// PromoRepository provides lookup of the promo-code catalog. Codes are keyed
// case-insensitively; implementations canonicalize to uppercase.
type PromoRepository interface {
	GetAll() ([]models.PromoCode, error)
	GetByCode(code string) (*models.PromoCode, error)
	Create(promo *models.PromoCode) error
}
