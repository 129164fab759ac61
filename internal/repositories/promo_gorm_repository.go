package repositories

import (
	"errors"
	"fmt"
	"strings"

	"partstore/internal/models"

	"gorm.io/gorm"
)

// GORMPromoRepository is a GORM implementation of PromoRepository.
type GORMPromoRepository struct {
	db *gorm.DB
}

// NewGORMPromoRepository creates a new instance of GORMPromoRepository.
func NewGORMPromoRepository(db *gorm.DB) *GORMPromoRepository {
	return &GORMPromoRepository{
		db: db,
	}
}

// GetAll retrieves the whole promo catalog from the database.
func (r *GORMPromoRepository) GetAll() ([]models.PromoCode, error) {
	var codes []models.PromoCode
	if err := r.db.Find(&codes).Error; err != nil {
		return nil, fmt.Errorf("failed to get all promo codes: %w", err)
	}
	return codes, nil
}

// GetByCode retrieves a promo code by its case-insensitive code.
func (r *GORMPromoRepository) GetByCode(code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := r.db.First(&promo, "code = ?", strings.ToUpper(code)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("promo code %s: %w", code, ErrPromoNotFound)
		}
		return nil, fmt.Errorf("failed to get promo code %s: %w", code, err)
	}
	return &promo, nil
}

// Create adds a promo code to the catalog.
func (r *GORMPromoRepository) Create(promo *models.PromoCode) error {
	promo.Code = strings.ToUpper(promo.Code)
	if err := r.db.Create(promo).Error; err != nil {
		return fmt.Errorf("failed to create promo code %s: %w", promo.Code, err)
	}
	return nil
}
