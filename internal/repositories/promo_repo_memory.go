package repositories

import (
	"fmt"
	"strings"
	"sync"

	"partstore/internal/models"
)

// MemoryPromoRepository is an in-memory implementation of PromoRepository.
type MemoryPromoRepository struct {
	codes map[string]models.PromoCode
	mu    sync.RWMutex
}

// NewMemoryPromoRepository creates a new instance of MemoryPromoRepository.
func NewMemoryPromoRepository() *MemoryPromoRepository {
	return &MemoryPromoRepository{
		codes: make(map[string]models.PromoCode),
	}
}

// GetAll returns the whole catalog.
func (r *MemoryPromoRepository) GetAll() ([]models.PromoCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codeList := make([]models.PromoCode, 0, len(r.codes))
	for _, p := range r.codes {
		codeList = append(codeList, p)
	}
	return codeList, nil
}

// GetByCode returns a promo code by its case-insensitive code.
func (r *MemoryPromoRepository) GetByCode(code string) (*models.PromoCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	promo, ok := r.codes[strings.ToUpper(code)]
	if !ok {
		return nil, fmt.Errorf("promo code %s: %w", code, ErrPromoNotFound)
	}
	return &promo, nil
}

// Create adds a promo code to the catalog.
func (r *MemoryPromoRepository) Create(promo *models.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	promo.Code = strings.ToUpper(promo.Code)
	r.codes[promo.Code] = *promo
	return nil
}
