package models

import "gorm.io/gorm"

// Product represents an auto part in the catalog.
// Cart items carry an immutable snapshot of this projection, taken at
// add-to-cart time; the cart only re-reads master data during an explicit
// validation pass.
type Product struct {
	ID          string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	ProductCode string  `json:"productCode" gorm:"uniqueIndex;type:varchar(64)" validate:"required,min=2,max=64"`
	Name        string  `json:"name" validate:"required,min=3,max=100"`
	Description string  `json:"description" validate:"omitempty,max=500"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	ImageURL    string  `json:"imageUrl,omitempty" validate:"omitempty,url"`
	Category    string  `json:"category,omitempty" validate:"omitempty,max=100"`
	InStock     bool    `json:"inStock"`
	// MaxQuantity caps how many units a single cart may hold. Zero means no cap.
	MaxQuantity int `json:"maxQuantity,omitempty" validate:"gte=0"`
	gorm.Model  `json:"-"` // CreatedAt, UpdatedAt, DeletedAt
}

// HasQuantityCap reports whether the product limits per-cart quantity.
func (p Product) HasQuantityCap() bool {
	return p.MaxQuantity > 0
}
