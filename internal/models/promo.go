package models

import (
	"time"

	"gorm.io/gorm"
)

// DiscountType enumerates the supported promo discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage off the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount off the subtotal.
	DiscountFixed DiscountType = "fixed"
)

// PromoCode is a named discount rule with eligibility constraints. Codes are
// keyed case-insensitively; the canonical form is uppercase. A user holds at
// most one applied code at a time.
type PromoCode struct {
	Code         string       `json:"code" gorm:"primaryKey;type:varchar(64)" validate:"required,min=2,max=64"`
	Description  string       `json:"description" validate:"omitempty,max=255"`
	DiscountType DiscountType `json:"discountType" gorm:"type:varchar(16)" validate:"required,oneof=percentage fixed"`
	// DiscountValue may be zero: a fixed-0 code discounts nothing but can
	// still carry the free-shipping behavior.
	DiscountValue float64    `json:"discountValue" validate:"gte=0"`
	MinOrderValue float64    `json:"minOrderValue,omitempty" validate:"gte=0"`
	MaxDiscount   float64    `json:"maxDiscount,omitempty" validate:"gte=0"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	IsActive      bool       `json:"isActive"`
	gorm.Model    `json:"-"`
}

// IsExpired reports whether the code is past its expiry at the given time.
// Codes without an expiry never expire.
func (p PromoCode) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}
