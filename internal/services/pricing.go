package services

import (
	"math"
	"strings"
	"time"

	"partstore/internal/models"
)

// Pricing constants. Amounts are in the store's base currency unit.
const (
	// FreeShippingThreshold is the subtotal at or above which shipping is free.
	FreeShippingThreshold = 1000.0
	// FlatShippingFee is charged below the free-shipping threshold.
	FlatShippingFee = 150.0
	// TaxRate is the flat VAT rate applied to the discounted taxable base.
	// Shipping is not taxed.
	TaxRate = 0.15
	// FreeShippingPromoCode forces shipping to zero regardless of subtotal.
	FreeShippingPromoCode = "FREESHIP"
)

// ComputeSummary derives the pricing breakdown for the given cart contents.
// It is a pure function: summaries are always recomputed from the source
// items rather than incrementally updated, so a summary can never drift from
// the cart it describes.
//
// Promo eligibility (active, unexpired, minimum order met) is re-checked
// here, not only at apply time: a cart that shrinks below a code's minimum
// after the code was applied simply stops receiving the discount.
//
// Fixed-amount discounts are clamped to the subtotal so the taxable base,
// and therefore the tax, can never go negative.
func ComputeSummary(items []models.CartItem, promo *models.PromoCode) models.CartSummary {
	var subtotal float64
	var itemCount int
	for _, item := range items {
		subtotal += item.Product.Price * float64(item.Quantity)
		itemCount += item.Quantity
	}

	discount := promoDiscount(subtotal, promo)

	shipping := FlatShippingFee
	if subtotal >= FreeShippingThreshold || len(items) == 0 {
		shipping = 0
	}
	if promo != nil && strings.EqualFold(promo.Code, FreeShippingPromoCode) && promoEligible(subtotal, promo) {
		shipping = 0
	}

	tax := (subtotal - discount) * TaxRate
	total := subtotal - discount + tax + shipping

	return models.CartSummary{
		Subtotal:  round2(subtotal),
		Discount:  round2(discount),
		Tax:       round2(tax),
		Shipping:  round2(shipping),
		Total:     round2(total),
		ItemCount: itemCount,
	}
}

// promoEligible reports whether the promo applies to a cart with the given
// subtotal right now.
func promoEligible(subtotal float64, promo *models.PromoCode) bool {
	if promo == nil || !promo.IsActive || promo.IsExpired(time.Now()) {
		return false
	}
	return subtotal >= promo.MinOrderValue
}

func promoDiscount(subtotal float64, promo *models.PromoCode) float64 {
	if !promoEligible(subtotal, promo) {
		return 0
	}
	var discount float64
	switch promo.DiscountType {
	case models.DiscountPercentage:
		discount = subtotal * promo.DiscountValue / 100
		if promo.MaxDiscount > 0 && discount > promo.MaxDiscount {
			discount = promo.MaxDiscount
		}
	case models.DiscountFixed:
		discount = promo.DiscountValue
	default:
		return 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	return discount
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
