package services

import "errors"

// Business-rule errors surfaced by the cart and order services. Handlers map
// these to HTTP statuses with errors.Is, so services must return them either
// directly or wrapped with %w.
var (
	// ErrNotFound means the referenced cart item, saved item, order or
	// product does not exist for this user.
	ErrNotFound = errors.New("item not found")

	// ErrOutOfStock means the product cannot be added or restored because it
	// is no longer in stock.
	ErrOutOfStock = errors.New("product is out of stock")

	// ErrQuantityInvalid means a requested quantity was zero or negative.
	ErrQuantityInvalid = errors.New("quantity must be at least 1")

	// ErrMaxQuantityExceeded means the requested quantity (after merging with
	// what is already in the cart) is over the product's per-cart cap.
	ErrMaxQuantityExceeded = errors.New("quantity exceeds the maximum allowed for this product")

	// ErrInvalidCode means the promo code is unknown or inactive.
	ErrInvalidCode = errors.New("invalid promo code")

	// ErrPromoExpired means the promo code is past its expiry date.
	ErrPromoExpired = errors.New("promo code has expired")

	// ErrMinOrderNotMet means the cart subtotal is below the promo code's
	// minimum order value.
	ErrMinOrderNotMet = errors.New("cart subtotal does not meet the promo code minimum order value")

	// ErrEmptyCart means checkout was attempted on an empty cart.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInvalidOrderStatus means an order status update named an unknown
	// status.
	ErrInvalidOrderStatus = errors.New("invalid order status")
)
