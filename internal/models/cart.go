package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CartItem is a product/quantity pairing pending purchase. The embedded
// Product is a snapshot taken when the item was added.
type CartItem struct {
	ID       string    `json:"id"`
	Product  Product   `json:"product"`
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"addedAt"`
}

// SavedItem is a product set aside from the cart for later purchase.
// A product is in at most one of {cart, saved} per user; moving between the
// two sets is a transfer, not a copy.
type SavedItem struct {
	ID      string    `json:"id"`
	Product Product   `json:"product"`
	SavedAt time.Time `json:"savedAt"`
}

// CartSummary is the derived pricing breakdown. It is recomputed from the
// cart contents on every read and never persisted, so it cannot drift from
// its inputs.
type CartSummary struct {
	Subtotal  float64 `json:"subtotal"`
	Discount  float64 `json:"discount"`
	Tax       float64 `json:"tax"`
	Shipping  float64 `json:"shipping"`
	Total     float64 `json:"total"`
	ItemCount int     `json:"itemCount"`
}

// CartState is the per-user unit of cart storage: cart items, saved-for-later
// items and the applied promo code reference. Version supports optimistic
// concurrency in persistent repositories.
type CartState struct {
	UserID           string        `json:"userId" gorm:"primaryKey;type:varchar(100)"`
	Items            CartItemList  `json:"items" gorm:"type:text"`
	SavedItems       SavedItemList `json:"savedItems" gorm:"type:text"`
	AppliedPromoCode string        `json:"appliedPromoCode,omitempty" gorm:"type:varchar(64)"`
	// Version participates in optimistic concurrency control and must
	// survive the cache round trip.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName maps CartState onto the user_carts table.
func (CartState) TableName() string {
	return "user_carts"
}

// FindItem returns the index of the cart item with the given id, or -1.
func (s *CartState) FindItem(itemID string) int {
	for i := range s.Items {
		if s.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// FindItemByProduct returns the index of the cart item holding the given
// product, or -1.
func (s *CartState) FindItemByProduct(productID string) int {
	for i := range s.Items {
		if s.Items[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// FindSavedItem returns the index of the saved item with the given id, or -1.
func (s *CartState) FindSavedItem(itemID string) int {
	for i := range s.SavedItems {
		if s.SavedItems[i].ID == itemID {
			return i
		}
	}
	return -1
}

// FindSavedItemByProduct returns the index of the saved item holding the
// given product, or -1.
func (s *CartState) FindSavedItemByProduct(productID string) int {
	for i := range s.SavedItems {
		if s.SavedItems[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// CartItemList stores cart items as a JSON column under GORM.
type CartItemList []CartItem

// Value implements driver.Valuer.
func (l CartItemList) Value() (driver.Value, error) {
	if l == nil {
		l = CartItemList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart items: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *CartItemList) Scan(value interface{}) error {
	return scanJSONColumn(value, l, "cart items")
}

// SavedItemList stores saved items as a JSON column under GORM.
type SavedItemList []SavedItem

// Value implements driver.Valuer.
func (l SavedItemList) Value() (driver.Value, error) {
	if l == nil {
		l = SavedItemList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal saved items: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *SavedItemList) Scan(value interface{}) error {
	return scanJSONColumn(value, l, "saved items")
}

func scanJSONColumn(value interface{}, dest interface{}, what string) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported column type %T for %s", value, what)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", what, err)
	}
	return nil
}
