package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Order statuses. An order starts as pending and moves forward from there.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// OrderItem is a line item snapshotted from the cart at checkout time.
type OrderItem struct {
	ProductID   string  `json:"productId"`
	ProductCode string  `json:"productCode"`
	Name        string  `json:"name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"` // unit price at checkout time
}

// Order is a customer order created from the cart at checkout. Items, the
// pricing summary and the promo code are all frozen copies; later catalog or
// promo changes do not affect a placed order.
type Order struct {
	ID        string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string        `json:"userId" gorm:"index;type:varchar(100)"`
	Items     OrderItemList `json:"items" gorm:"type:text"`
	Summary   CartSummary   `json:"summary" gorm:"embedded;embeddedPrefix:summary_"`
	PromoCode string        `json:"promoCode,omitempty" gorm:"type:varchar(64)"`
	Status    string        `json:"status" gorm:"type:varchar(20)"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// ValidOrderStatus reports whether s is one of the known order statuses.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItemList stores order line items as a JSON column under GORM.
type OrderItemList []OrderItem

// Value implements driver.Valuer.
func (l OrderItemList) Value() (driver.Value, error) {
	if l == nil {
		l = OrderItemList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order items: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *OrderItemList) Scan(value interface{}) error {
	return scanJSONColumn(value, l, "order items")
}
