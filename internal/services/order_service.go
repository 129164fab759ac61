package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"partstore/internal/models"
	"partstore/internal/repositories"

	"github.com/google/uuid"
)

// EventPublisher publishes storefront events to the message broker.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// OrderService handles checkout and order reads.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	cartService *CartService
	publisher   EventPublisher // may be nil when no broker is configured
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(orderRepo repositories.OrderRepository, cartService *CartService, publisher EventPublisher) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		cartService: cartService,
		publisher:   publisher,
	}
}

// Checkout turns the user's cart into a pending order. The cart is validated
// against current stock first; whatever survives validation is snapshotted
// (items, summary, promo code) into the order, the cart is cleared, and an
// order.created event is published. Publish failures are logged, not fatal:
// the order stands either way.
func (s *OrderService) Checkout(userID string) (*models.Order, error) {
	if _, err := s.cartService.Validate(userID); err != nil {
		return nil, fmt.Errorf("failed to validate cart at checkout: %w", err)
	}

	view, err := s.cartService.GetCart(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart at checkout: %w", err)
	}
	if len(view.Items) == 0 {
		return nil, ErrEmptyCart
	}

	items := make(models.OrderItemList, 0, len(view.Items))
	for _, item := range view.Items {
		items = append(items, models.OrderItem{
			ProductID:   item.Product.ID,
			ProductCode: item.Product.ProductCode,
			Name:        item.Product.Name,
			Quantity:    item.Quantity,
			Price:       item.Product.Price,
		})
	}

	order := &models.Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     items,
		Summary:   view.Summary,
		PromoCode: view.AppliedPromoCode,
		Status:    models.OrderStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.orderRepo.Create(order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.cartService.Clear(userID); err != nil {
		// The order exists; an uncleared cart is an annoyance, not a failure.
		log.Printf("Warning: failed to clear cart for user %s after checkout: %v", userID, err)
	}

	s.publishOrderCreated(order)
	return order, nil
}

// GetOrdersForUser retrieves the user's orders, newest first.
func (s *OrderService) GetOrdersForUser(userID string) ([]models.Order, error) {
	return s.orderRepo.GetByUser(userID)
}

// GetOrderByID retrieves a single order, scoped to its owner. Another user's
// order id behaves exactly like a missing one.
func (s *OrderService) GetOrderByID(userID, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrNotFound
	}
	return order, nil
}

// UpdateOrderStatus moves an order to a new status.
func (s *OrderService) UpdateOrderStatus(orderID, status string) error {
	if !models.ValidOrderStatus(status) {
		return fmt.Errorf("%w: %s", ErrInvalidOrderStatus, status)
	}
	if err := s.orderRepo.UpdateStatus(orderID, status); err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update status for order %s: %w", orderID, err)
	}
	return nil
}

func (s *OrderService) publishOrderCreated(order *models.Order) {
	if s.publisher == nil {
		log.Println("Event publisher is not configured. Skipping order.created event.")
		return
	}

	body, err := json.Marshal(map[string]interface{}{
		"orderId":   order.ID,
		"userId":    order.UserID,
		"status":    order.Status,
		"total":     order.Summary.Total,
		"itemCount": order.Summary.ItemCount,
		"promoCode": order.PromoCode,
	})
	if err != nil {
		log.Printf("Failed to marshal order.created event for order %s: %v", order.ID, err)
		return
	}

	if err := s.publisher.Publish("order.created", body); err != nil {
		log.Printf("Warning: failed to publish order.created event for order %s: %v", order.ID, err)
		return
	}
	log.Printf("Published order.created event for order %s", order.ID)
}
