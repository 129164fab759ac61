// Package cartclient is the storefront-side counterpart of the cart API: a
// local cache of the user's cart that issues mutations to the server and
// treats the server as the eventual source of truth. Every mutation is
// followed by a full refresh rather than an optimistic local patch, because
// the authoritative pricing summary can only be computed server-side.
package cartclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"partstore/internal/models"
)

// Status is the client cache state machine. A mutation moves the cache to
// StatusMutating, a successful refresh back to StatusIdle, a failed request
// to StatusError with the error recorded and prior contents preserved.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusMutating Status = "mutating"
	StatusError    Status = "error"
)

// CartState is the locally cached cart: the server view plus the last error
// recorded for display.
type CartState struct {
	Items            []models.CartItem  `json:"items"`
	SavedItems       []models.SavedItem `json:"savedItems"`
	Summary          models.CartSummary `json:"summary"`
	AppliedPromoCode string             `json:"appliedPromoCode,omitempty"`
	LastError        string             `json:"lastError,omitempty"`
}

// ValidationOutcome mirrors the server's validation response.
type ValidationOutcome struct {
	OK     bool     `json:"success"`
	Errors []string `json:"validationErrors"`
}

// APIError is a non-2xx response from the cart API, carrying the message
// from the server's error envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cart API error (status %d): %s", e.StatusCode, e.Message)
}

// Client is a per-user cart cache. All methods are safe for concurrent use;
// mutations are serialized so they apply in call order.
type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client
	store      StateStore

	mu     sync.Mutex
	state  CartState
	status Status
}

// New creates a Client and rehydrates any state previously persisted to the
// store, so a restart does not lose a guest's cart.
func New(baseURL, userID string, store StateStore) *Client {
	c := &Client{
		baseURL:    baseURL,
		userID:     userID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		store:      store,
		status:     StatusIdle,
	}
	if store != nil {
		if state, err := store.Load(); err != nil {
			log.Printf("Failed to rehydrate cart state: %v", err)
		} else if state != nil {
			c.state = *state
		}
	}
	return c
}

// State returns a copy of the cached cart.
func (c *Client) State() CartState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the current cache status.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// AddToCart adds a product to the cart.
func (c *Client) AddToCart(product models.Product, quantity int) error {
	return c.mutateAndRefresh(http.MethodPost, "/cart/add", map[string]interface{}{
		"product":  product,
		"quantity": quantity,
	})
}

// UpdateQuantity sets the quantity of a cart item.
func (c *Client) UpdateQuantity(itemID string, quantity int) error {
	return c.mutateAndRefresh(http.MethodPut, "/cart/item/"+itemID, map[string]interface{}{
		"quantity": quantity,
	})
}

// RemoveFromCart removes a cart item.
func (c *Client) RemoveFromCart(itemID string) error {
	return c.mutateAndRefresh(http.MethodDelete, "/cart/item/"+itemID, nil)
}

// ClearCart empties the cart.
func (c *Client) ClearCart() error {
	return c.mutateAndRefresh(http.MethodDelete, "/cart/clear", nil)
}

// SaveForLater moves a cart item to the saved-items set.
func (c *Client) SaveForLater(itemID string) error {
	return c.mutateAndRefresh(http.MethodPost, "/saved/item/"+itemID, nil)
}

// MoveToCart moves a saved item back into the cart.
func (c *Client) MoveToCart(itemID string) error {
	return c.mutateAndRefresh(http.MethodDelete, "/saved/item/"+itemID+"?moveToCart=true", nil)
}

// RemoveSavedItem removes a saved item.
func (c *Client) RemoveSavedItem(itemID string) error {
	return c.mutateAndRefresh(http.MethodDelete, "/saved/item/"+itemID, nil)
}

// ApplyPromoCode applies a promo code to the cart.
func (c *Client) ApplyPromoCode(code string) error {
	return c.mutateAndRefresh(http.MethodPost, "/promo/apply", map[string]interface{}{
		"code": code,
	})
}

// RemovePromoCode drops the applied promo code.
func (c *Client) RemovePromoCode() error {
	return c.mutateAndRefresh(http.MethodDelete, "/promo/remove", nil)
}

// ValidateCart runs a server-side validation pass and refreshes the local
// cache with the corrected cart.
func (c *Client) ValidateCart() (*ValidationOutcome, error) {
	c.setStatus(StatusMutating)

	var outcome ValidationOutcome
	if err := c.do(http.MethodPost, "/cart/validate", nil, &outcome); err != nil {
		c.recordError(err)
		return nil, err
	}
	if err := c.RefreshCart(); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// RefreshCart fetches the authoritative cart and replaces local state with
// it, with one guard: a non-empty local cart is never clobbered by an empty
// server response. That protects a guest's rehydrated cart from a cold
// server-side store that has no state for the guest key yet.
func (c *Client) RefreshCart() error {
	var server CartState
	if err := c.do(http.MethodGet, "/cart", nil, &server); err != nil {
		c.recordError(err)
		return err
	}

	c.mu.Lock()
	if len(server.Items) == 0 && len(server.SavedItems) == 0 && len(c.state.Items) > 0 {
		// Keep the local cart; only clear the error bookkeeping.
		c.state.LastError = ""
	} else {
		server.LastError = ""
		c.state = server
	}
	c.status = StatusIdle
	c.persistLocked()
	c.mu.Unlock()
	return nil
}

// mutateAndRefresh sends the mutation and, on success, pulls the recomputed
// cart. On failure the previous local contents are preserved and the error
// is recorded for display.
func (c *Client) mutateAndRefresh(method, path string, body interface{}) error {
	c.setStatus(StatusMutating)

	if err := c.do(method, path, body, nil); err != nil {
		c.recordError(err)
		return err
	}
	return c.RefreshCart()
}

func (c *Client) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-ID", c.userID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    decodeErrorEnvelope(resp.Body),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func decodeErrorEnvelope(r io.Reader) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&envelope); err != nil || envelope.Error == "" {
		return "request rejected"
	}
	return envelope.Error
}

func (c *Client) setStatus(status Status) {
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
}

// recordError surfaces the failure for display while leaving prior cart
// contents intact. Errors never clear the cart.
func (c *Client) recordError(err error) {
	c.mu.Lock()
	c.state.LastError = err.Error()
	c.status = StatusError
	c.persistLocked()
	c.mu.Unlock()
}

func (c *Client) persistLocked() {
	if c.store == nil {
		return
	}
	if err := c.store.Save(&c.state); err != nil {
		log.Printf("Failed to persist cart state: %v", err)
	}
}
