package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"partstore/internal/cache"
	"partstore/internal/models"
	"partstore/internal/repositories"

	"github.com/google/uuid"
)

// maxSaveRetries bounds the optimistic-concurrency retry loop. Conflicts are
// only possible when another instance writes the same user's cart between our
// read and write.
const maxSaveRetries = 3

// CartView is what a cart read returns: current contents plus the summary
// recomputed from them.
type CartView struct {
	Items      []models.CartItem  `json:"items"`
	SavedItems []models.SavedItem `json:"savedItems"`
	Summary    models.CartSummary `json:"summary"`
	// AppliedPromoCode is always emitted, empty or not, so clients reusing a
	// decode target see the code actually cleared after a promo removal.
	AppliedPromoCode string `json:"appliedPromoCode"`
}

// ValidationResult reports the outcome of a validation pass over the cart.
type ValidationResult struct {
	OK     bool     `json:"success"`
	Errors []string `json:"validationErrors"`
}

// CartService owns all cart, saved-items and promo-code business logic. It
// does read-modify-write over whole CartState values through an injected
// repository, so the store can be swapped between in-memory and persistent
// implementations without touching handlers.
//
// Mutations for one user are serialized through a per-user mutex (rapid
// repeated quantity updates apply in arrival order, last write wins) and
// guarded by the repository's version check for the multi-instance case.
type CartService struct {
	cartRepo    repositories.CartRepository
	productRepo repositories.ProductRepository
	promoRepo   repositories.PromoRepository
	cartCache   cache.CartCache // optional, nil when no cache is configured
	userLocks   sync.Map        // userID -> *sync.Mutex
}

// NewCartService creates a new CartService. cartCache may be nil.
func NewCartService(
	cartRepo repositories.CartRepository,
	productRepo repositories.ProductRepository,
	promoRepo repositories.PromoRepository,
	cartCache cache.CartCache,
) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		promoRepo:   promoRepo,
		cartCache:   cartCache,
	}
}

// GetCart returns the user's cart contents with a freshly computed summary.
// A user with no stored state gets an empty cart; nothing is persisted by a
// read.
func (s *CartService) GetCart(userID string) (*CartView, error) {
	state, err := s.loadState(userID)
	if err != nil {
		return nil, err
	}
	return s.viewOf(state), nil
}

// AddItem puts a product into the user's cart. Repeated adds of the same
// product merge quantities rather than duplicating the line, and a saved
// copy of the product is absorbed by the add: a product lives in at most one
// of the cart and saved sets.
func (s *CartService) AddItem(userID string, product models.Product, quantity int) error {
	if quantity <= 0 {
		return ErrQuantityInvalid
	}
	if !product.InStock {
		return ErrOutOfStock
	}

	return s.mutate(userID, func(state *models.CartState) error {
		if err := addProductToCart(state, product, quantity); err != nil {
			return err
		}
		if idx := state.FindSavedItemByProduct(product.ID); idx >= 0 {
			state.SavedItems = append(state.SavedItems[:idx], state.SavedItems[idx+1:]...)
		}
		return nil
	})
}

// addProductToCart merges the quantity into an existing line for the product
// or appends a new one, enforcing the product's per-cart cap.
func addProductToCart(state *models.CartState, product models.Product, quantity int) error {
	if idx := state.FindItemByProduct(product.ID); idx >= 0 {
		merged := state.Items[idx].Quantity + quantity
		if product.HasQuantityCap() && merged > product.MaxQuantity {
			return ErrMaxQuantityExceeded
		}
		state.Items[idx].Quantity = merged
		return nil
	}

	if product.HasQuantityCap() && quantity > product.MaxQuantity {
		return ErrMaxQuantityExceeded
	}
	state.Items = append(state.Items, models.CartItem{
		ID:       uuid.New().String(),
		Product:  product,
		Quantity: quantity,
		AddedAt:  time.Now(),
	})
	return nil
}

// UpdateItemQuantity sets the quantity of an existing cart item. Removal is
// a separate operation; zero or negative quantities are rejected.
func (s *CartService) UpdateItemQuantity(userID, itemID string, quantity int) error {
	if quantity <= 0 {
		return ErrQuantityInvalid
	}

	return s.mutate(userID, func(state *models.CartState) error {
		idx := state.FindItem(itemID)
		if idx < 0 {
			return ErrNotFound
		}
		item := &state.Items[idx]
		if item.Product.HasQuantityCap() && quantity > item.Product.MaxQuantity {
			return ErrMaxQuantityExceeded
		}
		item.Quantity = quantity
		return nil
	})
}

// RemoveItem deletes a cart item.
func (s *CartService) RemoveItem(userID, itemID string) error {
	return s.mutate(userID, func(state *models.CartState) error {
		idx := state.FindItem(itemID)
		if idx < 0 {
			return ErrNotFound
		}
		state.Items = append(state.Items[:idx], state.Items[idx+1:]...)
		return nil
	})
}

// Clear empties the cart and drops any applied promo code in the same write.
// Promo eligibility is tied to cart contents, so an emptied cart cannot keep
// its code. Saved items survive a clear.
func (s *CartService) Clear(userID string) error {
	return s.mutate(userID, func(state *models.CartState) error {
		state.Items = models.CartItemList{}
		state.AppliedPromoCode = ""
		return nil
	})
}

// SaveForLater transfers a cart item into the saved-items set. The transfer
// is atomic: the product is never in both sets.
func (s *CartService) SaveForLater(userID, itemID string) error {
	return s.mutate(userID, func(state *models.CartState) error {
		idx := state.FindItem(itemID)
		if idx < 0 {
			return ErrNotFound
		}
		item := state.Items[idx]
		state.Items = append(state.Items[:idx], state.Items[idx+1:]...)
		if state.FindSavedItemByProduct(item.Product.ID) >= 0 {
			// A saved copy already exists; the cart line just folds into it.
			return nil
		}
		state.SavedItems = append(state.SavedItems, models.SavedItem{
			ID:      uuid.New().String(),
			Product: item.Product,
			SavedAt: time.Now(),
		})
		return nil
	})
}

// MoveToCart transfers a saved item back into the cart with quantity 1,
// merging into an existing line for the same product rather than creating a
// second one. If the product has gone out of stock, or the merge would break
// the quantity cap, the move fails and the item stays saved.
func (s *CartService) MoveToCart(userID, itemID string) error {
	return s.mutate(userID, func(state *models.CartState) error {
		idx := state.FindSavedItem(itemID)
		if idx < 0 {
			return ErrNotFound
		}
		saved := state.SavedItems[idx]
		if !saved.Product.InStock {
			return ErrOutOfStock
		}
		if err := addProductToCart(state, saved.Product, 1); err != nil {
			return err
		}
		state.SavedItems = append(state.SavedItems[:idx], state.SavedItems[idx+1:]...)
		return nil
	})
}

// RemoveSavedItem deletes a saved item.
func (s *CartService) RemoveSavedItem(userID, itemID string) error {
	return s.mutate(userID, func(state *models.CartState) error {
		idx := state.FindSavedItem(itemID)
		if idx < 0 {
			return ErrNotFound
		}
		state.SavedItems = append(state.SavedItems[:idx], state.SavedItems[idx+1:]...)
		return nil
	})
}

// ApplyPromoCode records a promo code on the cart after checking the code
// exists, is active, is not expired and that the current subtotal meets its
// minimum order value. On any failure no code is recorded.
func (s *CartService) ApplyPromoCode(userID, code string) (*models.PromoCode, error) {
	promo, err := s.promoRepo.GetByCode(code)
	if err != nil {
		if errors.Is(err, repositories.ErrPromoNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("failed to look up promo code %s: %w", code, err)
	}
	if !promo.IsActive {
		return nil, ErrInvalidCode
	}
	if promo.IsExpired(time.Now()) {
		return nil, ErrPromoExpired
	}

	err = s.mutate(userID, func(state *models.CartState) error {
		summary := ComputeSummary(state.Items, nil)
		if summary.Subtotal < promo.MinOrderValue {
			return ErrMinOrderNotMet
		}
		state.AppliedPromoCode = strings.ToUpper(promo.Code)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return promo, nil
}

// RemovePromoCode drops any applied promo code. Removing a code that is not
// there is not an error.
func (s *CartService) RemovePromoCode(userID string) error {
	return s.mutate(userID, func(state *models.CartState) error {
		state.AppliedPromoCode = ""
		return nil
	})
}

// Validate sweeps the cart against current product master data: items whose
// product is gone or out of stock are dropped, quantities over the product's
// cap are clamped. Every correction is reported as a validation error string
// and the corrected cart is persisted.
func (s *CartService) Validate(userID string) (*ValidationResult, error) {
	result := &ValidationResult{Errors: []string{}}

	err := s.mutate(userID, func(state *models.CartState) error {
		result.Errors = result.Errors[:0]
		kept := make(models.CartItemList, 0, len(state.Items))
		for _, item := range state.Items {
			product, err := s.productRepo.GetByID(item.Product.ID)
			if err != nil {
				if errors.Is(err, repositories.ErrProductNotFound) {
					result.Errors = append(result.Errors,
						fmt.Sprintf("%s is no longer available and was removed from your cart", item.Product.Name))
					continue
				}
				return err
			}
			if !product.InStock {
				result.Errors = append(result.Errors,
					fmt.Sprintf("%s is out of stock and was removed from your cart", product.Name))
				continue
			}
			if product.HasQuantityCap() && item.Quantity > product.MaxQuantity {
				result.Errors = append(result.Errors,
					fmt.Sprintf("%s quantity was reduced to the maximum of %d", product.Name, product.MaxQuantity))
				item.Quantity = product.MaxQuantity
			}
			kept = append(kept, item)
		}
		state.Items = kept
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.OK = len(result.Errors) == 0
	return result, nil
}

// viewOf builds the read payload: promo resolved from the catalog, summary
// recomputed from the items. A recorded code that has become ineligible
// simply contributes no discount.
func (s *CartService) viewOf(state *models.CartState) *CartView {
	var promo *models.PromoCode
	if state.AppliedPromoCode != "" {
		if p, err := s.promoRepo.GetByCode(state.AppliedPromoCode); err == nil {
			promo = p
		}
	}

	items := state.Items
	if items == nil {
		items = models.CartItemList{}
	}
	savedItems := state.SavedItems
	if savedItems == nil {
		savedItems = models.SavedItemList{}
	}

	return &CartView{
		Items:            items,
		SavedItems:       savedItems,
		Summary:          ComputeSummary(items, promo),
		AppliedPromoCode: state.AppliedPromoCode,
	}
}

// loadState reads the user's state through the cache when one is configured.
// Cache errors are logged and fall through to the repository.
func (s *CartService) loadState(userID string) (*models.CartState, error) {
	if s.cartCache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		state, err := s.cartCache.Get(ctx, userID)
		cancel()
		if err == nil {
			return state, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cart cache get error for user %s: %v", userID, err)
		}
	}

	state, err := s.loadFromRepo(userID)
	if err != nil {
		return nil, err
	}

	if s.cartCache != nil && state.Version > 0 {
		go func(copy models.CartState) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cartCache.Set(ctx, copy.UserID, &copy); err != nil {
				log.Printf("cart cache set error for user %s: %v", copy.UserID, err)
			}
		}(*state)
	}

	return state, nil
}

// loadFromRepo reads straight from the repository, handing back a fresh
// empty state when none exists yet.
func (s *CartService) loadFromRepo(userID string) (*models.CartState, error) {
	state, err := s.cartRepo.Get(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrCartNotFound) {
			return &models.CartState{
				UserID:     userID,
				Items:      models.CartItemList{},
				SavedItems: models.SavedItemList{},
			}, nil
		}
		return nil, fmt.Errorf("failed to load cart for user %s: %w", userID, err)
	}
	return state, nil
}

// mutate runs fn over the user's current state and saves the result,
// retrying on version conflicts. Mutations always read from the repository,
// never the cache, and invalidate the cache after a successful write.
func (s *CartService) mutate(userID string, fn func(*models.CartState) error) error {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		state, err := s.loadFromRepo(userID)
		if err != nil {
			return err
		}
		if err := fn(state); err != nil {
			return err
		}
		if err := s.cartRepo.Save(state); err != nil {
			if errors.Is(err, repositories.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return fmt.Errorf("failed to save cart for user %s: %w", userID, err)
		}
		s.invalidateCache(userID)
		return nil
	}
	return fmt.Errorf("failed to save cart for user %s after %d attempts: %w", userID, maxSaveRetries, lastErr)
}

func (s *CartService) invalidateCache(userID string) {
	if s.cartCache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cartCache.Delete(ctx, userID); err != nil {
		log.Printf("cart cache invalidate error for user %s: %v", userID, err)
	}
}

func (s *CartService) userLock(userID string) *sync.Mutex {
	mu, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
