package handlers

import (
	"log"

	"partstore/internal/middleware"
	"partstore/internal/models"
	"partstore/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartHandler handles the cart, saved-items and promo HTTP surface. All
// routes are scoped to the identity resolved by the Identity middleware.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/add", h.HandleAddItem)
	cartRoutes.Put("/item/:itemId", h.HandleUpdateItemQuantity)
	cartRoutes.Delete("/item/:itemId", h.HandleRemoveItem)
	cartRoutes.Delete("/clear", h.HandleClearCart)
	cartRoutes.Post("/validate", h.HandleValidateCart)

	savedRoutes := router.Group("/saved")
	savedRoutes.Post("/item/:itemId", h.HandleSaveForLater)
	savedRoutes.Delete("/item/:itemId", h.HandleRemoveSavedItem)

	promoRoutes := router.Group("/promo")
	promoRoutes.Post("/apply", h.HandleApplyPromoCode)
	promoRoutes.Delete("/remove", h.HandleRemovePromoCode)
}

// HandleGetCart returns the cart contents with a freshly computed summary.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	view, err := h.service.GetCart(middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// AddToCartRequest is the body for POST /cart/add. The product is the
// client-held catalog projection, snapshotted into the cart as-is.
type AddToCartRequest struct {
	Product  models.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

// HandleAddItem adds a product to the cart, merging quantities on repeat.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddToCartRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing add-to-cart request body: %v", err)
		return respondBadRequest(c, "invalid request body")
	}
	if req.Product.ID == "" {
		return respondBadRequest(c, "product is required")
	}
	if err := h.validate.Struct(req.Product); err != nil {
		return respondValidationError(c, err)
	}

	if err := h.service.AddItem(middleware.UserID(c), req.Product, req.Quantity); err != nil {
		return respondError(c, err)
	}
	return respondAck(c)
}

// UpdateQuantityRequest is the body for PUT /cart/item/:itemId.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// HandleUpdateItemQuantity sets the quantity of an existing cart item.
func (h *CartHandler) HandleUpdateItemQuantity(c *fiber.Ctx) error {
	var req UpdateQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing quantity update request body: %v", err)
		return respondBadRequest(c, "invalid request body")
	}

	if err := h.service.UpdateItemQuantity(middleware.UserID(c), c.Params("itemId"), req.Quantity); err != nil {
		return respondError(c, err)
	}
	return respondAck(c)
}

// HandleRemoveItem removes a cart item.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	if err := h.service.RemoveItem(middleware.UserID(c), c.Params("itemId")); err != nil {
		return respondError(c, err)
	}
	return respondAck(c)
}

// HandleClearCart empties the cart and drops any applied promo code.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	if err := h.service.Clear(middleware.UserID(c)); err != nil {
		return respondError(c, err)
	}
	return respondAck(c)
}

// HandleValidateCart reconciles cart contents against current stock and
// quantity limits, reporting every correction it made.
func (h *CartHandler) HandleValidateCart(c *fiber.Ctx) error {
	result, err := h.service.Validate(middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// HandleSaveForLater transfers a cart item to the saved-items set.
func (h *CartHandler) HandleSaveForLater(c *fiber.Ctx) error {
	if err := h.service.SaveForLater(middleware.UserID(c), c.Params("itemId")); err != nil {
		return respondError(c, err)
	}
	return respondAck(c)
}

// HandleRemoveSavedItem removes a saved item, or with ?moveToCart=true
// transfers it back into the cart with quantity 1.
func (h *CartHandler) HandleRemoveSavedItem(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	itemID := c.Params("itemId")

	var err error
	if c.QueryBool("moveToCart") {
		err = h.service.MoveToCart(userID, itemID)
	} else {
		err = h.service.RemoveSavedItem(userID, itemID)
	}
	if err != nil {
		return respondError(c, err)
	}
	return respondAck(c)
}

// ApplyPromoRequest is the body for POST /promo/apply.
type ApplyPromoRequest struct {
	Code string `json:"code" validate:"required,min=2,max=64"`
}

// HandleApplyPromoCode applies a promo code to the cart.
func (h *CartHandler) HandleApplyPromoCode(c *fiber.Ctx) error {
	var req ApplyPromoRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing promo apply request body: %v", err)
		return respondBadRequest(c, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return respondValidationError(c, err)
	}

	promo, err := h.service.ApplyPromoCode(middleware.UserID(c), req.Code)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"promoCode": promo,
	})
}

// HandleRemovePromoCode drops any applied promo code.
func (h *CartHandler) HandleRemovePromoCode(c *fiber.Ctx) error {
	if err := h.service.RemovePromoCode(middleware.UserID(c)); err != nil {
		return respondError(c, err)
	}
	return respondAck(c)
}
