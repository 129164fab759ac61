package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"partstore/internal/handlers"
	"partstore/internal/middleware"
	"partstore/internal/models"
	"partstore/internal/repositories"
	"partstore/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbCounter int64

// setupApp builds a Fiber app over an in-memory SQLite database with all
// repositories, services and handlers wired the way main does it.
func setupApp(t *testing.T) (*fiber.App, repositories.ProductRepository) {
	t.Helper()

	// A uniquely named shared in-memory database per test keeps state
	// isolated while letting GORM's pool share connections.
	dsn := fmt.Sprintf("file:handlers_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Product{},
		&models.CartState{},
		&models.PromoCode{},
		&models.Order{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	cartRepo := repositories.NewGORMCartRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	promoRepo := repositories.NewGORMPromoRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)

	seedPromosForTest(t, promoRepo)

	cartService := services.NewCartService(cartRepo, productRepo, promoRepo, nil)
	productService := services.NewProductService(productRepo)
	orderService := services.NewOrderService(orderRepo, cartService, nil)

	app := fiber.New()
	app.Use(recover.New())
	app.Use(middleware.Identity("test_jwt_secret"))

	apiV1 := app.Group("/api/v1")
	handlers.NewCartHandler(cartService).RegisterRoutes(apiV1)
	handlers.NewProductHandler(productService).RegisterRoutes(apiV1)
	handlers.NewOrderHandler(orderService).RegisterRoutes(apiV1)

	return app, productRepo
}

func seedPromosForTest(t *testing.T, repo repositories.PromoRepository) {
	t.Helper()

	promos := []models.PromoCode{
		{Code: "SAVE10", DiscountType: models.DiscountPercentage, DiscountValue: 10, MinOrderValue: 500, IsActive: true},
		{Code: "FREESHIP", DiscountType: models.DiscountFixed, DiscountValue: 0, IsActive: true},
	}
	for i := range promos {
		if err := repo.Create(&promos[i]); err != nil {
			t.Fatalf("failed to seed promo %s: %v", promos[i].Code, err)
		}
	}
}

func testProduct(code string, price float64, maxQuantity int) models.Product {
	return models.Product{
		ProductCode: code,
		Name:        "Part " + code,
		Description: "Test part",
		Price:       price,
		Category:    "Test",
		InStock:     true,
		MaxQuantity: maxQuantity,
	}
}

// doJSON runs a request against the app as the given user and decodes the
// response body into out when non-nil.
func doJSON(t *testing.T, app *fiber.App, method, path, userID string, body, out interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}

	resp, err := app.Test(req, -1)
	assert.NoError(t, err)

	if out != nil {
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(out))
		resp.Body.Close()
	}
	return resp
}

// TestMain silences request logging for cleaner output.
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestGetCartForNewUserIsEmpty(t *testing.T) {
	app, _ := setupApp(t)

	var view services.CartView
	resp := doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &view)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, view.Items)
	assert.Empty(t, view.SavedItems)
	assert.Equal(t, 0.0, view.Summary.Total)
}

func TestAddToCartAndSummary(t *testing.T) {
	app, productRepo := setupApp(t)

	product := testProduct("BRK-001", 450, 0)
	assert.NoError(t, productRepo.Create(&product))

	resp := doJSON(t, app, http.MethodPost, "/api/v1/cart/add", "u1", map[string]interface{}{
		"product":  product,
		"quantity": 2,
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var view services.CartView
	doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &view)
	assert.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, 900.0, view.Summary.Subtotal)
	assert.Equal(t, 150.0, view.Summary.Shipping) // under the free-shipping threshold
	assert.Equal(t, 2, view.Summary.ItemCount)
}

func TestAddToCartMergesRepeatedAdds(t *testing.T) {
	app, productRepo := setupApp(t)

	product := testProduct("OIL-001", 85, 0)
	assert.NoError(t, productRepo.Create(&product))

	for _, qty := range []int{2, 3} {
		resp := doJSON(t, app, http.MethodPost, "/api/v1/cart/add", "u1", map[string]interface{}{
			"product":  product,
			"quantity": qty,
		}, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	var view services.CartView
	doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &view)
	assert.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
}

func TestAddToCartBusinessErrors(t *testing.T) {
	app, productRepo := setupApp(t)

	outOfStock := testProduct("WPR-001", 95, 0)
	outOfStock.InStock = false
	assert.NoError(t, productRepo.Create(&outOfStock))

	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	resp := doJSON(t, app, http.MethodPost, "/api/v1/cart/add", "u1", map[string]interface{}{
		"product":  outOfStock,
		"quantity": 1,
	}, &envelope)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, envelope.Success)
	assert.NotEmpty(t, envelope.Error)

	capped := testProduct("ALT-001", 2150, 2)
	assert.NoError(t, productRepo.Create(&capped))

	resp = doJSON(t, app, http.MethodPost, "/api/v1/cart/add", "u1", map[string]interface{}{
		"product":  capped,
		"quantity": 3,
	}, &envelope)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, envelope.Success)
}

func TestUpdateAndRemoveCartItem(t *testing.T) {
	app, productRepo := setupApp(t)

	product := testProduct("SPK-001", 120, 0)
	assert.NoError(t, productRepo.Create(&product))

	resp := doJSON(t, app, http.MethodPost, "/api/v1/cart/add", "u1", map[string]interface{}{
		"product":  product,
		"quantity": 1,
	}, nil)
	resp.Body.Close()

	var view services.CartView
	doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &view)
	itemID := view.Items[0].ID

	resp = doJSON(t, app, http.MethodPut, "/api/v1/cart/item/"+itemID, "u1", map[string]interface{}{
		"quantity": 4,
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &view)
	assert.Equal(t, 4, view.Items[0].Quantity)

	resp = doJSON(t, app, http.MethodDelete, "/api/v1/cart/item/"+itemID, "u1", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &view)
	assert.Empty(t, view.Items)
}

func TestRemoveMissingItemReturnsNotFoundEnvelope(t *testing.T) {
	app, _ := setupApp(t)

	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	resp := doJSON(t, app, http.MethodDelete, "/api/v1/cart/item/no-such-item", "u1", nil, &envelope)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, envelope.Success)
	assert.NotEmpty(t, envelope.Error)
}

func TestPromoFlow(t *testing.T) {
	app, productRepo := setupApp(t)

	product := testProduct("BRK-002", 300, 0)
	assert.NoError(t, productRepo.Create(&product))

	resp := doJSON(t, app, http.MethodPost, "/api/v1/cart/add", "u1", map[string]interface{}{
		"product":  product,
		"quantity": 2, // subtotal 600
	}, nil)
	resp.Body.Close()

	var applyResp struct {
		Success   bool             `json:"success"`
		PromoCode models.PromoCode `json:"promoCode"`
	}
	resp = doJSON(t, app, http.MethodPost, "/api/v1/promo/apply", "u1", map[string]interface{}{
		"code": "save10",
	}, &applyResp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, applyResp.Success)
	assert.Equal(t, "SAVE10", applyResp.PromoCode.Code)

	var view services.CartView
	doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &view)
	assert.Equal(t, "SAVE10", view.AppliedPromoCode)
	assert.Equal(t, 60.0, view.Summary.Discount)

	resp = doJSON(t, app, http.MethodDelete, "/api/v1/promo/remove", "u1", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &view)
	assert.Empty(t, view.AppliedPromoCode)
	assert.Equal(t, 0.0, view.Summary.Discount)
}

func TestPromoRejections(t *testing.T) {
	app, productRepo := setupApp(t)

	product := testProduct("OIL-002", 200, 0)
	assert.NoError(t, productRepo.Create(&product))

	resp := doJSON(t, app, http.MethodPost, "/api/v1/cart/add", "u1", map[string]interface{}{
		"product":  product,
		"quantity": 2, // subtotal 400, below SAVE10's minimum
	}, nil)
	resp.Body.Close()

	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	resp = doJSON(t, app, http.MethodPost, "/api/v1/promo/apply", "u1", map[string]interface{}{
		"code": "SAVE10",
	}, &envelope)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, envelope.Success)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/promo/apply", "u1", map[string]interface{}{
		"code": "BOGUS",
	}, &envelope)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, envelope.Success)
}

func TestClearCartDropsPromo(t *testing.T) {
	app, productRepo := setupApp(t)

	product := testProduct("ALT-002", 600, 0)
	assert.NoError(t, productRepo.Create(&product))

	resp := doJSON(t, app, http.MethodPost, "/api/v1/cart/add", "u1", map[string]interface{}{
		"product":  product,
		"quantity": 1,
	}, nil)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/v1/promo/apply", "u1", map[string]interface{}{
		"code": "SAVE10",
	}, nil)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodDelete, "/api/v1/cart/clear", "u1", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var view services.CartView
	doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &view)
	assert.Empty(t, view.Items)
	assert.Empty(t, view.AppliedPromoCode)
}

func TestSavedItemsFlow(t *testing.T) {
	app, productRepo := setupApp(t)

	product := testProduct("SPK-002", 120, 0)
	assert.NoError(t, productRepo.Create(&product))

	resp := doJSON(t, app, http.MethodPost, "/api/v1/cart/add", "u1", map[string]interface{}{
		"product":  product,
		"quantity": 3,
	}, nil)
	resp.Body.Close()

	var view services.CartView
	doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &view)
	itemID := view.Items[0].ID

	// Save for later.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/saved/item/"+itemID, "u1", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &view)
	assert.Empty(t, view.Items)
	assert.Len(t, view.SavedItems, 1)
	savedID := view.SavedItems[0].ID

	// Move back to cart; quantity resets to 1.
	resp = doJSON(t, app, http.MethodDelete, "/api/v1/saved/item/"+savedID+"?moveToCart=true", "u1", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &view)
	assert.Len(t, view.Items, 1)
	assert.Equal(t, 1, view.Items[0].Quantity)
	assert.Empty(t, view.SavedItems)

	// Save again, then plain DELETE removes it outright.
	itemID = view.Items[0].ID
	resp = doJSON(t, app, http.MethodPost, "/api/v1/saved/item/"+itemID, "u1", nil, nil)
	resp.Body.Close()

	doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &view)
	savedID = view.SavedItems[0].ID
	resp = doJSON(t, app, http.MethodDelete, "/api/v1/saved/item/"+savedID, "u1", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &view)
	assert.Empty(t, view.SavedItems)
}

func TestGetCartAlwaysEmitsPromoField(t *testing.T) {
	app, _ := setupApp(t)

	// Even with no code applied the field is present (empty), so clients
	// that reuse a decode target observe promo removal.
	var payload map[string]interface{}
	resp := doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	value, ok := payload["appliedPromoCode"]
	assert.True(t, ok)
	assert.Equal(t, "", value)
}

func TestAddToCartAbsorbsSavedCopy(t *testing.T) {
	app, productRepo := setupApp(t)

	product := testProduct("BRK-004", 450, 0)
	assert.NoError(t, productRepo.Create(&product))

	resp := doJSON(t, app, http.MethodPost, "/api/v1/cart/add", "u1", map[string]interface{}{
		"product":  product,
		"quantity": 2,
	}, nil)
	resp.Body.Close()

	var view services.CartView
	doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &view)
	resp = doJSON(t, app, http.MethodPost, "/api/v1/saved/item/"+view.Items[0].ID, "u1", nil, nil)
	resp.Body.Close()

	// Re-adding the saved product transfers it back; it never ends up in
	// both sets.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/cart/add", "u1", map[string]interface{}{
		"product":  product,
		"quantity": 1,
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &view)
	assert.Len(t, view.Items, 1)
	assert.Equal(t, 1, view.Items[0].Quantity)
	assert.Empty(t, view.SavedItems)
}

func TestValidateSweepsCart(t *testing.T) {
	app, productRepo := setupApp(t)

	good := testProduct("GOOD-001", 100, 5)
	gone := testProduct("GONE-001", 50, 0)
	assert.NoError(t, productRepo.Create(&good))
	assert.NoError(t, productRepo.Create(&gone))

	for _, p := range []models.Product{good, gone} {
		resp := doJSON(t, app, http.MethodPost, "/api/v1/cart/add", "u1", map[string]interface{}{
			"product":  p,
			"quantity": 2,
		}, nil)
		resp.Body.Close()
	}

	// The second product goes out of stock after it was added.
	gone.InStock = false
	assert.NoError(t, productRepo.Update(&gone))

	var result services.ValidationResult
	resp := doJSON(t, app, http.MethodPost, "/api/v1/cart/validate", "u1", nil, &result)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, result.OK)
	assert.Len(t, result.Errors, 1)

	var view services.CartView
	doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &view)
	assert.Len(t, view.Items, 1)
	assert.Equal(t, good.ID, view.Items[0].Product.ID)
}

func TestCheckoutAndOrders(t *testing.T) {
	app, productRepo := setupApp(t)

	product := testProduct("BRK-003", 450, 0)
	assert.NoError(t, productRepo.Create(&product))

	resp := doJSON(t, app, http.MethodPost, "/api/v1/cart/add", "u1", map[string]interface{}{
		"product":  product,
		"quantity": 2,
	}, nil)
	resp.Body.Close()

	var order models.Order
	resp = doJSON(t, app, http.MethodPost, "/api/v1/checkout", "u1", nil, &order)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Len(t, order.Items, 1)
	assert.Equal(t, 900.0, order.Summary.Subtotal)

	// The cart is empty afterwards.
	var view services.CartView
	doJSON(t, app, http.MethodGet, "/api/v1/cart", "u1", nil, &view)
	assert.Empty(t, view.Items)

	var orders []models.Order
	doJSON(t, app, http.MethodGet, "/api/v1/orders", "u1", nil, &orders)
	assert.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)

	var fetched models.Order
	resp = doJSON(t, app, http.MethodGet, "/api/v1/orders/"+order.ID, "u1", nil, &fetched)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, order.ID, fetched.ID)

	// Another user cannot read it.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/orders/"+order.ID, "u2", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCheckoutEmptyCartRejected(t *testing.T) {
	app, _ := setupApp(t)

	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	resp := doJSON(t, app, http.MethodPost, "/api/v1/checkout", "u1", nil, &envelope)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, envelope.Success)
}

func TestGuestIdentityFallback(t *testing.T) {
	app, productRepo := setupApp(t)

	product := testProduct("OIL-003", 85, 0)
	assert.NoError(t, productRepo.Create(&product))

	// No identity at all: the request runs as the guest sentinel.
	resp := doJSON(t, app, http.MethodPost, "/api/v1/cart/add", "", map[string]interface{}{
		"product":  product,
		"quantity": 1,
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var view services.CartView
	doJSON(t, app, http.MethodGet, "/api/v1/cart", middleware.GuestUserID, nil, &view)
	assert.Len(t, view.Items, 1)
}

func TestProductCRUD(t *testing.T) {
	app, _ := setupApp(t)

	newProduct := map[string]interface{}{
		"productCode": "FLT-777",
		"name":        "Cabin Air Filter",
		"description": "Activated carbon cabin filter",
		"price":       210.0,
		"category":    "Filters",
		"inStock":     true,
		"maxQuantity": 6,
	}

	var created models.Product
	resp := doJSON(t, app, http.MethodPost, "/api/v1/products/", "u1", newProduct, &created)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, created.ID)

	var fetched models.Product
	resp = doJSON(t, app, http.MethodGet, "/api/v1/products/"+created.ID, "u1", nil, &fetched)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, fetched.ID)

	newProduct["name"] = "Cabin Air Filter Plus"
	var updated models.Product
	resp = doJSON(t, app, http.MethodPut, "/api/v1/products/"+created.ID, "u1", newProduct, &updated)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Cabin Air Filter Plus", updated.Name)

	resp = doJSON(t, app, http.MethodDelete, "/api/v1/products/"+created.ID, "u1", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products/"+created.ID, "u1", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateProductValidation(t *testing.T) {
	app, _ := setupApp(t)

	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	resp := doJSON(t, app, http.MethodPost, "/api/v1/products/", "u1", map[string]interface{}{
		"productCode": "X",
		"name":        "ab",
		"price":       0,
	}, &envelope)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, envelope.Success)
	assert.Contains(t, envelope.Error, "validation failed")
}
