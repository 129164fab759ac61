package services_test

import (
	"testing"

	"partstore/internal/models"
	"partstore/internal/repositories"
	"partstore/internal/services"

	"github.com/stretchr/testify/assert"
)

func newTestProductService() *services.ProductService {
	return services.NewProductService(repositories.NewMockProductRepository())
}

func TestProductService_CreateAndGet(t *testing.T) {
	service := newTestProductService()

	product := models.Product{
		ProductCode: "BRK-001",
		Name:        "Ceramic Brake Pads",
		Price:       450,
		InStock:     true,
	}
	assert.NoError(t, service.CreateProduct(&product))
	assert.NotEmpty(t, product.ID)

	got, err := service.GetProductByID(product.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Ceramic Brake Pads", got.Name)

	all, err := service.GetAllProducts()
	assert.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestProductService_GetMissingReturnsNotFound(t *testing.T) {
	service := newTestProductService()

	got, err := service.GetProductByID("no-such-id")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestProductService_Update(t *testing.T) {
	service := newTestProductService()

	product := models.Product{ProductCode: "OIL-001", Name: "Oil Filter", Price: 85, InStock: true}
	assert.NoError(t, service.CreateProduct(&product))

	product.InStock = false
	assert.NoError(t, service.UpdateProduct(&product))

	got, err := service.GetProductByID(product.ID)
	assert.NoError(t, err)
	assert.False(t, got.InStock)

	missing := models.Product{ID: "no-such-id", ProductCode: "X-1", Name: "Ghost", Price: 1}
	assert.ErrorIs(t, service.UpdateProduct(&missing), services.ErrNotFound)
}

func TestProductService_Delete(t *testing.T) {
	service := newTestProductService()

	product := models.Product{ProductCode: "SPK-001", Name: "Spark Plug", Price: 120, InStock: true}
	assert.NoError(t, service.CreateProduct(&product))

	assert.NoError(t, service.DeleteProduct(product.ID))
	_, err := service.GetProductByID(product.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)

	assert.ErrorIs(t, service.DeleteProduct(product.ID), services.ErrNotFound)
}
