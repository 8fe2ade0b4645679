package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/prohmpiriya/storefront/internal/dto"
	"github.com/prohmpiriya/storefront/internal/repository"
	"github.com/prohmpiriya/storefront/pkg/cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProductFixture() (ProductService, *repository.MemoryProductRepository) {
	store := repository.NewMemoryProductRepository()
	loader := cache.NewLoader(cache.NewLocalCache(time.Minute, time.Minute), time.Minute)
	cached := repository.NewCachedProductRepository(store, loader, nil)
	return NewProductService(cached, repository.NewMemoryInventoryLedger(store), nil), store
}

func createReq(name string, price string, stock int) *dto.CreateProductRequest {
	p := decimal.RequireFromString(price)
	return &dto.CreateProductRequest{Name: name, Description: "demo", Price: &p, QuantityInStock: stock}
}

func TestProductService_NameUniquenessAcrossSoftDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProductFixture()

	first, err := svc.Create(ctx, createReq("X1", "9.99", 3))
	require.NoError(t, err)

	_, err = svc.Create(ctx, createReq("X1", "1.00", 1))
	assert.ErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, svc.Delete(ctx, first.ID))

	second, err := svc.Create(ctx, createReq("X1", "1.00", 1))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestProductService_ListActiveReflectsWrites(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProductFixture()
	page := domain.NewPage(0, 10)

	a, err := svc.Create(ctx, createReq("Alpha", "1.00", 1))
	require.NoError(t, err)

	list, err := svc.ListActive(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)

	_, err = svc.Create(ctx, createReq("Beta", "2.00", 1))
	require.NoError(t, err)

	list, err = svc.ListActive(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total, "create invalidates cached pages")

	require.NoError(t, svc.Delete(ctx, a.ID))
	list, err = svc.ListActive(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)

	fresh, err := svc.ListActiveFresh(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fresh.Total)
}

func TestProductService_Update(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProductFixture()

	a, err := svc.Create(ctx, createReq("Alpha", "1.00", 5))
	require.NoError(t, err)
	_, err = svc.Create(ctx, createReq("Beta", "1.00", 5))
	require.NoError(t, err)

	price := decimal.RequireFromString("3.50")
	updated, err := svc.Update(ctx, a.ID, &dto.UpdateProductRequest{Price: &price})
	require.NoError(t, err)
	assert.True(t, price.Equal(updated.Price))
	assert.Equal(t, 5, updated.QuantityInStock)

	_, err = svc.Update(ctx, a.ID, &dto.UpdateProductRequest{Name: strPtr("Beta")})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Update(ctx, a.ID, &dto.UpdateProductRequest{Name: strPtr("A")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Update(ctx, "missing", &dto.UpdateProductRequest{Name: strPtr("Gamma")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductService_Restock(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProductFixture()

	p, err := svc.Create(ctx, createReq("Alpha", "1.00", 2))
	require.NoError(t, err)

	_, err = svc.ListActive(ctx, domain.NewPage(0, 10))
	require.NoError(t, err)

	restocked, err := svc.Restock(ctx, p.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, 10, restocked.QuantityInStock)

	list, err := svc.ListActive(ctx, domain.NewPage(0, 10))
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, 10, list.Items[0].QuantityInStock)

	_, err = svc.Restock(ctx, p.ID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = svc.Restock(ctx, p.ID, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductService_RestockCannotOverflowStock(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProductFixture()

	p, err := svc.Create(ctx, createReq("Alpha", "1.00", 5))
	require.NoError(t, err)

	_, err = svc.Restock(ctx, p.ID, math.MaxInt)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Restock(ctx, p.ID, domain.MaxQuantity)
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.QuantityInStock)

	topped, err := svc.Restock(ctx, p.ID, domain.MaxQuantity-5)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxQuantity, topped.QuantityInStock)
}

func TestProductService_PriceMustFitCatalog(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProductFixture()

	for _, price := range []string{"1.005", "10000000000", "99999999999.99"} {
		_, err := svc.Create(ctx, createReq("Gadget", price, 1))
		assert.ErrorIs(t, err, domain.ErrValidation, price)
	}

	p, err := svc.Create(ctx, createReq("Gadget", "9999999999.99", 1))
	require.NoError(t, err)
	assert.Equal(t, "9999999999.99", p.Price.String())

	bad := decimal.RequireFromString("0.001")
	_, err = svc.Update(ctx, p.ID, &dto.UpdateProductRequest{Price: &bad})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(ctx, createReq("Trailing", "2.500", 1))
	assert.NoError(t, err)
}

func TestProductService_CreateValidation(t *testing.T) {
	svc, _ := newProductFixture()

	_, err := svc.Create(context.Background(), createReq("X", "1.00", 1))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(context.Background(), createReq("Valid", "-1.00", 1))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestProductService_DeleteMissing(t *testing.T) {
	svc, _ := newProductFixture()

	err := svc.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductService_WithoutCache(t *testing.T) {
	store := repository.NewMemoryProductRepository()
	svc := NewProductService(store, repository.NewMemoryInventoryLedger(store), nil)

	_, err := svc.Create(context.Background(), createReq("Plain", "1.00", 1))
	require.NoError(t, err)

	list, err := svc.ListActive(context.Background(), domain.NewPage(0, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
}
