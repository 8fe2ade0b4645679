package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, repo *MemoryProductRepository, id, name string, stock int) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &domain.Product{
		ID:              id,
		Name:            name,
		Price:           decimal.RequireFromString("9.99"),
		QuantityInStock: stock,
		CreatedAt:       time.Now(),
	}))
}

func stockOf(t *testing.T, repo *MemoryProductRepository, id string) int {
	t.Helper()
	rec := repo.record(id)
	require.NotNil(t, rec)
	return rec.snapshot().QuantityInStock
}

func TestMemoryLedger_ReserveRelease(t *testing.T) {
	ctx := context.Background()
	products := NewMemoryProductRepository()
	ledger := NewMemoryInventoryLedger(products)
	seedProduct(t, products, "p1", "Widget", 5)

	require.NoError(t, ledger.Reserve(ctx, "p1", 3))
	assert.Equal(t, 2, stockOf(t, products, "p1"))

	err := ledger.Reserve(ctx, "p1", 3)
	var se *domain.StockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "p1", se.ProductID)
	assert.Equal(t, 2, stockOf(t, products, "p1"))

	require.NoError(t, ledger.Release(ctx, "p1", 0))
	require.NoError(t, ledger.Release(ctx, "p1", -4))
	assert.Equal(t, 2, stockOf(t, products, "p1"))

	require.NoError(t, ledger.Release(ctx, "p1", 3))
	assert.Equal(t, 5, stockOf(t, products, "p1"))

	assert.ErrorIs(t, ledger.Reserve(ctx, "missing", 1), domain.ErrNotFound)
	assert.ErrorIs(t, ledger.Reserve(ctx, "p1", 0), domain.ErrValidation)
}

func TestMemoryLedger_ReleaseRejectsOverflow(t *testing.T) {
	ctx := context.Background()
	products := NewMemoryProductRepository()
	ledger := NewMemoryInventoryLedger(products)
	seedProduct(t, products, "p1", "Widget", 5)

	assert.ErrorIs(t, ledger.Release(ctx, "p1", domain.MaxQuantity), domain.ErrValidation)
	assert.ErrorIs(t, ledger.Release(ctx, "p1", int(^uint(0)>>1)), domain.ErrValidation)
	assert.Equal(t, 5, stockOf(t, products, "p1"))

	require.NoError(t, ledger.Release(ctx, "p1", domain.MaxQuantity-5))
	assert.Equal(t, domain.MaxQuantity, stockOf(t, products, "p1"))
}

func TestMemoryLedger_SoftDeletedProduct(t *testing.T) {
	ctx := context.Background()
	products := NewMemoryProductRepository()
	ledger := NewMemoryInventoryLedger(products)
	seedProduct(t, products, "p1", "Widget", 5)
	require.NoError(t, ledger.Reserve(ctx, "p1", 2))
	require.NoError(t, products.SoftDelete(ctx, "p1"))

	assert.ErrorIs(t, ledger.Reserve(ctx, "p1", 1), domain.ErrNotFound)
	require.NoError(t, ledger.Release(ctx, "p1", 2))
	assert.Equal(t, 5, stockOf(t, products, "p1"))
}

func TestMemoryLedger_ConcurrentReservationsExhaustStockExactly(t *testing.T) {
	ctx := context.Background()
	products := NewMemoryProductRepository()
	ledger := NewMemoryInventoryLedger(products)
	seedProduct(t, products, "hot", "Hot item", 100)

	var (
		wg        sync.WaitGroup
		succeeded int32
		refused   int32
	)
	for i := 0; i < 250; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ledger.Reserve(ctx, "hot", 1)
			switch {
			case err == nil:
				atomic.AddInt32(&succeeded, 1)
			case errors.Is(err, domain.ErrInsufficientStock):
				atomic.AddInt32(&refused, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(100), succeeded)
	assert.Equal(t, int32(150), refused)
	assert.Equal(t, 0, stockOf(t, products, "hot"))
}

func TestMemoryProductRepository_NameUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProductRepository()
	seedProduct(t, repo, "p1", "Widget", 1)

	err := repo.Create(ctx, &domain.Product{ID: "p2", Name: "WIDGET"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	taken, err := repo.ExistsActiveByName(ctx, "widget", "p1")
	require.NoError(t, err)
	assert.False(t, taken)

	require.NoError(t, repo.SoftDelete(ctx, "p1"))
	require.NoError(t, repo.Create(ctx, &domain.Product{ID: "p2", Name: "Widget"}))

	found, err := repo.FindAllByIDs(ctx, []string{"p1", "p2", "nope"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "p2", found[0].ID)
}

func TestMemoryProductRepository_ListActive(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProductRepository()
	seedProduct(t, repo, "c", "Cherry", 1)
	seedProduct(t, repo, "a", "apple", 1)
	seedProduct(t, repo, "b", "Banana", 1)
	require.NoError(t, repo.SoftDelete(ctx, "b"))

	res, err := repo.ListActive(ctx, domain.NewPage(0, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "a", res.Items[0].ID)

	res, err = repo.ListActive(ctx, domain.NewPage(5, 10))
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestMemoryCartRepository_OneOpenCartPerUser(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCartRepository()

	require.NoError(t, repo.CreateOpen(ctx, &domain.Cart{ID: "c1", UserID: "u1"}))
	assert.ErrorIs(t, repo.CreateOpen(ctx, &domain.Cart{ID: "c2", UserID: "u1"}), domain.ErrOpenCartExists)

	open, err := repo.FindOpenByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "c1", open.ID)
	assert.Equal(t, 1, open.Version)

	require.NoError(t, repo.MarkConfirmed(ctx, "c1", 1))
	_, err = repo.FindOpenByUser(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.CreateOpen(ctx, &domain.Cart{ID: "c2", UserID: "u1"}))
	confirmed, err := repo.FindConfirmedByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "c1", confirmed[0].ID)
}

func TestMemoryCartRepository_SaveVersionCheck(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCartRepository()
	cart := &domain.Cart{ID: "c1", UserID: "u1"}
	require.NoError(t, repo.CreateOpen(ctx, cart))

	cart.Items = []domain.LineItem{{ProductID: "p1", Quantity: 2, UnitPrice: decimal.NewFromInt(3)}}
	cart.Amount = decimal.NewFromInt(6)
	require.NoError(t, repo.Save(ctx, cart, 1))
	assert.Equal(t, 2, cart.Version)

	stale := &domain.Cart{ID: "c1", UserID: "u1"}
	assert.ErrorIs(t, repo.Save(ctx, stale, 1), domain.ErrVersionConflict)
	assert.ErrorIs(t, repo.MarkDeleted(ctx, "c1", 1), domain.ErrVersionConflict)

	stored, err := repo.FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1)

	require.NoError(t, repo.MarkDeleted(ctx, "c1", 2))
	assert.ErrorIs(t, repo.MarkDeleted(ctx, "c1", 3), domain.ErrVersionConflict)
	assert.ErrorIs(t, repo.Save(ctx, stored, 3), domain.ErrVersionConflict)

	deleted, err := repo.FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.CartStatusDeleted, deleted.Status())

	list, err := repo.List(ctx, domain.NewPage(0, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(0), list.Total)
}

func TestMemoryCartRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCartRepository()
	require.NoError(t, repo.CreateOpen(ctx, &domain.Cart{ID: "c1", UserID: "u1"}))

	c, err := repo.FindByID(ctx, "c1")
	require.NoError(t, err)
	c.Items = append(c.Items, domain.LineItem{ProductID: "x", Quantity: 1})

	again, err := repo.FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, again.Items)
}

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	u := &domain.User{ID: "u1", Email: "a@example.com", Role: domain.RoleUser, Active: true}
	require.NoError(t, repo.Create(ctx, u))
	assert.ErrorIs(t, repo.Create(ctx, &domain.User{ID: "u2", Email: "a@example.com"}), domain.ErrConflict)

	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u2", Email: "b@example.com", Active: true}))
	update := &domain.User{ID: "u2", Email: "a@example.com"}
	assert.ErrorIs(t, repo.Update(ctx, update), domain.ErrConflict)

	update = &domain.User{ID: "u1", Email: "a@example.com", FirstName: "Ann", Role: domain.RoleAdmin}
	require.NoError(t, repo.Update(ctx, update))
	got, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.FirstName)
	assert.Equal(t, domain.RoleUser, got.Role)

	require.NoError(t, repo.SoftDelete(ctx, "u1"))
	_, err = repo.FindByID(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.FindByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := repo.List(ctx, domain.NewPage(0, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
}

func TestClassifyError(t *testing.T) {
	assert.Nil(t, classifyError(nil))
	assert.ErrorIs(t, classifyError(context.DeadlineExceeded), domain.ErrTransient)

	plain := errors.New("syntax error")
	assert.Equal(t, plain, classifyError(plain))
	assert.False(t, errors.Is(classifyError(plain), domain.ErrTransient))
}
