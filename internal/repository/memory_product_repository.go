package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prohmpiriya/storefront/internal/domain"
)

type productRecord struct {
	mu      sync.Mutex // guards product
	product domain.Product
}

func (rec *productRecord) snapshot() *domain.Product {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	p := rec.product
	return &p
}

// MemoryProductRepository implements ProductRepository using in-memory storage.
// Each product carries its own lock so stock mutations on different products never contend.
type MemoryProductRepository struct {
	products map[string]*productRecord
	mu       sync.RWMutex // guards the map and name uniqueness
}

// NewMemoryProductRepository creates a new in-memory product repository
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{products: make(map[string]*productRecord)}
}

func (r *MemoryProductRepository) Create(ctx context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTakenLocked(product.Name, "") {
		return domain.ErrConflict
	}
	r.products[product.ID] = &productRecord{product: *product}
	return nil
}

func (r *MemoryProductRepository) Update(ctx context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.products[product.ID]
	if !ok {
		return domain.NewNotFound("product", product.ID)
	}
	if r.nameTakenLocked(product.Name, product.ID) {
		return domain.ErrConflict
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.product.SoftDeleted {
		return domain.NewNotFound("product", product.ID)
	}
	rec.product.Name = product.Name
	rec.product.Description = product.Description
	rec.product.Price = product.Price
	rec.product.UpdatedAt = time.Now()
	*product = rec.product
	return nil
}

func (r *MemoryProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	rec := r.record(id)
	if rec == nil {
		return nil, domain.NewNotFound("product", id)
	}
	p := rec.snapshot()
	if p.SoftDeleted {
		return nil, domain.NewNotFound("product", id)
	}
	return p, nil
}

func (r *MemoryProductRepository) FindAllByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	out := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, err := r.FindByID(ctx, id); err == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *MemoryProductRepository) ExistsActiveByName(ctx context.Context, name, excludeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nameTakenLocked(name, excludeID), nil
}

func (r *MemoryProductRepository) SoftDelete(ctx context.Context, id string) error {
	rec := r.record(id)
	if rec == nil {
		return domain.NewNotFound("product", id)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.product.SoftDeleted {
		return domain.NewNotFound("product", id)
	}
	rec.product.SoftDeleted = true
	rec.product.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryProductRepository) ListActive(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.Product], error) {
	r.mu.RLock()
	active := make([]*domain.Product, 0, len(r.products))
	for _, rec := range r.products {
		if p := rec.snapshot(); !p.SoftDeleted {
			active = append(active, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(active, func(i, j int) bool { return strings.ToLower(active[i].Name) < strings.ToLower(active[j].Name) })

	return &domain.PageResult[*domain.Product]{
		Items: slicePage(active, page),
		Total: int64(len(active)),
		Page:  page,
	}, nil
}

func (r *MemoryProductRepository) record(id string) *productRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.products[id]
}

func (r *MemoryProductRepository) nameTakenLocked(name, excludeID string) bool {
	for id, rec := range r.products {
		if id == excludeID {
			continue
		}
		p := rec.snapshot()
		if !p.SoftDeleted && strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// MemoryInventoryLedger implements InventoryLedger over a MemoryProductRepository
type MemoryInventoryLedger struct {
	products *MemoryProductRepository
}

// NewMemoryInventoryLedger creates a ledger over the product store
func NewMemoryInventoryLedger(products *MemoryProductRepository) *MemoryInventoryLedger {
	return &MemoryInventoryLedger{products: products}
}

func (l *MemoryInventoryLedger) Reserve(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return domain.NewValidation("quantity", "must be greater than zero")
	}
	if err := ctx.Err(); err != nil {
		return classifyError(err)
	}

	rec := l.products.record(productID)
	if rec == nil {
		return domain.NewNotFound("product", productID)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.product.SoftDeleted {
		return domain.NewNotFound("product", productID)
	}
	if rec.product.QuantityInStock < qty {
		return &domain.StockError{ProductID: productID, Requested: qty}
	}
	rec.product.QuantityInStock -= qty
	return nil
}

func (l *MemoryInventoryLedger) Release(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return nil
	}

	rec := l.products.record(productID)
	if rec == nil {
		return domain.NewNotFound("product", productID)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if qty > domain.MaxQuantity-rec.product.QuantityInStock {
		return domain.NewValidation("quantity", "stock would exceed the maximum")
	}
	rec.product.QuantityInStock += qty
	return nil
}
