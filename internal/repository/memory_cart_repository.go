package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prohmpiriya/storefront/internal/domain"
)

// MemoryCartRepository implements CartRepository using in-memory storage
type MemoryCartRepository struct {
	carts      map[string]*domain.Cart
	openByUser map[string]string // userID -> open cartID
	mu         sync.RWMutex
}

// NewMemoryCartRepository creates a new in-memory cart repository
func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{
		carts:      make(map[string]*domain.Cart),
		openByUser: make(map[string]string),
	}
}

func (r *MemoryCartRepository) FindOpenByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.openByUser[userID]
	if !ok {
		return nil, domain.NewNotFound("open cart", "")
	}
	return r.carts[id].Clone(), nil
}

func (r *MemoryCartRepository) FindConfirmedByUser(ctx context.Context, userID string) ([]*domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Cart
	for _, c := range r.carts {
		if c.UserID == userID && c.Confirmed && !c.SoftDeleted {
			out = append(out, c.Clone())
		}
	}
	sortCarts(out)
	return out, nil
}

func (r *MemoryCartRepository) FindByID(ctx context.Context, id string) (*domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.carts[id]
	if !ok {
		return nil, domain.NewNotFound("cart", id)
	}
	return c.Clone(), nil
}

func (r *MemoryCartRepository) CreateOpen(ctx context.Context, cart *domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.openByUser[cart.UserID]; exists {
		return domain.ErrOpenCartExists
	}
	cp := cart.Clone()
	cp.Version = 1
	r.carts[cp.ID] = cp
	r.openByUser[cp.UserID] = cp.ID
	cart.Version = 1
	return nil
}

func (r *MemoryCartRepository) Save(ctx context.Context, cart *domain.Cart, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.openAtVersionLocked(cart.ID, expectedVersion)
	if err != nil {
		return err
	}
	cp := cart.Clone()
	cp.UserID = stored.UserID
	cp.CreatedAt = stored.CreatedAt
	cp.Version = expectedVersion + 1
	cp.UpdatedAt = time.Now()
	r.carts[cp.ID] = cp

	cart.Version = cp.Version
	cart.UpdatedAt = cp.UpdatedAt
	return nil
}

func (r *MemoryCartRepository) MarkDeleted(ctx context.Context, cartID string, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.openAtVersionLocked(cartID, expectedVersion)
	if err != nil {
		return err
	}
	stored.SoftDeleted = true
	stored.Version++
	stored.UpdatedAt = time.Now()
	delete(r.openByUser, stored.UserID)
	return nil
}

func (r *MemoryCartRepository) MarkConfirmed(ctx context.Context, cartID string, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.openAtVersionLocked(cartID, expectedVersion)
	if err != nil {
		return err
	}
	stored.Confirmed = true
	stored.Version++
	stored.UpdatedAt = time.Now()
	delete(r.openByUser, stored.UserID)
	return nil
}

func (r *MemoryCartRepository) List(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.Cart], error) {
	r.mu.RLock()
	all := make([]*domain.Cart, 0, len(r.carts))
	for _, c := range r.carts {
		if !c.SoftDeleted {
			all = append(all, c.Clone())
		}
	}
	r.mu.RUnlock()

	sortCarts(all)
	return &domain.PageResult[*domain.Cart]{
		Items: slicePage(all, page),
		Total: int64(len(all)),
		Page:  page,
	}, nil
}

func (r *MemoryCartRepository) openAtVersionLocked(cartID string, expectedVersion int) (*domain.Cart, error) {
	stored, ok := r.carts[cartID]
	if !ok {
		return nil, domain.NewNotFound("cart", cartID)
	}
	if !stored.IsOpen() || stored.Version != expectedVersion {
		return nil, domain.ErrVersionConflict
	}
	return stored, nil
}

func sortCarts(carts []*domain.Cart) {
	sort.Slice(carts, func(i, j int) bool {
		if carts[i].CreatedAt.Equal(carts[j].CreatedAt) {
			return carts[i].ID < carts[j].ID
		}
		return carts[i].CreatedAt.Before(carts[j].CreatedAt)
	})
}
