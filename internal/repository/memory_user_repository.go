package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prohmpiriya/storefront/internal/domain"
)

// MemoryUserRepository implements UserRepository using in-memory storage
type MemoryUserRepository struct {
	users   map[string]*domain.User
	byEmail map[string]string // email -> userID, inactive users included
	mu      sync.RWMutex
}

// NewMemoryUserRepository creates a new in-memory user repository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:   make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return domain.ErrConflict
	}
	u := *user
	r.users[u.ID] = &u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *MemoryUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok || !u.Active {
		return nil, domain.NewNotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, domain.NewNotFound("user", "")
	}
	u := r.users[id]
	if !u.Active {
		return nil, domain.NewNotFound("user", "")
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *MemoryUserRepository) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok || !existing.Active {
		return domain.NewNotFound("user", user.ID)
	}
	if user.Email != existing.Email {
		if _, taken := r.byEmail[user.Email]; taken {
			return domain.ErrConflict
		}
		delete(r.byEmail, existing.Email)
		r.byEmail[user.Email] = user.ID
	}

	u := *user
	u.Role = existing.Role
	u.Active = existing.Active
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now()
	r.users[u.ID] = &u
	*user = u
	return nil
}

func (r *MemoryUserRepository) SoftDelete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || !u.Active {
		return domain.NewNotFound("user", id)
	}
	u.Active = false
	u.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserRepository) List(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.User], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		if u.Active {
			cp := *u
			active = append(active, &cp)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].ID < active[j].ID
		}
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})

	return &domain.PageResult[*domain.User]{
		Items: slicePage(active, page),
		Total: int64(len(active)),
		Page:  page,
	}, nil
}

func slicePage[T any](all []T, page domain.Page) []T {
	start := page.Offset()
	if start >= len(all) {
		return []T{}
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
