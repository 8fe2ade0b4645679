package repository

import (
	"context"
	"fmt"

	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/prohmpiriya/storefront/pkg/cache"
	"github.com/prohmpiriya/storefront/pkg/logger"
	"go.uber.org/zap"
)

const catalogKeyPrefix = "catalog:"

// CachedProductRepository serves catalog pages through a cache and invalidates them on writes.
// Stock counters may lag by up to the cache TTL on cached pages.
type CachedProductRepository struct {
	ProductRepository
	loader *cache.Loader
	log    *logger.Logger
}

// NewCachedProductRepository wraps next with a catalog cache
func NewCachedProductRepository(next ProductRepository, loader *cache.Loader, log *logger.Logger) *CachedProductRepository {
	if log == nil {
		log = logger.NewNop()
	}
	return &CachedProductRepository{ProductRepository: next, loader: loader, log: log}
}

func (r *CachedProductRepository) ListActive(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.Product], error) {
	key := fmt.Sprintf("%slist:%d:%d", catalogKeyPrefix, page.Number, page.Size)
	var out domain.PageResult[*domain.Product]
	err := r.loader.Load(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return r.ProductRepository.ListActive(ctx, page)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Uncached returns the wrapped repository
func (r *CachedProductRepository) Uncached() ProductRepository {
	return r.ProductRepository
}

func (r *CachedProductRepository) Create(ctx context.Context, p *domain.Product) error {
	if err := r.ProductRepository.Create(ctx, p); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedProductRepository) Update(ctx context.Context, p *domain.Product) error {
	if err := r.ProductRepository.Update(ctx, p); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedProductRepository) SoftDelete(ctx context.Context, id string) error {
	if err := r.ProductRepository.SoftDelete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

// Invalidate drops every cached catalog page
func (r *CachedProductRepository) Invalidate(ctx context.Context) {
	r.invalidate(ctx)
}

func (r *CachedProductRepository) invalidate(ctx context.Context) {
	if err := r.loader.Invalidate(context.WithoutCancel(ctx), catalogKeyPrefix); err != nil {
		r.log.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}
