package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/prohmpiriya/storefront/internal/dto"
	"github.com/prohmpiriya/storefront/internal/repository"
	"github.com/prohmpiriya/storefront/pkg/logger"
	"github.com/prohmpiriya/storefront/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ProductService defines the interface for catalog management
type ProductService interface {
	Create(ctx context.Context, req *dto.CreateProductRequest) (*domain.Product, error)
	Update(ctx context.Context, id string, req *dto.UpdateProductRequest) (*domain.Product, error)
	// Restock adds qty units to the product's stock
	Restock(ctx context.Context, id string, qty int) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*domain.Product, error)
	// ListActive is the shopper catalog and may be served from cache
	ListActive(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.Product], error)
	// ListActiveFresh always reads the store
	ListActiveFresh(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.Product], error)
}

// catalogCache is implemented by repositories that cache catalog pages
type catalogCache interface {
	Uncached() repository.ProductRepository
	Invalidate(ctx context.Context)
}

type productService struct {
	catalog repository.ProductRepository
	store   repository.ProductRepository
	cache   catalogCache
	ledger  repository.InventoryLedger
	log     *logger.Logger
	now     func() time.Time
}

// NewProductService creates a new ProductService. When products caches catalog pages,
// writes go around the cache and invalidate it.
func NewProductService(products repository.ProductRepository, ledger repository.InventoryLedger, log *logger.Logger) ProductService {
	if log == nil {
		log = logger.NewNop()
	}
	s := &productService{
		catalog: products,
		store:   products,
		ledger:  ledger,
		log:     log,
		now:     time.Now,
	}
	if c, ok := products.(catalogCache); ok {
		s.cache = c
		s.store = c.Uncached()
	}
	return s
}

func (s *productService) Create(ctx context.Context, req *dto.CreateProductRequest) (*domain.Product, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.product.create")
	defer span.End()

	now := s.now()
	product := &domain.Product{
		ID:              uuid.New().String(),
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		QuantityInStock: req.QuantityInStock,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	span.SetAttributes(attribute.String("name", product.Name))

	if err := product.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := s.checkNameFree(ctx, product.Name, ""); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.store.Create(ctx, product); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.invalidate(ctx)

	s.log.Info("product created", zap.String("product_id", product.ID), zap.String("name", product.Name))
	span.SetAttributes(attribute.String("product_id", product.ID))
	span.SetStatus(codes.Ok, "")
	return product, nil
}

func (s *productService) Update(ctx context.Context, id string, req *dto.UpdateProductRequest) (*domain.Product, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.product.update")
	defer span.End()

	span.SetAttributes(attribute.String("product_id", id))

	product, err := s.store.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	renamed := false
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		renamed = name != product.Name
		product.Name = name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}

	if err := product.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if renamed {
		if err := s.checkNameFree(ctx, product.Name, product.ID); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	if err := s.store.Update(ctx, product); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.invalidate(ctx)

	span.SetStatus(codes.Ok, "")
	return product, nil
}

func (s *productService) Restock(ctx context.Context, id string, qty int) (*domain.Product, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.product.restock")
	defer span.End()

	span.SetAttributes(attribute.String("product_id", id), attribute.Int("quantity", qty))

	if qty < 1 || qty > domain.MaxQuantity {
		return nil, domain.NewValidation("quantity", fmt.Sprintf("must be between 1 and %d", domain.MaxQuantity))
	}
	if _, err := s.store.FindByID(ctx, id); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.ledger.Release(ctx, id, qty); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to restock product: %w", err)
	}
	s.invalidate(ctx)

	product, err := s.store.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.log.Info("product restocked",
		zap.String("product_id", id),
		zap.Int("quantity", qty),
		zap.Int("stock", product.QuantityInStock),
	)
	span.SetStatus(codes.Ok, "")
	return product, nil
}

func (s *productService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.product.delete")
	defer span.End()

	span.SetAttributes(attribute.String("product_id", id))

	if err := s.store.SoftDelete(ctx, id); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	s.invalidate(ctx)

	s.log.Info("product deleted", zap.String("product_id", id))
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *productService) Get(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.product.get")
	defer span.End()

	return s.store.FindByID(ctx, id)
}

func (s *productService) ListActive(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.Product], error) {
	ctx, span := telemetry.StartSpan(ctx, "service.product.list_active")
	defer span.End()

	return s.catalog.ListActive(ctx, page)
}

func (s *productService) ListActiveFresh(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.Product], error) {
	ctx, span := telemetry.StartSpan(ctx, "service.product.list_active_fresh")
	defer span.End()

	return s.store.ListActive(ctx, page)
}

func (s *productService) checkNameFree(ctx context.Context, name, excludeID string) error {
	taken, err := s.store.ExistsActiveByName(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: product name %q already in use", domain.ErrConflict, name)
	}
	return nil
}

func (s *productService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}
