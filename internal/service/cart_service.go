package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/prohmpiriya/storefront/internal/dto"
	"github.com/prohmpiriya/storefront/internal/metrics"
	"github.com/prohmpiriya/storefront/internal/repository"
	"github.com/prohmpiriya/storefront/pkg/logger"
	"github.com/prohmpiriya/storefront/pkg/retry"
	"github.com/prohmpiriya/storefront/pkg/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CartService defines the interface for cart business logic
type CartService interface {
	// CreateOrUpdate replaces the line items of the user's open cart, creating it if needed
	CreateOrUpdate(ctx context.Context, userID string, req *dto.CartRequest) (*domain.Cart, error)

	// Delete soft-deletes the user's cart and releases its stock. False means there was nothing to delete.
	Delete(ctx context.Context, userID, cartID string) (bool, error)

	// Confirm turns the user's open cart into an immutable purchase record
	Confirm(ctx context.Context, userID string) (*domain.Cart, error)

	// FindOpenForUser returns the user's open cart
	FindOpenForUser(ctx context.Context, userID string) (*domain.Cart, error)

	// FindConfirmedForUser returns the user's confirmed carts
	FindConfirmedForUser(ctx context.Context, userID string) ([]*domain.Cart, error)

	// ListAll returns a page of non-deleted carts
	ListAll(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.Cart], error)
}

// CartServiceConfig contains configuration for the cart service
type CartServiceConfig struct {
	// MaxAttempts bounds retries after concurrent modification of the same cart (default: 3)
	MaxAttempts int
	// ReleaseRetry governs retries of stock releases on transient failures
	ReleaseRetry *retry.Config
}

type cartService struct {
	carts        repository.CartRepository
	products     repository.ProductRepository
	ledger       repository.InventoryLedger
	events       EventPublisher
	log          *logger.Logger
	maxAttempts  int
	releaseRetry *retry.Config
	now          func() time.Time
}

// stockDelta is a quantity to reserve or release for one product
type stockDelta struct {
	productID string
	qty       int
}

// NewCartService creates a new cart service
func NewCartService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	ledger repository.InventoryLedger,
	events EventPublisher,
	log *logger.Logger,
	cfg *CartServiceConfig,
) CartService {
	if cfg == nil {
		cfg = &CartServiceConfig{}
	}
	if events == nil {
		events = NewNoOpEventPublisher()
	}
	if log == nil {
		log = logger.NewNop()
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	releaseRetry := cfg.ReleaseRetry
	if releaseRetry == nil {
		releaseRetry = retry.DefaultConfig()
	}
	rc := *releaseRetry
	rc.RetryIf = domain.IsTransientError

	return &cartService{
		carts:        carts,
		products:     products,
		ledger:       ledger,
		events:       events,
		log:          log,
		maxAttempts:  maxAttempts,
		releaseRetry: &rc,
		now:          time.Now,
	}
}

// CreateOrUpdate reconciles the requested quantities against stock and the previous line items.
// Additional quantities are reserved before the save; freed quantities are released after it.
func (s *cartService) CreateOrUpdate(ctx context.Context, userID string, req *dto.CartRequest) (cart *domain.Cart, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.cart.create_or_update")
	defer span.End()
	defer func() { s.finish(span, "create_or_update", err) }()

	span.SetAttributes(attribute.String("user_id", userID))

	order, requested, err := normalizeItems(req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("item_count", len(order)))

	prices, err := s.resolvePrices(ctx, order)
	if err != nil {
		return nil, err
	}
	if amount := requestedAmount(requested, prices); !amount.LessThan(domain.MaxCartAmount) {
		return nil, domain.NewValidation("items", "cart amount must be less than "+domain.MaxCartAmount.String())
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		current, err := s.openCart(ctx, userID)
		if err != nil {
			return nil, err
		}

		additions, removals := diffQuantities(current.Quantities(), requested, order)

		if err := s.reserveAll(ctx, additions); err != nil {
			return nil, err
		}

		next := current.Clone()
		next.ReplaceItems(requested, prices)

		err = s.carts.Save(ctx, next, current.Version)
		if errors.Is(err, domain.ErrVersionConflict) {
			s.releaseAll(ctx, additions)
			span.AddEvent("version_conflict")
			s.log.Debug("cart modified concurrently, retrying",
				zap.String("cart_id", current.ID), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			s.releaseAll(ctx, additions)
			return nil, fmt.Errorf("failed to save cart: %w", err)
		}

		s.releaseAll(ctx, removals)
		s.publish(ctx, domain.CartEventUpdated, next)

		span.SetAttributes(attribute.String("cart_id", next.ID), attribute.String("amount", next.Amount.String()))
		return next, nil
	}

	return nil, fmt.Errorf("%w: cart for user %s kept changing", domain.ErrConflict, userID)
}

// Delete soft-deletes the cart, then releases every held quantity
func (s *cartService) Delete(ctx context.Context, userID, cartID string) (deleted bool, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.cart.delete")
	defer span.End()
	defer func() { s.finish(span, "delete", err) }()

	span.SetAttributes(attribute.String("user_id", userID), attribute.String("cart_id", cartID))

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		cart, err := s.carts.FindByID(ctx, cartID)
		if domain.IsNotFoundError(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		// other users' carts are reported as absent
		if cart.UserID != userID || cart.SoftDeleted {
			return false, nil
		}
		if cart.Confirmed {
			return false, domain.ErrConfirmedCartImmutable
		}

		err = s.carts.MarkDeleted(ctx, cart.ID, cart.Version)
		if errors.Is(err, domain.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("failed to delete cart: %w", err)
		}

		s.releaseAll(ctx, heldQuantities(cart))
		cart.SoftDeleted = true
		cart.Version++
		s.publish(ctx, domain.CartEventDeleted, cart)
		return true, nil
	}

	return false, fmt.Errorf("%w: cart %s kept changing", domain.ErrConflict, cartID)
}

// Confirm makes the reservations of the open cart permanent
func (s *cartService) Confirm(ctx context.Context, userID string) (cart *domain.Cart, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.cart.confirm")
	defer span.End()
	defer func() { s.finish(span, "confirm", err) }()

	span.SetAttributes(attribute.String("user_id", userID))

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		cart, err := s.carts.FindOpenByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(cart.Items) == 0 {
			return nil, domain.NewValidation("items", "cannot confirm an empty cart")
		}

		err = s.carts.MarkConfirmed(ctx, cart.ID, cart.Version)
		if errors.Is(err, domain.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to confirm cart: %w", err)
		}

		cart.Confirmed = true
		cart.Version++
		cart.UpdatedAt = s.now()
		s.publish(ctx, domain.CartEventConfirmed, cart)

		span.SetAttributes(attribute.String("cart_id", cart.ID))
		return cart, nil
	}

	return nil, fmt.Errorf("%w: cart for user %s kept changing", domain.ErrConflict, userID)
}

func (s *cartService) FindOpenForUser(ctx context.Context, userID string) (*domain.Cart, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.cart.find_open")
	defer span.End()

	cart, err := s.carts.FindOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartService) FindConfirmedForUser(ctx context.Context, userID string) ([]*domain.Cart, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.cart.find_confirmed")
	defer span.End()

	carts, err := s.carts.FindConfirmedByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(carts) == 0 {
		return nil, domain.NewNotFound("confirmed cart", "")
	}
	return carts, nil
}

func (s *cartService) ListAll(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.Cart], error) {
	ctx, span := telemetry.StartSpan(ctx, "service.cart.list_all")
	defer span.End()

	return s.carts.List(ctx, page)
}

// openCart returns the user's open cart, creating an empty one when absent
func (s *cartService) openCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.FindOpenByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !domain.IsNotFoundError(err) {
		return nil, err
	}

	now := s.now()
	cart = &domain.Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     []domain.LineItem{},
		Amount:    decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.carts.CreateOpen(ctx, cart)
	if errors.Is(err, domain.ErrOpenCartExists) {
		// lost the race: use the winner's cart
		return s.carts.FindOpenByUser(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return cart, nil
}

// resolvePrices loads every requested product, failing on the first missing one
func (s *cartService) resolvePrices(ctx context.Context, order []string) (map[string]decimal.Decimal, error) {
	products, err := s.products.FindAllByIDs(ctx, order)
	if err != nil {
		return nil, err
	}

	prices := make(map[string]decimal.Decimal, len(products))
	for _, p := range products {
		prices[p.ID] = p.Price
	}
	for _, id := range order {
		if _, ok := prices[id]; !ok {
			return nil, domain.NewNotFound("product", id)
		}
	}
	return prices, nil
}

// reserveAll reserves every delta or none. On failure the applied reservations are
// released even if ctx is done, and the first failure is returned.
func (s *cartService) reserveAll(ctx context.Context, deltas []stockDelta) error {
	applied := make([]stockDelta, 0, len(deltas))
	for _, d := range deltas {
		if err := s.ledger.Reserve(ctx, d.productID, d.qty); err != nil {
			if errors.Is(err, domain.ErrInsufficientStock) {
				metrics.RecordReservation(metrics.ResultRefused)
			} else {
				metrics.RecordReservation(metrics.ResultFailure)
			}
			s.releaseAll(ctx, applied)
			return err
		}
		metrics.RecordReservation(metrics.ResultSuccess)
		applied = append(applied, d)
	}
	return nil
}

// releaseAll returns stock, retrying transient failures on a context that outlives the request
func (s *cartService) releaseAll(ctx context.Context, deltas []stockDelta) {
	if len(deltas) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	for _, d := range deltas {
		d := d
		err := retry.Do(detached, s.releaseRetry, func(ctx context.Context) error {
			return s.ledger.Release(ctx, d.productID, d.qty)
		})
		if err != nil {
			s.log.Error("failed to release stock",
				zap.String("product_id", d.productID),
				zap.Int("quantity", d.qty),
				zap.Error(err),
			)
		}
	}
}

func (s *cartService) publish(ctx context.Context, eventType domain.CartEventType, cart *domain.Cart) {
	var err error
	detached := context.WithoutCancel(ctx)
	switch eventType {
	case domain.CartEventUpdated:
		err = s.events.PublishCartUpdated(detached, cart)
	case domain.CartEventConfirmed:
		err = s.events.PublishCartConfirmed(detached, cart)
	case domain.CartEventDeleted:
		err = s.events.PublishCartDeleted(detached, cart)
	}
	if err != nil {
		s.log.Warn("failed to publish cart event",
			zap.String("event_type", string(eventType)),
			zap.String("cart_id", cart.ID),
			zap.Error(err),
		)
	}
}

func (s *cartService) finish(span trace.Span, operation string, err error) {
	metrics.RecordCartOperation(operation, metrics.ResultOf(err))
	if err != nil {
		telemetry.RecordError(span, err)
		return
	}
	span.SetStatus(codes.Ok, "")
}

// normalizeItems validates the request and sums duplicate product ids, keeping first-seen order
func normalizeItems(req *dto.CartRequest) ([]string, map[string]int, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, nil, domain.NewValidation("items", "at least one item is required")
	}

	order := make([]string, 0, len(req.Items))
	quantities := make(map[string]int, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == "" {
			return nil, nil, domain.NewValidation("product_id", "is required")
		}
		if item.Quantity < 1 {
			return nil, nil, domain.NewValidation("quantity", "must be at least 1")
		}
		if item.Quantity > domain.MaxQuantity-quantities[item.ProductID] {
			return nil, nil, domain.NewValidation("quantity", fmt.Sprintf("must be at most %d per product", domain.MaxQuantity))
		}
		if _, seen := quantities[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		quantities[item.ProductID] += item.Quantity
	}
	return order, quantities, nil
}

func requestedAmount(quantities map[string]int, prices map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for id, qty := range quantities {
		total = total.Add(prices[id].Mul(decimal.NewFromInt(int64(qty))))
	}
	return total
}

// diffQuantities splits the change from held to requested into reservations and releases.
// Additions follow request order; removals cover dropped products too.
func diffQuantities(held, requested map[string]int, order []string) (additions, removals []stockDelta) {
	for _, id := range order {
		if d := requested[id] - held[id]; d > 0 {
			additions = append(additions, stockDelta{productID: id, qty: d})
		}
	}
	for id, qty := range held {
		if d := qty - requested[id]; d > 0 {
			removals = append(removals, stockDelta{productID: id, qty: d})
		}
	}
	return additions, removals
}

func heldQuantities(cart *domain.Cart) []stockDelta {
	out := make([]stockDelta, 0, len(cart.Items))
	for _, item := range cart.Items {
		out = append(out, stockDelta{productID: item.ProductID, qty: item.Quantity})
	}
	return out
}
