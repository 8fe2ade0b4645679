package repository

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prohmpiriya/storefront/internal/domain"
)

// UserRepository stores accounts. Inactive users are invisible to every lookup.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *domain.User) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.User], error)
}

// ProductRepository stores catalog entries. Stock is only changed through InventoryLedger.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	// FindAllByIDs returns the active products among ids; missing ids are omitted
	FindAllByIDs(ctx context.Context, ids []string) ([]*domain.Product, error)
	ExistsActiveByName(ctx context.Context, name, excludeID string) (bool, error)
	SoftDelete(ctx context.Context, id string) error
	ListActive(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.Product], error)
}

// CartRepository stores carts and their line items
type CartRepository interface {
	FindOpenByUser(ctx context.Context, userID string) (*domain.Cart, error)
	FindConfirmedByUser(ctx context.Context, userID string) ([]*domain.Cart, error)
	// FindByID returns the cart in any state, including deleted
	FindByID(ctx context.Context, id string) (*domain.Cart, error)
	// CreateOpen inserts an empty open cart, or fails with ErrOpenCartExists
	CreateOpen(ctx context.Context, cart *domain.Cart) error
	// Save replaces items and amount of an open cart at expectedVersion and bumps the version
	Save(ctx context.Context, cart *domain.Cart, expectedVersion int) error
	// MarkDeleted soft-deletes an open cart at expectedVersion
	MarkDeleted(ctx context.Context, cartID string, expectedVersion int) error
	// MarkConfirmed confirms an open cart at expectedVersion
	MarkConfirmed(ctx context.Context, cartID string, expectedVersion int) error
	List(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.Cart], error)
}

// InventoryLedger owns product stock counters
type InventoryLedger interface {
	// Reserve atomically decrements stock, or fails without change
	Reserve(ctx context.Context, productID string, qty int) error
	// Release increments stock; qty <= 0 is a no-op
	Release(ctx context.Context, productID string, qty int) error
}

const uniqueViolation = "23505"

// classifyError turns connectivity failures into ErrTransient and leaves the rest untouched
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrTransient) {
		return err
	}

	var (
		connectErr *pgconn.ConnectError
		netErr     net.Error
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		pgconn.Timeout(err),
		pgconn.SafeToRetry(err),
		errors.As(err, &connectErr),
		errors.As(err, &netErr),
		errors.Is(err, net.ErrClosed):
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// validID reports whether id can be a primary key; anything else is simply absent
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
