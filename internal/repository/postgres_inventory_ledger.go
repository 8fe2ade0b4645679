package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/storefront/internal/domain"
)

// PostgresInventoryLedger implements InventoryLedger with single-statement conditional updates
type PostgresInventoryLedger struct {
	pool *pgxpool.Pool
}

// NewPostgresInventoryLedger creates a new PostgresInventoryLedger
func NewPostgresInventoryLedger(pool *pgxpool.Pool) *PostgresInventoryLedger {
	return &PostgresInventoryLedger{pool: pool}
}

// Reserve decrements stock only when enough is available
func (l *PostgresInventoryLedger) Reserve(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return domain.NewValidation("quantity", "must be greater than zero")
	}
	if !validID(productID) {
		return domain.NewNotFound("product", productID)
	}

	query := `
		UPDATE products
		SET quantity_in_stock = quantity_in_stock - $2, updated_at = NOW()
		WHERE id = $1 AND NOT soft_deleted AND quantity_in_stock >= $2
	`
	tag, err := l.pool.Exec(ctx, query, productID, qty)
	if err != nil {
		return classifyError(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	existsQuery := `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1 AND NOT soft_deleted)`
	if err := l.pool.QueryRow(ctx, existsQuery, productID).Scan(&exists); err != nil {
		return classifyError(err)
	}
	if !exists {
		return domain.NewNotFound("product", productID)
	}
	return &domain.StockError{ProductID: productID, Requested: qty}
}

// Release returns stock, including to soft-deleted products
func (l *PostgresInventoryLedger) Release(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return nil
	}
	if !validID(productID) {
		return domain.NewNotFound("product", productID)
	}

	if qty > domain.MaxQuantity {
		return domain.NewValidation("quantity", "stock would exceed the maximum")
	}

	query := `
		UPDATE products
		SET quantity_in_stock = quantity_in_stock + $2, updated_at = NOW()
		WHERE id = $1 AND quantity_in_stock <= $3::integer - $2::integer
	`
	tag, err := l.pool.Exec(ctx, query, productID, qty, domain.MaxQuantity)
	if err != nil {
		return classifyError(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := l.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return classifyError(err)
	}
	if !exists {
		return domain.NewNotFound("product", productID)
	}
	return domain.NewValidation("quantity", "stock would exceed the maximum")
}
