package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/prohmpiriya/storefront/pkg/database"
	"github.com/shopspring/decimal"
)

const (
	openCartConstraint = "carts_open_user_key"
	cartSelect         = `id::text, user_id::text, amount::text, confirmed, soft_deleted, version, created_at, updated_at`
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresCartRepository implements CartRepository using PostgreSQL
type PostgresCartRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCartRepository creates a new PostgresCartRepository
func NewPostgresCartRepository(pool *pgxpool.Pool) *PostgresCartRepository {
	return &PostgresCartRepository{pool: pool}
}

func (r *PostgresCartRepository) FindOpenByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	if !validID(userID) {
		return nil, domain.NewNotFound("open cart", "")
	}
	query := `SELECT ` + cartSelect + ` FROM carts WHERE user_id = $1 AND NOT confirmed AND NOT soft_deleted`
	return r.findOne(ctx, query, "open cart", userID)
}

func (r *PostgresCartRepository) FindByID(ctx context.Context, id string) (*domain.Cart, error) {
	if !validID(id) {
		return nil, domain.NewNotFound("cart", id)
	}
	query := `SELECT ` + cartSelect + ` FROM carts WHERE id = $1`
	return r.findOne(ctx, query, "cart", id)
}

func (r *PostgresCartRepository) FindConfirmedByUser(ctx context.Context, userID string) ([]*domain.Cart, error) {
	if !validID(userID) {
		return []*domain.Cart{}, nil
	}
	query := `SELECT ` + cartSelect + ` FROM carts WHERE user_id = $1 AND confirmed AND NOT soft_deleted ORDER BY created_at, id`
	return r.findMany(ctx, query, userID)
}

func (r *PostgresCartRepository) CreateOpen(ctx context.Context, cart *domain.Cart) error {
	query := `
		INSERT INTO carts (id, user_id, amount, confirmed, soft_deleted, version, created_at, updated_at)
		VALUES ($1, $2, 0, FALSE, FALSE, 1, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query, cart.ID, cart.UserID, cart.CreatedAt, cart.UpdatedAt)
	if isUniqueViolation(err, openCartConstraint) {
		return domain.ErrOpenCartExists
	}
	if err != nil {
		return classifyError(err)
	}
	cart.Version = 1
	return nil
}

func (r *PostgresCartRepository) Save(ctx context.Context, cart *domain.Cart, expectedVersion int) error {
	now := time.Now()
	err := database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE carts
			SET amount = $3::numeric, version = version + 1, updated_at = $4
			WHERE id = $1 AND version = $2 AND NOT confirmed AND NOT soft_deleted
		`, cart.ID, expectedVersion, cart.Amount.String(), now)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrVersionConflict
		}

		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, item := range cart.Items {
			batch.Queue(`INSERT INTO cart_items (cart_id, product_id, quantity, unit_price) VALUES ($1, $2, $3, $4::numeric)`,
				cart.ID, item.ProductID, item.Quantity, item.UnitPrice.String())
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		return classifyError(err)
	}

	cart.Version = expectedVersion + 1
	cart.UpdatedAt = now
	return nil
}

func (r *PostgresCartRepository) MarkDeleted(ctx context.Context, cartID string, expectedVersion int) error {
	return r.transition(ctx, `soft_deleted = TRUE`, cartID, expectedVersion)
}

func (r *PostgresCartRepository) MarkConfirmed(ctx context.Context, cartID string, expectedVersion int) error {
	return r.transition(ctx, `confirmed = TRUE`, cartID, expectedVersion)
}

func (r *PostgresCartRepository) List(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.Cart], error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM carts WHERE NOT soft_deleted`).Scan(&total); err != nil {
		return nil, classifyError(err)
	}

	query := `SELECT ` + cartSelect + ` FROM carts WHERE NOT soft_deleted ORDER BY created_at, id LIMIT $1 OFFSET $2`
	carts, err := r.findMany(ctx, query, page.Size, page.Offset())
	if err != nil {
		return nil, err
	}
	return &domain.PageResult[*domain.Cart]{Items: carts, Total: total, Page: page}, nil
}

// transition applies a terminal state change to an open cart at expectedVersion
func (r *PostgresCartRepository) transition(ctx context.Context, set, cartID string, expectedVersion int) error {
	if !validID(cartID) {
		return domain.NewNotFound("cart", cartID)
	}
	query := fmt.Sprintf(`
		UPDATE carts
		SET %s, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND NOT confirmed AND NOT soft_deleted
	`, set)
	tag, err := r.pool.Exec(ctx, query, cartID, expectedVersion)
	if err != nil {
		return classifyError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

func (r *PostgresCartRepository) findOne(ctx context.Context, query, entity, arg string) (*domain.Cart, error) {
	cart, err := scanCart(r.pool.QueryRow(ctx, query, arg))
	if isNoRows(err) {
		if entity == "cart" {
			return nil, domain.NewNotFound(entity, arg)
		}
		return nil, domain.NewNotFound(entity, "")
	}
	if err != nil {
		return nil, classifyError(err)
	}

	items, err := loadItems(ctx, r.pool, []string{cart.ID})
	if err != nil {
		return nil, err
	}
	cart.Items = items[cart.ID]
	if cart.Items == nil {
		cart.Items = []domain.LineItem{}
	}
	return cart, nil
}

func (r *PostgresCartRepository) findMany(ctx context.Context, query string, args ...any) ([]*domain.Cart, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyError(err)
	}

	carts := []*domain.Cart{}
	ids := []string{}
	for rows.Next() {
		c, err := scanCart(rows)
		if err != nil {
			rows.Close()
			return nil, classifyError(err)
		}
		carts = append(carts, c)
		ids = append(ids, c.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, classifyError(err)
	}
	if len(ids) == 0 {
		return carts, nil
	}

	items, err := loadItems(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range carts {
		c.Items = items[c.ID]
		if c.Items == nil {
			c.Items = []domain.LineItem{}
		}
	}
	return carts, nil
}

func loadItems(ctx context.Context, q querier, cartIDs []string) (map[string][]domain.LineItem, error) {
	rows, err := q.Query(ctx, `
		SELECT cart_id::text, product_id::text, quantity, unit_price::text
		FROM cart_items
		WHERE cart_id = ANY($1::uuid[])
		ORDER BY cart_id, product_id
	`, cartIDs)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	out := make(map[string][]domain.LineItem, len(cartIDs))
	for rows.Next() {
		var (
			cartID string
			item   domain.LineItem
			price  string
		)
		if err := rows.Scan(&cartID, &item.ProductID, &item.Quantity, &price); err != nil {
			return nil, classifyError(err)
		}
		if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("invalid unit price %q: %w", price, err)
		}
		out[cartID] = append(out[cartID], item)
	}
	return out, classifyError(rows.Err())
}

func scanCart(row pgx.Row) (*domain.Cart, error) {
	var (
		c      domain.Cart
		amount string
	)
	if err := row.Scan(&c.ID, &c.UserID, &amount, &c.Confirmed, &c.SoftDeleted, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	c.Amount = d
	return &c, nil
}
