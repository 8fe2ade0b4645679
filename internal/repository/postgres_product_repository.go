package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	productNameConstraint = "products_active_name_key"
	productSelect         = `id::text, name, description, price::text, quantity_in_stock, soft_deleted, created_at, updated_at`
)

// PostgresProductRepository implements ProductRepository using PostgreSQL
type PostgresProductRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresProductRepository creates a new PostgresProductRepository
func NewPostgresProductRepository(pool *pgxpool.Pool) *PostgresProductRepository {
	return &PostgresProductRepository{pool: pool}
}

func (r *PostgresProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, name, description, price, quantity_in_stock, soft_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, FALSE, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query, p.ID, p.Name, p.Description, p.Price.String(), p.QuantityInStock, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err, productNameConstraint) {
		return fmt.Errorf("%w: product name %q already in use", domain.ErrConflict, p.Name)
	}
	return classifyError(err)
}

func (r *PostgresProductRepository) Update(ctx context.Context, p *domain.Product) error {
	if !validID(p.ID) {
		return domain.NewNotFound("product", p.ID)
	}
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4::numeric, updated_at = $5
		WHERE id = $1 AND NOT soft_deleted
		RETURNING ` + productSelect
	updated, err := scanProduct(r.pool.QueryRow(ctx, query, p.ID, p.Name, p.Description, p.Price.String(), time.Now()))
	switch {
	case isNoRows(err):
		return domain.NewNotFound("product", p.ID)
	case isUniqueViolation(err, productNameConstraint):
		return fmt.Errorf("%w: product name %q already in use", domain.ErrConflict, p.Name)
	case err != nil:
		return classifyError(err)
	}
	*p = *updated
	return nil
}

func (r *PostgresProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	if !validID(id) {
		return nil, domain.NewNotFound("product", id)
	}
	query := `SELECT ` + productSelect + ` FROM products WHERE id = $1 AND NOT soft_deleted`
	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if isNoRows(err) {
		return nil, domain.NewNotFound("product", id)
	}
	return p, classifyError(err)
}

func (r *PostgresProductRepository) FindAllByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []*domain.Product{}, nil
	}

	query := `SELECT ` + productSelect + ` FROM products WHERE id = ANY($1::uuid[]) AND NOT soft_deleted`
	rows, err := r.pool.Query(ctx, query, valid)
	if err != nil {
		return nil, classifyError(err)
	}
	return collectProducts(rows, len(valid))
}

func (r *PostgresProductRepository) ExistsActiveByName(ctx context.Context, name, excludeID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM products WHERE LOWER(name) = LOWER($1) AND NOT soft_deleted AND id::text <> $2)`
	err := r.pool.QueryRow(ctx, query, name, excludeID).Scan(&exists)
	return exists, classifyError(err)
}

func (r *PostgresProductRepository) SoftDelete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.NewNotFound("product", id)
	}
	tag, err := r.pool.Exec(ctx, `UPDATE products SET soft_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT soft_deleted`, id)
	if err != nil {
		return classifyError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFound("product", id)
	}
	return nil
}

func (r *PostgresProductRepository) ListActive(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.Product], error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE NOT soft_deleted`).Scan(&total); err != nil {
		return nil, classifyError(err)
	}

	query := `SELECT ` + productSelect + ` FROM products WHERE NOT soft_deleted ORDER BY LOWER(name), id LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, page.Size, page.Offset())
	if err != nil {
		return nil, classifyError(err)
	}
	items, err := collectProducts(rows, page.Size)
	if err != nil {
		return nil, err
	}
	return &domain.PageResult[*domain.Product]{Items: items, Total: total, Page: page}, nil
}

func collectProducts(rows pgx.Rows, capacity int) ([]*domain.Product, error) {
	defer rows.Close()

	out := make([]*domain.Product, 0, capacity)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, classifyError(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err)
	}
	return out, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.QuantityInStock, &p.SoftDeleted, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", price, err)
	}
	p.Price = d
	return &p, nil
}
