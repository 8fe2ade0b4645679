package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/storefront/internal/domain"
)

const (
	userColumns = `id, email, password_hash, first_name, last_name, role, active, created_at, updated_at`
	userSelect  = `id::text, email, password_hash, first_name, last_name, role, active, created_at, updated_at`
)

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create creates a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		string(user.Role),
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err, "") {
		return fmt.Errorf("%w: email already registered", domain.ErrConflict)
	}
	return classifyError(err)
}

// FindByID retrieves an active user by ID
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, domain.NewNotFound("user", id)
	}
	query := `SELECT ` + userSelect + ` FROM users WHERE id = $1 AND active`
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if isNoRows(err) {
		return nil, domain.NewNotFound("user", id)
	}
	return user, classifyError(err)
}

// FindByEmail retrieves an active user by email
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userSelect + ` FROM users WHERE email = $1 AND active`
	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if isNoRows(err) {
		return nil, domain.NewNotFound("user", "")
	}
	return user, classifyError(err)
}

// ExistsByEmail checks if any user, active or not, holds the email
func (r *PostgresUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, classifyError(err)
}

// Update writes profile fields of an active user. Role and active flag are not writable here.
func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET email = $2, password_hash = $3, first_name = $4, last_name = $5, updated_at = $6
		WHERE id = $1 AND active
		RETURNING ` + userSelect
	user.UpdatedAt = time.Now()
	updated, err := scanUser(r.pool.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.UpdatedAt,
	))
	switch {
	case isNoRows(err):
		return domain.NewNotFound("user", user.ID)
	case isUniqueViolation(err, ""):
		return fmt.Errorf("%w: email already registered", domain.ErrConflict)
	case err != nil:
		return classifyError(err)
	}
	*user = *updated
	return nil
}

// SoftDelete deactivates a user
func (r *PostgresUserRepository) SoftDelete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.NewNotFound("user", id)
	}
	tag, err := r.pool.Exec(ctx, `UPDATE users SET active = FALSE, updated_at = NOW() WHERE id = $1 AND active`, id)
	if err != nil {
		return classifyError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFound("user", id)
	}
	return nil
}

// List returns a page of active users
func (r *PostgresUserRepository) List(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.User], error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE active`).Scan(&total); err != nil {
		return nil, classifyError(err)
	}

	query := `SELECT ` + userSelect + ` FROM users WHERE active ORDER BY created_at, id LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, page.Size, page.Offset())
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0, page.Size)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, classifyError(err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err)
	}

	return &domain.PageResult[*domain.User]{Items: users, Total: total, Page: page}, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&role,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}
