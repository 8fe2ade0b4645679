// Package auth turns bearer tokens into principals and gates privileged routes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/prohmpiriya/storefront/internal/token"
	"github.com/prohmpiriya/storefront/pkg/logger"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// Verifier verifies raw tokens
type Verifier interface {
	Verify(raw string) (*token.Claims, error)
}

// UserLookup finds active users by id
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Resolver maps an Authorization header to a Principal
type Resolver struct {
	verifier Verifier
	users    UserLookup
	log      *logger.Logger
}

// NewResolver creates a resolver
func NewResolver(verifier Verifier, users UserLookup, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewNop()
	}
	return &Resolver{verifier: verifier, users: users, log: log}
}

// Resolve authenticates the header. Every failure except a store outage is ErrUnauthenticated.
func (r *Resolver) Resolve(ctx context.Context, header string) (domain.Principal, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	raw := strings.TrimSpace(header[len(bearerPrefix):])
	if raw == "" {
		return domain.Principal{}, domain.ErrUnauthenticated
	}

	claims, err := r.verifier.Verify(raw)
	if err != nil {
		r.log.Debug("token rejected", zap.Error(err))
		return domain.Principal{}, domain.ErrUnauthenticated
	}

	user, err := r.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrTransient) {
			return domain.Principal{}, fmt.Errorf("resolve principal: %w", err)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			r.log.Warn("user lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
		}
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	if !user.Active {
		return domain.Principal{}, domain.ErrUnauthenticated
	}

	return user.Principal(), nil
}

// Authorize checks that the principal's role grants the permission
func Authorize(p domain.Principal, required domain.Permission) error {
	if !p.Role.HasPermission(required) {
		return fmt.Errorf("%w: %s requires %s", domain.ErrForbidden, p.Role, required)
	}
	return nil
}
