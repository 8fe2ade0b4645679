package service

import (
	"context"
	"fmt"

	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/prohmpiriya/storefront/internal/dto"
	"github.com/prohmpiriya/storefront/internal/repository"
	"github.com/prohmpiriya/storefront/pkg/logger"
	"github.com/prohmpiriya/storefront/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// UserService defines the interface for account management
type UserService interface {
	Current(ctx context.Context, userID string) (*domain.User, error)
	// Update changes the target account; only the account owner may do so
	Update(ctx context.Context, principal domain.Principal, targetID string, req *dto.UpdateUserRequest) (*domain.User, error)
	DeleteCurrent(ctx context.Context, userID string) error
	List(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.User], error)
}

type userService struct {
	users  repository.UserRepository
	carts  CartService
	hasher PasswordHasher
	log    *logger.Logger
}

// NewUserService creates a new UserService. When carts is set, deleting an account
// also deletes its open cart so the reserved stock returns to the catalog.
func NewUserService(users repository.UserRepository, carts CartService, hasher PasswordHasher, log *logger.Logger) UserService {
	if log == nil {
		log = logger.NewNop()
	}
	return &userService{users: users, carts: carts, hasher: hasher, log: log}
}

func (s *userService) Current(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.current")
	defer span.End()

	return s.users.FindByID(ctx, userID)
}

func (s *userService) Update(ctx context.Context, principal domain.Principal, targetID string, req *dto.UpdateUserRequest) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.update")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", principal.UserID), attribute.String("target_id", targetID))

	if principal.UserID != targetID {
		span.SetStatus(codes.Error, "not the account owner")
		return nil, fmt.Errorf("%w: cannot update another user", domain.ErrForbidden)
	}

	user, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.apply(ctx, user, req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.users.Update(ctx, user); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return user, nil
}

// apply validates and copies the non-nil request fields onto user
func (s *userService) apply(ctx context.Context, user *domain.User, req *dto.UpdateUserRequest) error {
	if req == nil {
		return nil
	}
	if req.FirstName != nil {
		if err := validateName("first_name", *req.FirstName); err != nil {
			return err
		}
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		if err := validateName("last_name", *req.LastName); err != nil {
			return err
		}
		user.LastName = *req.LastName
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if err := validateEmail(email); err != nil {
			return err
		}
		if email != user.Email {
			exists, err := s.users.ExistsByEmail(ctx, email)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: email already registered", domain.ErrConflict)
			}
			user.Email = email
		}
	}
	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			return err
		}
		digest, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = digest
	}
	return nil
}

// DeleteCurrent soft-deletes the caller; their tokens stop resolving on the next request.
// The open cart goes first: once the account is gone nobody can release it.
func (s *userService) DeleteCurrent(ctx context.Context, userID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.user.delete_current")
	defer span.End()

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := s.dropOpenCart(ctx, userID); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to release open cart: %w", err)
	}

	if err := s.users.SoftDelete(ctx, userID); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.log.Info("user deleted", zap.String("user_id", userID))
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *userService) List(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.User], error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.list")
	defer span.End()

	return s.users.List(ctx, page)
}

func (s *userService) dropOpenCart(ctx context.Context, userID string) error {
	if s.carts == nil {
		return nil
	}
	cart, err := s.carts.FindOpenForUser(ctx, userID)
	if domain.IsNotFoundError(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := s.carts.Delete(ctx, userID, cart.ID); err != nil {
		return err
	}
	s.log.Info("open cart released with account", zap.String("user_id", userID), zap.String("cart_id", cart.ID))
	return nil
}
