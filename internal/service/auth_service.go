package service

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/prohmpiriya/storefront/internal/dto"
	"github.com/prohmpiriya/storefront/internal/metrics"
	"github.com/prohmpiriya/storefront/internal/repository"
	"github.com/prohmpiriya/storefront/pkg/logger"
	"github.com/prohmpiriya/storefront/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// errInvalidCredentials is returned for every failed sign-in so callers cannot tell which accounts exist
var errInvalidCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrUnauthenticated)

var namePattern = regexp.MustCompile(`^[\p{L} ]{2,30}$`)

const minPasswordLength = 8

// TokenIssuer signs access tokens for a principal
type TokenIssuer interface {
	Issue(p domain.Principal) (string, time.Time, error)
}

// AuthService defines the interface for sign-up and sign-in
type AuthService interface {
	Register(ctx context.Context, req *dto.SignupRequest) (*dto.TokenResponse, error)
	Login(ctx context.Context, req *dto.SigninRequest) (*dto.TokenResponse, error)
}

type authService struct {
	users  repository.UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	log    *logger.Logger
	now    func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(users repository.UserRepository, hasher PasswordHasher, tokens TokenIssuer, log *logger.Logger) AuthService {
	if log == nil {
		log = logger.NewNop()
	}
	return &authService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log,
		now:    time.Now,
	}
}

// Register creates an active USER account and returns its first access token
func (s *authService) Register(ctx context.Context, req *dto.SignupRequest) (resp *dto.TokenResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.register")
	defer span.End()
	defer func() { metrics.RecordAuthAttempt("register", metrics.ResultOf(err)) }()

	email := normalizeEmail(req.Email)
	span.SetAttributes(attribute.String("email", email))

	if err := validateSignup(req, email); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if exists {
		span.SetStatus(codes.Error, "email already registered")
		return nil, fmt.Errorf("%w: email already registered", domain.ErrConflict)
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: digest,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         domain.RoleUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// the unique index still decides a concurrent sign-up with the same email
	if err := s.users.Create(ctx, user); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp, err = s.issue(user)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID))
	span.SetAttributes(attribute.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// Login checks credentials and returns an access token
func (s *authService) Login(ctx context.Context, req *dto.SigninRequest) (resp *dto.TokenResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.auth.login")
	defer span.End()
	defer func() { metrics.RecordAuthAttempt("login", metrics.ResultOf(err)) }()

	email := normalizeEmail(req.Email)
	span.SetAttributes(attribute.String("email", email))

	user, err := s.users.FindByEmail(ctx, email)
	if domain.IsNotFoundError(err) {
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, errInvalidCredentials
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if !user.Active || !s.hasher.Verify(req.Password, user.PasswordHash) {
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, errInvalidCredentials
	}

	resp, err = s.issue(user)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("user_id", user.ID))
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

func (s *authService) issue(user *domain.User) (*dto.TokenResponse, error) {
	raw, expiresAt, err := s.tokens.Issue(user.Principal())
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &dto.TokenResponse{
		AccessToken: raw,
		TokenType:   "Bearer",
		ExpiresIn:   int64(expiresAt.Sub(s.now()).Seconds()),
	}, nil
}

func validateSignup(req *dto.SignupRequest, email string) error {
	if err := validateName("first_name", req.FirstName); err != nil {
		return err
	}
	if err := validateName("last_name", req.LastName); err != nil {
		return err
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	return validatePassword(req.Password)
}

func validateName(field, value string) error {
	if !namePattern.MatchString(strings.TrimSpace(value)) {
		return domain.NewValidation(field, "must be 2 to 30 letters or spaces")
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return domain.NewValidation("email", "must be a valid email address")
	}
	return nil
}

func validatePassword(password string) error {
	if len([]rune(password)) < minPasswordLength {
		return domain.NewValidation("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	return nil
}

// normalizeEmail strips surrounding whitespace; addresses stay case-sensitive
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
