// Package token issues and verifies HS256 access tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prohmpiriya/storefront/internal/domain"
)

var (
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
	ErrMalformed        = errors.New("token is malformed")
)

// Config holds token settings
type Config struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// Claims are the verified contents of a token
type Claims struct {
	UserID    string
	Email     string
	Role      domain.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens with one symmetric secret
type Service struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a token service
func NewService(cfg Config, opts ...Option) *Service {
	s := &Service{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the lifetime of issued tokens
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for the principal
func (s *Service) Issue(p domain.Principal) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := tokenClaims{
		UserID: p.UserID,
		Role:   string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Email,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature, then expiry, then the required claims.
// A token whose segments no longer decode as base64 JSON fails as ErrMalformed before any
// signature check; a well-formed payload altered after signing fails as ErrInvalidSignature.
func (s *Service) Verify(raw string) (*Claims, error) {
	parsed := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, parsed, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	if parsed.UserID == "" || parsed.Subject == "" {
		return nil, ErrMalformed
	}
	if s.issuer != "" && parsed.Issuer != s.issuer {
		return nil, ErrMalformed
	}

	c := &Claims{
		UserID: parsed.UserID,
		Email:  parsed.Subject,
		Role:   domain.Role(parsed.Role),
	}
	if parsed.IssuedAt != nil {
		c.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		c.ExpiresAt = parsed.ExpiresAt.Time
	}
	return c, nil
}
