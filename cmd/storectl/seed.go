package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/prohmpiriya/storefront/internal/repository"
	"github.com/prohmpiriya/storefront/internal/service"
	"github.com/prohmpiriya/storefront/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type demoProduct struct {
	name        string
	description string
	price       string
	stock       int
}

var demoProducts = []demoProduct{
	{"Espresso Beans", "Dark roast, 1kg bag", "18.90", 120},
	{"Pour Over Kettle", "Gooseneck kettle, 1 litre", "42.00", 35},
	{"Ceramic Dripper", "Single cup dripper", "24.50", 60},
	{"Paper Filters", "Pack of 100", "6.75", 500},
}

type seedReport struct {
	adminCreated    bool
	productsCreated int
}

type seeder struct {
	users    repository.UserRepository
	products repository.ProductRepository
	hasher   service.PasswordHasher
	log      *logger.Logger
	now      func() time.Time
}

// run is idempotent: existing admin and products are left untouched
func (s *seeder) run(ctx context.Context, adminEmail, adminPassword string) (*seedReport, error) {
	if s.now == nil {
		s.now = time.Now
	}
	report := &seedReport{}

	created, err := s.ensureAdmin(ctx, adminEmail, adminPassword)
	if err != nil {
		return nil, err
	}
	report.adminCreated = created

	for _, p := range demoProducts {
		ok, err := s.ensureProduct(ctx, p)
		if err != nil {
			return nil, err
		}
		if ok {
			report.productsCreated++
		}
	}
	return report, nil
}

func (s *seeder) ensureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, nil
	}
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if exists {
		s.log.Info("admin already present", zap.String("email", email))
		return false, nil
	}
	if len(password) < 8 {
		return false, fmt.Errorf("SEED_ADMIN_PASSWORD must be at least 8 characters")
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return false, err
	}
	now := s.now()
	err = s.users.Create(ctx, &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: digest,
		FirstName:    "Store",
		LastName:     "Admin",
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return false, fmt.Errorf("failed to create admin: %w", err)
	}
	return true, nil
}

func (s *seeder) ensureProduct(ctx context.Context, p demoProduct) (bool, error) {
	taken, err := s.products.ExistsActiveByName(ctx, p.name, "")
	if err != nil {
		return false, err
	}
	if taken {
		return false, nil
	}

	now := s.now()
	product := &domain.Product{
		ID:              uuid.New().String(),
		Name:            p.name,
		Description:     p.description,
		Price:           decimal.RequireFromString(p.price),
		QuantityInStock: p.stock,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := product.Validate(); err != nil {
		return false, err
	}
	if err := s.products.Create(ctx, product); err != nil {
		return false, fmt.Errorf("failed to create product %q: %w", p.name, err)
	}
	return true, nil
}
