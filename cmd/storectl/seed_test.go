package main

import (
	"context"
	"testing"

	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/prohmpiriya/storefront/internal/repository"
	"github.com/prohmpiriya/storefront/internal/service"
	"github.com/prohmpiriya/storefront/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestSeeder() (*seeder, *repository.MemoryUserRepository, *repository.MemoryProductRepository) {
	users := repository.NewMemoryUserRepository()
	products := repository.NewMemoryProductRepository()
	return &seeder{
		users:    users,
		products: products,
		hasher:   service.NewBcryptHasher(bcrypt.MinCost),
		log:      logger.NewNop(),
	}, users, products
}

func TestSeeder_Idempotent(t *testing.T) {
	ctx := context.Background()
	s, users, products := newTestSeeder()

	report, err := s.run(ctx, "admin@store.test", "admin-password")
	require.NoError(t, err)
	assert.True(t, report.adminCreated)
	assert.Equal(t, len(demoProducts), report.productsCreated)

	admin, err := users.FindByEmail(ctx, "admin@store.test")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	report, err = s.run(ctx, "admin@store.test", "admin-password")
	require.NoError(t, err)
	assert.False(t, report.adminCreated)
	assert.Zero(t, report.productsCreated)

	page, err := products.ListActive(ctx, domain.NewPage(0, 50))
	require.NoError(t, err)
	assert.Equal(t, int64(len(demoProducts)), page.Total)
}

func TestSeeder_RejectsWeakAdminPassword(t *testing.T) {
	s, _, _ := newTestSeeder()

	_, err := s.run(context.Background(), "admin@store.test", "short")
	assert.Error(t, err)
}

func TestSeeder_SkipsAdminWithoutEmail(t *testing.T) {
	s, _, _ := newTestSeeder()

	report, err := s.run(context.Background(), "", "")
	require.NoError(t, err)
	assert.False(t, report.adminCreated)
	assert.Equal(t, len(demoProducts), report.productsCreated)
}

func TestRootCmd_Structure(t *testing.T) {
	root := newRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["migrate"])
	assert.True(t, names["seed"])

	migrate, _, err := root.Find([]string{"migrate", "down"})
	require.NoError(t, err)
	assert.NotNil(t, migrate.Flags().Lookup("steps"))
}
