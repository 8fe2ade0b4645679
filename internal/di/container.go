package di

import (
	"time"

	"github.com/prohmpiriya/storefront/internal/auth"
	"github.com/prohmpiriya/storefront/internal/handler"
	"github.com/prohmpiriya/storefront/internal/repository"
	"github.com/prohmpiriya/storefront/internal/service"
	"github.com/prohmpiriya/storefront/internal/token"
	"github.com/prohmpiriya/storefront/pkg/cache"
	"github.com/prohmpiriya/storefront/pkg/database"
	"github.com/prohmpiriya/storefront/pkg/logger"
	pkgredis "github.com/prohmpiriya/storefront/pkg/redis"
)

// Container holds all dependencies of the storefront
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *pkgredis.Client
	Log   *logger.Logger

	// Repositories
	UserRepo    repository.UserRepository
	ProductRepo repository.ProductRepository
	CartRepo    repository.CartRepository
	Ledger      repository.InventoryLedger

	// Auth
	Tokens   *token.Service
	Resolver *auth.Resolver

	// Publishers
	EventPublisher service.EventPublisher

	// Services
	AuthService    service.AuthService
	UserService    service.UserService
	ProductService service.ProductService
	CartService    service.CartService

	// Handlers
	HealthHandler  *handler.HealthHandler
	AuthHandler    *handler.AuthHandler
	UserHandler    *handler.UserHandler
	ProductHandler *handler.ProductHandler
	CartHandler    *handler.CartHandler
}

// ContainerConfig contains configuration for building the container.
// A nil DB selects the in-memory store; a nil Redis selects the local catalog cache.
type ContainerConfig struct {
	DB             *database.PostgresDB
	Redis          *pkgredis.Client
	Log            *logger.Logger
	EventPublisher service.EventPublisher
	Token          token.Config
	BcryptCost     int
	CatalogTTL     time.Duration
	CartConfig     *service.CartServiceConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}
	events := cfg.EventPublisher
	if events == nil {
		events = service.NewNoOpEventPublisher()
	}

	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		Log:            log,
		EventPublisher: events,
	}

	// Initialize repositories
	var store repository.ProductRepository
	if cfg.DB != nil {
		pool := cfg.DB.Pool()
		c.UserRepo = repository.NewPostgresUserRepository(pool)
		c.CartRepo = repository.NewPostgresCartRepository(pool)
		c.Ledger = repository.NewPostgresInventoryLedger(pool)
		store = repository.NewPostgresProductRepository(pool)
	} else {
		products := repository.NewMemoryProductRepository()
		c.UserRepo = repository.NewMemoryUserRepository()
		c.CartRepo = repository.NewMemoryCartRepository()
		c.Ledger = repository.NewMemoryInventoryLedger(products)
		store = products
	}

	ttl := cfg.CatalogTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	var backend cache.Cache
	if cfg.Redis != nil {
		backend = cache.NewRedisCache(cfg.Redis)
	} else {
		backend = cache.NewLocalCache(ttl, 2*ttl)
	}
	c.ProductRepo = repository.NewCachedProductRepository(store, cache.NewLoader(backend, ttl), log)

	// Initialize auth
	c.Tokens = token.NewService(cfg.Token)
	c.Resolver = auth.NewResolver(c.Tokens, c.UserRepo, log)

	// Initialize services
	hasher := service.NewBcryptHasher(cfg.BcryptCost)
	c.AuthService = service.NewAuthService(c.UserRepo, hasher, c.Tokens, log)
	c.ProductService = service.NewProductService(c.ProductRepo, c.Ledger, log)
	c.CartService = service.NewCartService(c.CartRepo, c.ProductRepo, c.Ledger, c.EventPublisher, log, cfg.CartConfig)
	c.UserService = service.NewUserService(c.UserRepo, c.CartService, hasher, log)

	// Initialize handlers
	checks := map[string]handler.HealthChecker{}
	if c.DB != nil {
		checks["postgres"] = c.DB
	}
	if c.Redis != nil {
		checks["redis"] = c.Redis
	}
	c.HealthHandler = handler.NewHealthHandler(checks)
	c.AuthHandler = handler.NewAuthHandler(c.AuthService)
	c.UserHandler = handler.NewUserHandler(c.UserService)
	c.ProductHandler = handler.NewProductHandler(c.ProductService)
	c.CartHandler = handler.NewCartHandler(c.CartService)

	return c
}

// Close releases the publisher; pools are owned by the caller
func (c *Container) Close() error {
	return c.EventPublisher.Close()
}
