package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/storefront/internal/di"
	"github.com/prohmpiriya/storefront/internal/metrics"
	"github.com/prohmpiriya/storefront/internal/service"
	"github.com/prohmpiriya/storefront/internal/token"
	"github.com/prohmpiriya/storefront/migrations"
	"github.com/prohmpiriya/storefront/pkg/config"
	"github.com/prohmpiriya/storefront/pkg/database"
	"github.com/prohmpiriya/storefront/pkg/logger"
	"github.com/prohmpiriya/storefront/pkg/middleware"
	pkgredis "github.com/prohmpiriya/storefront/pkg/redis"
	"github.com/prohmpiriya/storefront/pkg/telemetry"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(&logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting storefront",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("storage", cfg.Storage.Backend),
	)

	ctx := context.Background()

	// Initialize tracing
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn("Tracing disabled", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	if err := metrics.Init(nil); err != nil {
		appLog.Fatal("Failed to register metrics", zap.Error(err))
	}

	// Initialize database connection
	var db *database.PostgresDB
	if cfg.Storage.Backend == config.StorageBackendPostgres {
		if err := cfg.ValidateDatabase(); err != nil {
			appLog.Fatal("Invalid database config", zap.Error(err))
		}
		dbCfg := di.PostgresConfig(cfg, cfg.OTel.Enabled)
		db, err = database.NewPostgres(ctx, dbCfg)
		if err != nil {
			appLog.Fatal("Database connection failed", zap.Error(err))
		}
		defer db.Close()
		appLog.Info("Database connected", zap.Int32("max_conns", dbCfg.MaxConns))

		if err := migrate(cfg); err != nil {
			appLog.Fatal("Database migration failed", zap.Error(err))
		}
	} else {
		appLog.Warn("Using in-memory store, data is lost on restart")
	}

	// Initialize Redis connection
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, di.RedisConfig(cfg))
		if err != nil {
			appLog.Warn("Redis connection failed, using local cache and limiter", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			appLog.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
		}
	}

	// Initialize Kafka event publisher
	var eventPublisher service.EventPublisher = service.NewNoOpEventPublisher()
	if cfg.Kafka.Enabled {
		kp, err := service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			ServiceName: cfg.App.Name,
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn("Kafka connection failed, using no-op publisher", zap.Error(err))
		} else {
			eventPublisher = kp
			appLog.Info("Kafka event publisher connected", zap.String("topic", cfg.Kafka.Topic))
		}
	}

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:             db,
		Redis:          redisClient,
		Log:            appLog,
		EventPublisher: eventPublisher,
		Token: token.Config{
			Secret: cfg.JWT.Secret,
			TTL:    cfg.JWT.AccessTokenTTL,
			Issuer: cfg.JWT.Issuer,
		},
		BcryptCost: cfg.Security.BcryptCost,
		CatalogTTL: cfg.Cache.CatalogTTL,
	})
	defer container.Close()

	// Rate limiting and idempotency
	rlCfg := middleware.DefaultRateLimitConfig()
	rlCfg.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
	rlCfg.BurstSize = cfg.RateLimit.BurstSize

	routerCfg := di.RouterConfig{
		ServiceName: cfg.OTel.ServiceName,
		RateLimit:   rlCfg,
	}
	if redisClient != nil {
		routerCfg.Limiter = middleware.NewRedisRateLimiter(redisClient, rlCfg)
		routerCfg.Idempotency = middleware.DefaultIdempotencyConfig(redisClient)
	} else {
		local := middleware.NewLocalRateLimiter(rlCfg)
		defer local.Stop()
		routerCfg.Limiter = local
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := di.NewRouter(container, routerCfg)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		appLog.Info("Storefront listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}

func migrate(cfg *config.Config) error {
	m, err := database.NewMigrator(migrations.FS, ".", cfg.Database.URL())
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}
