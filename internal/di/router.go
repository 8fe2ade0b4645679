package di

import (
	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/storefront/internal/auth"
	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/prohmpiriya/storefront/internal/metrics"
	"github.com/prohmpiriya/storefront/pkg/middleware"
	"github.com/prohmpiriya/storefront/pkg/telemetry"
)

// RouterConfig selects the optional middleware of the HTTP surface
type RouterConfig struct {
	ServiceName string
	// Limiter guards the credential endpoints; nil disables rate limiting
	Limiter   middleware.Limiter
	RateLimit middleware.RateLimitConfig
	// Idempotency applies to cart writes; nil disables it
	Idempotency *middleware.IdempotencyConfig
}

// NewRouter builds the gin engine with every route of the storefront
func NewRouter(c *Container, cfg RouterConfig) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(telemetry.TracingMiddleware(cfg.ServiceName))
	router.Use(metrics.Middleware())
	router.Use(middleware.Logger(c.Log))

	// Health check endpoints
	router.GET("/health", c.HealthHandler.Health)
	router.GET("/ready", c.HealthHandler.Ready)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	rateLimited := passThrough
	if cfg.Limiter != nil {
		rateLimited = middleware.RateLimit(cfg.Limiter, cfg.RateLimit)
	}
	idempotent := passThrough
	if cfg.Idempotency != nil {
		idempotent = middleware.Idempotency(cfg.Idempotency)
	}
	authenticated := auth.Authenticate(c.Resolver)

	v1 := router.Group("/api/v1")

	authRoutes := v1.Group("/auth", rateLimited)
	{
		authRoutes.POST("/signup", c.AuthHandler.Signup)
		authRoutes.POST("/signin", c.AuthHandler.Signin)
	}

	user := v1.Group("/user", authenticated)
	{
		user.GET("/current", c.UserHandler.Current)
		user.PUT("/:id", c.UserHandler.Update)
		user.DELETE("", c.UserHandler.DeleteCurrent)

		user.GET("/products", c.ProductHandler.List)
		user.GET("/products/:id", c.ProductHandler.Get)

		user.POST("/cart", idempotent, c.CartHandler.CreateOrUpdate)
		user.GET("/cart", c.CartHandler.Open)
		user.GET("/cart/confirmed", c.CartHandler.Confirmed)
		user.POST("/cart/confirm", idempotent, c.CartHandler.Confirm)
		user.DELETE("/cart/:id", c.CartHandler.Delete)
	}

	admin := v1.Group("/admin", authenticated)
	{
		admin.GET("/users", auth.RequirePermission(domain.PermAdminRead), c.UserHandler.List)
		admin.GET("/carts", auth.RequirePermission(domain.PermAdminRead), c.CartHandler.ListAll)

		admin.GET("/products", auth.RequirePermission(domain.PermAdminRead), c.ProductHandler.AdminList)
		admin.POST("/products", auth.RequirePermission(domain.PermAdminCreate), c.ProductHandler.Create)
		admin.PUT("/products/:id", auth.RequirePermission(domain.PermAdminUpdate), c.ProductHandler.Update)
		admin.POST("/products/:id/restock", auth.RequirePermission(domain.PermAdminUpdate), c.ProductHandler.Restock)
		admin.DELETE("/products/:id", auth.RequirePermission(domain.PermAdminDelete), c.ProductHandler.Delete)
	}

	return router
}

func passThrough(c *gin.Context) { c.Next() }
