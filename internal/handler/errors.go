package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/prohmpiriya/storefront/pkg/logger"
	"github.com/prohmpiriya/storefront/pkg/middleware"
	"github.com/prohmpiriya/storefront/pkg/response"
	"go.uber.org/zap"
)

// handleError maps a service error onto the response envelope
func handleError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		stockErr *domain.StockError
		validErr *domain.ValidationError
	)

	switch {
	case errors.As(err, &stockErr):
		response.Error(c, http.StatusConflict, "INSUFFICIENT_STOCK", "Insufficient stock", stockErr.ProductID)
	case errors.As(err, &validErr):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", validErr.Error(), validErr.Field)
	case errors.Is(err, domain.ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), "")
	case errors.Is(err, domain.ErrUnauthenticated):
		response.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Invalid email or password", "")
	case errors.Is(err, domain.ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions", "")
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrConfirmedCartImmutable):
		response.Error(c, http.StatusConflict, "CART_CONFIRMED", "Confirmed cart cannot be modified", "")
	case errors.Is(err, domain.ErrConflict):
		response.Error(c, http.StatusConflict, "CONFLICT", err.Error(), "")
	case errors.Is(err, domain.ErrTransient):
		logger.Get().Warn("store unavailable",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		response.Error(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable", "")
	default:
		logger.Get().Error("unhandled error",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		details := ""
		if gin.Mode() != gin.ReleaseMode {
			details = err.Error()
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error", details)
	}
}

// bindError answers a malformed or invalid request body
func bindError(c *gin.Context, err error) {
	response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", err.Error())
}
