package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/prohmpiriya/storefront/pkg/middleware"
	"github.com/prohmpiriya/storefront/pkg/response"
)

const contextKeyPrincipal = "principal"

// Authenticate resolves the caller and stores the principal in the gin context
func Authenticate(r *Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := r.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			if errors.Is(err, domain.ErrTransient) {
				response.Abort(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
				return
			}
			response.Unauthorized(c, "Invalid or missing credentials")
			return
		}

		c.Set(contextKeyPrincipal, p)
		c.Set(middleware.ContextKeyUserID, p.UserID)
		c.Set(middleware.ContextKeyEmail, p.Email)
		c.Set(middleware.ContextKeyRole, string(p.Role))
		c.Next()
	}
}

// RequirePermission aborts unless the authenticated principal holds p
func RequirePermission(p domain.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			response.Unauthorized(c, "Invalid or missing credentials")
			return
		}
		if err := Authorize(principal, p); err != nil {
			response.Forbidden(c, "Insufficient permissions")
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the principal set by Authenticate
func PrincipalFrom(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(contextKeyPrincipal)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}
