package middleware

import "github.com/gin-gonic/gin"

// Gin context keys set by the authentication middleware
const (
	ContextKeyUserID = "user_id"
	ContextKeyEmail  = "email"
	ContextKeyRole   = "role"
)

// GetUserID returns the authenticated user id, if any
func GetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(ContextKeyUserID)
	return id, id != ""
}
