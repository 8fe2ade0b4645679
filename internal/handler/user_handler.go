package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/storefront/internal/auth"
	"github.com/prohmpiriya/storefront/internal/dto"
	"github.com/prohmpiriya/storefront/internal/service"
	"github.com/prohmpiriya/storefront/pkg/response"
)

// UserHandler handles account HTTP requests
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Current returns the caller's profile
// GET /api/v1/user/current
func (h *UserHandler) Current(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		response.Unauthorized(c, "Invalid or missing credentials")
		return
	}

	user, err := h.userService.Current(c.Request.Context(), principal.UserID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, dto.NewUserResponse(user))
}

// Update changes the caller's own profile
// PUT /api/v1/user/:id
func (h *UserHandler) Update(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		response.Unauthorized(c, "Invalid or missing credentials")
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.userService.Update(c.Request.Context(), principal, c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, dto.NewUserResponse(user))
}

// DeleteCurrent closes the caller's account
// DELETE /api/v1/user
func (h *UserHandler) DeleteCurrent(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		response.Unauthorized(c, "Invalid or missing credentials")
		return
	}

	if err := h.userService.DeleteCurrent(c.Request.Context(), principal.UserID); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

// List returns a page of active users
// GET /api/v1/admin/users
func (h *UserHandler) List(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.userService.List(c.Request.Context(), q.ToPage())
	if err != nil {
		handleError(c, err)
		return
	}

	response.Paginated(c, dto.NewUserResponses(result.Items), pageMeta(result.Page, result.Total))
}
