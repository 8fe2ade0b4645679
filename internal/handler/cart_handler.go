package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/storefront/internal/auth"
	"github.com/prohmpiriya/storefront/internal/dto"
	"github.com/prohmpiriya/storefront/internal/service"
	"github.com/prohmpiriya/storefront/pkg/response"
)

// CartHandler handles cart HTTP requests
type CartHandler struct {
	cartService service.CartService
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// CreateOrUpdate replaces the line items of the caller's open cart
// POST /api/v1/user/cart
func (h *CartHandler) CreateOrUpdate(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		response.Unauthorized(c, "Invalid or missing credentials")
		return
	}

	var req dto.CartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	cart, err := h.cartService.CreateOrUpdate(c.Request.Context(), principal.UserID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, dto.NewCartResponse(cart))
}

// Open returns the caller's open cart
// GET /api/v1/user/cart
func (h *CartHandler) Open(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		response.Unauthorized(c, "Invalid or missing credentials")
		return
	}

	cart, err := h.cartService.FindOpenForUser(c.Request.Context(), principal.UserID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, dto.NewCartResponse(cart))
}

// Confirmed returns the caller's purchase history
// GET /api/v1/user/cart/confirmed
func (h *CartHandler) Confirmed(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		response.Unauthorized(c, "Invalid or missing credentials")
		return
	}

	carts, err := h.cartService.FindConfirmedForUser(c.Request.Context(), principal.UserID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, dto.NewCartResponses(carts))
}

// Confirm checks out the caller's open cart
// POST /api/v1/user/cart/confirm
func (h *CartHandler) Confirm(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		response.Unauthorized(c, "Invalid or missing credentials")
		return
	}

	cart, err := h.cartService.Confirm(c.Request.Context(), principal.UserID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, dto.NewCartResponse(cart))
}

// Delete discards one of the caller's carts
// DELETE /api/v1/user/cart/:id
func (h *CartHandler) Delete(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		response.Unauthorized(c, "Invalid or missing credentials")
		return
	}

	deleted, err := h.cartService.Delete(c.Request.Context(), principal.UserID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, dto.DeleteCartResponse{Deleted: deleted})
}

// ListAll returns a page of all live carts
// GET /api/v1/admin/carts
func (h *CartHandler) ListAll(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.cartService.ListAll(c.Request.Context(), q.ToPage())
	if err != nil {
		handleError(c, err)
		return
	}

	response.Paginated(c, dto.NewCartResponses(result.Items), pageMeta(result.Page, result.Total))
}
