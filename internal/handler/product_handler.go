package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/storefront/internal/dto"
	"github.com/prohmpiriya/storefront/internal/service"
	"github.com/prohmpiriya/storefront/pkg/response"
)

// ProductHandler handles catalog HTTP requests for shoppers and admins
type ProductHandler struct {
	productService service.ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// List returns a page of the catalog
// GET /api/v1/user/products
func (h *ProductHandler) List(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.productService.ListActive(c.Request.Context(), q.ToPage())
	if err != nil {
		handleError(c, err)
		return
	}

	response.Paginated(c, dto.NewProductResponses(result.Items), pageMeta(result.Page, result.Total))
}

// Get returns one product
// GET /api/v1/user/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.productService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, dto.NewProductResponse(product))
}

// AdminList returns a page of the catalog read straight from the store
// GET /api/v1/admin/products
func (h *ProductHandler) AdminList(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.productService.ListActiveFresh(c.Request.Context(), q.ToPage())
	if err != nil {
		handleError(c, err)
		return
	}

	response.Paginated(c, dto.NewProductResponses(result.Items), pageMeta(result.Page, result.Total))
}

// Create adds a product
// POST /api/v1/admin/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	product, err := h.productService.Create(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, dto.NewProductResponse(product))
}

// Update changes name, description or price
// PUT /api/v1/admin/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	var req dto.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	product, err := h.productService.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, dto.NewProductResponse(product))
}

// Restock adds stock
// POST /api/v1/admin/products/:id/restock
func (h *ProductHandler) Restock(c *gin.Context) {
	var req dto.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	product, err := h.productService.Restock(c.Request.Context(), c.Param("id"), req.Quantity)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, dto.NewProductResponse(product))
}

// Delete soft-deletes a product
// DELETE /api/v1/admin/products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.productService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}
