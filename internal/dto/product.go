package dto

import (
	"time"

	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to add a catalog entry
type CreateProductRequest struct {
	Name            string           `json:"name" binding:"required"`
	Description     string           `json:"description"`
	Price           *decimal.Decimal `json:"price" binding:"required"`
	QuantityInStock int              `json:"quantity_in_stock" binding:"min=0,max=2147483647"`
}

// UpdateProductRequest represents a catalog update; stock is changed only by restock
type UpdateProductRequest struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
}

// RestockRequest adds stock to a product
type RestockRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1,max=2147483647"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	QuantityInStock int             `json:"quantity_in_stock"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewProductResponse converts a domain product
func NewProductResponse(p *domain.Product) *ProductResponse {
	return &ProductResponse{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Price:           p.Price,
		QuantityInStock: p.QuantityInStock,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// NewProductResponses converts a slice of products
func NewProductResponses(products []*domain.Product) []*ProductResponse {
	out := make([]*ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, NewProductResponse(p))
	}
	return out
}
