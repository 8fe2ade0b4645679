package dto

import (
	"time"

	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// CartItemRequest is one requested product quantity
type CartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1,max=2147483647"`
}

// CartRequest replaces the line items of the caller's open cart
type CartRequest struct {
	Items []CartItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CartItemResponse is a line item in API responses
type CartItemResponse struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// CartResponse represents a cart in API responses
type CartResponse struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	Status    string             `json:"status"`
	Items     []CartItemResponse `json:"items"`
	Amount    decimal.Decimal    `json:"amount"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// DeleteCartResponse reports whether a cart was deleted by this call
type DeleteCartResponse struct {
	Deleted bool `json:"deleted"`
}

// NewCartResponse converts a domain cart
func NewCartResponse(c *domain.Cart) *CartResponse {
	items := make([]CartItemResponse, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, CartItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	return &CartResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		Status:    string(c.Status()),
		Items:     items,
		Amount:    c.Amount,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// NewCartResponses converts a slice of carts
func NewCartResponses(carts []*domain.Cart) []*CartResponse {
	out := make([]*CartResponse, 0, len(carts))
	for _, c := range carts {
		out = append(out, NewCartResponse(c))
	}
	return out
}
