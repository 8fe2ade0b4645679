package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Limits of the stored columns: INTEGER quantities, NUMERIC(12,2) prices, NUMERIC(14,2) amounts
const (
	MaxQuantity = math.MaxInt32
	PriceScale  = 2
)

var (
	MaxPrice      = decimal.New(1, 10)
	MaxCartAmount = decimal.New(1, 12)
)

// Product is a catalog entry with its live stock counter
type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	QuantityInStock int             `json:"quantity_in_stock"`
	SoftDeleted     bool            `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Validate checks the mutable product fields
func (p *Product) Validate() error {
	if n := len([]rune(p.Name)); n < 2 || n > 80 {
		return NewValidation("name", "must be between 2 and 80 characters")
	}
	if n := len([]rune(p.Description)); n > 80 {
		return NewValidation("description", "must be at most 80 characters")
	}
	if err := ValidatePrice(p.Price); err != nil {
		return err
	}
	if p.QuantityInStock < 0 {
		return NewValidation("quantity_in_stock", "cannot be negative")
	}
	if p.QuantityInStock > MaxQuantity {
		return NewValidation("quantity_in_stock", fmt.Sprintf("must be at most %d", MaxQuantity))
	}
	return nil
}

// ValidatePrice rejects prices the catalog cannot store exactly
func ValidatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return NewValidation("price", "cannot be negative")
	}
	if !price.Equal(price.Round(PriceScale)) {
		return NewValidation("price", fmt.Sprintf("must have at most %d decimal places", PriceScale))
	}
	if !price.LessThan(MaxPrice) {
		return NewValidation("price", "must be less than "+MaxPrice.String())
	}
	return nil
}
