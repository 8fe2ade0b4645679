package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CartStatus is the lifecycle state derived from the confirmed and deleted flags
type CartStatus string

const (
	CartStatusOpen      CartStatus = "OPEN"
	CartStatusConfirmed CartStatus = "CONFIRMED"
	CartStatusDeleted   CartStatus = "DELETED"
)

// LineItem is a product quantity held by a cart, priced at the last recompute
type LineItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Cart is a user's basket. Items reserve stock while it is open.
type Cart struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Items       []LineItem      `json:"items"`
	Amount      decimal.Decimal `json:"amount"`
	Confirmed   bool            `json:"confirmed"`
	SoftDeleted bool            `json:"-"`
	Version     int             `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Status returns the lifecycle state
func (c *Cart) Status() CartStatus {
	switch {
	case c.SoftDeleted:
		return CartStatusDeleted
	case c.Confirmed:
		return CartStatusConfirmed
	default:
		return CartStatusOpen
	}
}

// IsOpen reports whether the cart may still be modified
func (c *Cart) IsOpen() bool {
	return c.Status() == CartStatusOpen
}

// Quantities maps product id to held quantity
func (c *Cart) Quantities() map[string]int {
	q := make(map[string]int, len(c.Items))
	for _, item := range c.Items {
		q[item.ProductID] += item.Quantity
	}
	return q
}

// ReplaceItems swaps the line items for the requested set and recomputes the amount.
// prices must hold a price for every requested product.
func (c *Cart) ReplaceItems(quantities map[string]int, prices map[string]decimal.Decimal) {
	items := make([]LineItem, 0, len(quantities))
	for id, qty := range quantities {
		items = append(items, LineItem{ProductID: id, Quantity: qty, UnitPrice: prices[id]})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	c.Items = items
	c.Amount = ComputeAmount(items)
}

// ComputeAmount sums unit price times quantity
func ComputeAmount(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Clone returns a deep copy
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = make([]LineItem, len(c.Items))
	copy(cp.Items, c.Items)
	return &cp
}
