package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartEventType identifies a cart lifecycle event
type CartEventType string

const (
	CartEventUpdated   CartEventType = "cart.updated"
	CartEventConfirmed CartEventType = "cart.confirmed"
	CartEventDeleted   CartEventType = "cart.deleted"
)

// CartEvent is published after a cart lifecycle transition
type CartEvent struct {
	EventID    string          `json:"event_id"`
	EventType  CartEventType   `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	CartID     string          `json:"cart_id"`
	UserID     string          `json:"user_id"`
	Items      []LineItem      `json:"items"`
	Amount     decimal.Decimal `json:"amount"`
	Version    int             `json:"version"`
}

// NewCartEvent snapshots a cart into an event
func NewCartEvent(eventID string, t CartEventType, cart *Cart, at time.Time) *CartEvent {
	items := make([]LineItem, len(cart.Items))
	copy(items, cart.Items)
	return &CartEvent{
		EventID:    eventID,
		EventType:  t,
		OccurredAt: at,
		CartID:     cart.ID,
		UserID:     cart.UserID,
		Items:      items,
		Amount:     cart.Amount,
		Version:    cart.Version,
	}
}
