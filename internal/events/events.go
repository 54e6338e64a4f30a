// Package events defines the wire contracts published to the bus. Events are
// append-only facts; consumers must tolerate unknown fields.
package events

import (
	"time"

	"github.com/shopcore/cart-service/internal/models"
)

const (
	CartTopic     = "cart_events"
	CheckoutTopic = "checkout_events"
)

const (
	TypeCheckoutAttempt = "CHECKOUT_ATTEMPT"
	TypeCheckoutSuccess = "CHECKOUT_SUCCESS"
	TypeCheckoutFailed  = "CHECKOUT_FAILED"
)

// CheckoutEvent records one step of the checkout transition. OrderID is set
// only on CHECKOUT_SUCCESS, Reason only on CHECKOUT_FAILED.
type CheckoutEvent struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Timestamp  time.Time       `json:"timestamp"`
	OwnerID    string          `json:"owner_id"`
	TotalMinor int64           `json:"total_price_minor"`
	Currency   string          `json:"currency"`
	OrderID    string          `json:"order_id,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Address    *models.Address `json:"address,omitempty"`
}

// CartUpdated carries the full canonical snapshot after a cart mutation.
type CartUpdated struct {
	EventType string               `json:"event_type"`
	Timestamp time.Time            `json:"timestamp"`
	Cart      *models.CartSnapshot `json:"cart"`
}

const TypeCartUpdated = "CART_UPDATED"
