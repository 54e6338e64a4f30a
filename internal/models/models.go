package models

import (
	"encoding/json"
	"time"
)

const DefaultCurrency = "EUR"

// Cart is the per-owner header row. TotalMinor is denormalized and refreshed
// from cart_items inside every mutating transaction.
type Cart struct {
	OwnerID    string    `gorm:"column:owner_id;primaryKey;size:64"          json:"owner_id"`
	Currency   string    `gorm:"size:3;not null;default:EUR"                 json:"currency"`
	TotalMinor int64     `gorm:"column:total_price_minor;not null;default:0" json:"total_price_minor"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Cart) TableName() string {
	return "carts"
}

type CartItem struct {
	OwnerID        string          `gorm:"column:owner_id;primaryKey;size:64"  json:"owner_id"`
	ItemID         string          `gorm:"column:item_id;primaryKey;size:64"   json:"item_id"`
	SKU            string          `gorm:"column:sku"                          json:"sku,omitempty"`
	Name           string          `json:"name,omitempty"`
	UnitPriceMinor int64           `gorm:"not null;default:0"                  json:"unit_price_minor"`
	Quantity       uint            `gorm:"not null;default:1;check:quantity>0" json:"quantity"`
	Metadata       json.RawMessage `gorm:"type:jsonb"                          json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// Order is the durable record written by the orders subscriber from
// CHECKOUT_SUCCESS events.
type Order struct {
	ID         string    `gorm:"primaryKey;size:64"                     json:"id"`
	OwnerID    string    `gorm:"column:owner_id;index;not null;size:64" json:"owner_id"`
	TotalMinor int64     `gorm:"column:total_price_minor;not null"      json:"total_price_minor"`
	Currency   string    `gorm:"size:3;not null"                        json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Order) TableName() string {
	return "orders"
}

// CartSnapshot is the canonical read shape: header plus items ordered by
// creation time, then item id.
type CartSnapshot struct {
	OwnerID    string     `json:"owner_id"`
	Currency   string     `json:"currency"`
	TotalMinor int64      `json:"total_price_minor"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Items      []CartItem `json:"items"`
}

// Address is the shipping address attached to a checkout request.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}
