package transport

import (
	"encoding/json"

	"github.com/shopcore/cart-service/internal/models"
)

type ItemPayload struct {
	ItemID         string          `json:"item_id"`
	SKU            string          `json:"sku,omitempty"`
	Name           string          `json:"name,omitempty"`
	UnitPriceMinor int64           `json:"unit_price_minor"`
	Quantity       uint            `json:"quantity"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

func (p ItemPayload) Model() models.CartItem {
	return models.CartItem{
		ItemID:         p.ItemID,
		SKU:            p.SKU,
		Name:           p.Name,
		UnitPriceMinor: p.UnitPriceMinor,
		Quantity:       p.Quantity,
		Metadata:       p.Metadata,
	}
}

type ReplaceCartRequest struct {
	Currency string        `json:"currency,omitempty"`
	Items    []ItemPayload `json:"items"`
}

type AddItemRequest struct {
	ItemPayload
	Merge bool `json:"merge,omitempty"`
}

type SetQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type CheckoutRequest struct {
	Address *models.Address `json:"address"`
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}
