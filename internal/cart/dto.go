package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddItemInput is the payload for adding a variant to the cart.
type AddItemInput struct {
	VariantID uuid.UUID `json:"variant_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// UpdateItemInput carries the optional fields a buyer can patch on a cart item.
type UpdateItemInput struct {
	Quantity   *int  `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	IsSelected *bool `json:"is_selected,omitempty"`
}

// ItemView is the cart item shape returned to clients.
type ItemView struct {
	ID          uuid.UUID       `json:"id"`
	VariantID   uuid.UUID       `json:"variant_id"`
	ProductID   uuid.UUID       `json:"product_id,omitempty"`
	ProductName string          `json:"product_name,omitempty"`
	VariantName string          `json:"variant_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	IsSelected  bool            `json:"is_selected"`
}

// View is the full cart shape. Total is derived over selected items on every
// read and never persisted.
type View struct {
	CartID uuid.UUID       `json:"cart_id"`
	Items  []ItemView      `json:"items"`
	Total  decimal.Decimal `json:"total"`
}
