package checkout

import (
	"github.com/google/uuid"

	"github.com/soukhq/souk-backend/pkg/types"
)

// Input is the checkout request payload. ItemIDs is optional: when empty, all
// selected cart items are checked out.
type Input struct {
	ItemIDs         []uuid.UUID   `json:"cart_item_ids,omitempty"`
	ShippingAddress types.Address `json:"shipping_address" validate:"required"`
	PaymentMethod   string        `json:"payment_method" validate:"required"`
}
