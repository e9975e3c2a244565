package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/soukhq/souk-backend/api/responses"
	"github.com/soukhq/souk-backend/api/validators"
	checkoutsvc "github.com/soukhq/souk-backend/internal/checkout"
	pkgerrors "github.com/soukhq/souk-backend/pkg/errors"
	"github.com/soukhq/souk-backend/pkg/logger"
	"github.com/soukhq/souk-backend/pkg/types"
)

type checkoutRequest struct {
	CartItemIDs     []uuid.UUID   `json:"cart_item_ids,omitempty"`
	ShippingAddress types.Address `json:"shipping_address" validate:"required"`
	PaymentMethod   string        `json:"payment_method" validate:"required"`
}

// Checkout converts the buyer's cart into one order per seller.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := actorUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.Execute(r.Context(), buyerID, checkoutsvc.Input{
			ItemIDs:         payload.CartItemIDs,
			ShippingAddress: payload.ShippingAddress,
			PaymentMethod:   payload.PaymentMethod,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"orders": orders})
	}
}
