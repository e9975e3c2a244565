package controllers

import (
	"net/http"

	"github.com/soukhq/souk-backend/api/responses"
	"github.com/soukhq/souk-backend/api/validators"
	orderssvc "github.com/soukhq/souk-backend/internal/orders"
	"github.com/soukhq/souk-backend/pkg/enums"
	pkgerrors "github.com/soukhq/souk-backend/pkg/errors"
	"github.com/soukhq/souk-backend/pkg/logger"
)

type adminSetStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminOrderSetStatus overrides an order's status without lifecycle guards.
func AdminOrderSetStatus(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		adminID, err := actorUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adminSetStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.AdminSetStatus(r.Context(), orderssvc.AdminSetStatusInput{
			AdminID: adminID,
			OrderID: orderID,
			Status:  status,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}
