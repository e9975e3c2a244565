package controllers

import (
	"net/http"

	"github.com/soukhq/souk-backend/api/responses"
	catalogsvc "github.com/soukhq/souk-backend/internal/catalog"
	pkgerrors "github.com/soukhq/souk-backend/pkg/errors"
	"github.com/soukhq/souk-backend/pkg/logger"
)

// VariantGet returns a purchasable variant with its product context.
func VariantGet(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		variantID, err := pathUUID(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.FindVariant(r.Context(), variantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, detail)
	}
}
