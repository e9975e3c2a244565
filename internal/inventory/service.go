package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soukhq/souk-backend/pkg/db/models"
	pkgerrors "github.com/soukhq/souk-backend/pkg/errors"
	"github.com/soukhq/souk-backend/pkg/logger"
)

// Service is the only write path for variant stock. Both mutations require a
// live transaction so stock moves commit or roll back with the caller's
// business records.
type Service interface {
	Decrement(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error
	Increment(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error
}

type service struct {
	logg *logger.Logger
}

// NewService wires the stock ledger service.
func NewService(logg *logger.Logger) (Service, error) {
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &service{logg: logg}, nil
}

// Decrement takes qty units from the variant's stock. The conditional update
// is the oversell guard: it only matches when enough stock remains, so two
// concurrent checkouts can never both win the last unit.
func (s *service) Decrement(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "inventory decrement requires a transaction")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE product_variants
		SET stock = stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock >= ?
	`, qty, variantID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "decrementing stock")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Zero rows: either the variant is gone or the stock ran short.
	var count int64
	if err := tx.Model(&models.ProductVariant{}).Where("id = ?", variantID).Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking variant existence")
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("variant %s not found", variantID))
	}
	return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("insufficient stock for variant %s", variantID)).
		WithDetails(map[string]any{"variant_id": variantID.String(), "requested": qty})
}

// Increment returns qty units to the variant's stock.
func (s *service) Increment(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "inventory increment requires a transaction")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE product_variants
		SET stock = stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, variantID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "incrementing stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("variant %s not found", variantID))
	}
	return nil
}
