package checkout

import (
	"context"

	"gorm.io/gorm"

	"github.com/soukhq/souk-backend/pkg/db/models"
)

// Repository persists the orders a checkout produces.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
}
