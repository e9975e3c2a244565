package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soukhq/souk-backend/pkg/db/models"
)

// Repository defines persistence operations for carts and cart items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrCreateCart(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	FindCartByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	FindItem(ctx context.Context, cartID, variantID uuid.UUID) (*models.CartItem, error)
	FindItemForBuyer(ctx context.Context, buyerID, itemID uuid.UUID) (*models.CartItem, error)
	FindItemsForBuyer(ctx context.Context, buyerID uuid.UUID, itemIDs []uuid.UUID) ([]models.CartItem, error)
	FindSelectedItems(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error)
	UpsertItem(ctx context.Context, item *models.CartItem) error
	UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	DeleteItems(ctx context.Context, itemIDs []uuid.UUID) error
}
