package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines read access to the product catalog tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVariantWithProduct(ctx context.Context, variantID uuid.UUID) (*VariantDetail, error)
	FindVariantsWithProduct(ctx context.Context, variantIDs []uuid.UUID) ([]VariantDetail, error)
	ProductExists(ctx context.Context, productID uuid.UUID) (bool, error)
}

// Service exposes catalog reads to the cart and checkout flows.
type Service interface {
	FindVariant(ctx context.Context, variantID uuid.UUID) (*VariantDetail, error)
	EnsureProduct(ctx context.Context, productID uuid.UUID) error
}
