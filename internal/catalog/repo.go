package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soukhq/souk-backend/internal/repo"
	"github.com/soukhq/souk-backend/pkg/db/models"
)

type repository struct {
	repo.Base
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Rebind(tx)}
}

const variantSelect = `
	pv.id AS variant_id,
	pv.product_id AS product_id,
	p.seller_id AS seller_id,
	p.name AS product_name,
	pv.name AS variant_name,
	pv.price_cents AS price_cents,
	pv.stock AS stock,
	p.is_listed AS is_listed`

func (r *repository) FindVariantWithProduct(ctx context.Context, variantID uuid.UUID) (*VariantDetail, error) {
	var detail VariantDetail
	err := r.DB(ctx).
		Table("product_variants pv").
		Select(variantSelect).
		Joins("JOIN products p ON p.id = pv.product_id").
		Where("pv.id = ?", variantID).
		Take(&detail).Error
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func (r *repository) FindVariantsWithProduct(ctx context.Context, variantIDs []uuid.UUID) ([]VariantDetail, error) {
	if len(variantIDs) == 0 {
		return nil, nil
	}
	var details []VariantDetail
	err := r.DB(ctx).
		Table("product_variants pv").
		Select(variantSelect).
		Joins("JOIN products p ON p.id = pv.product_id").
		Where("pv.id IN ?", variantIDs).
		Find(&details).Error
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (r *repository) ProductExists(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Count(&count).Error
	return count > 0, err
}
