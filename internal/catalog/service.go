package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/soukhq/souk-backend/pkg/errors"
)

type service struct {
	repo Repository
}

// NewService wires the catalog read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) FindVariant(ctx context.Context, variantID uuid.UUID) (*VariantDetail, error) {
	detail, err := s.repo.FindVariantWithProduct(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("variant %s not found", variantID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading variant")
	}
	return detail, nil
}

// EnsureProduct reports CodeNotFound when the product does not exist.
func (s *service) EnsureProduct(ctx context.Context, productID uuid.UUID) error {
	exists, err := s.repo.ProductExists(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking product")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", productID))
	}
	return nil
}
