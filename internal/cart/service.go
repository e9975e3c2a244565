package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/soukhq/souk-backend/internal/audit"
	"github.com/soukhq/souk-backend/internal/catalog"
	"github.com/soukhq/souk-backend/pkg/db/models"
	"github.com/soukhq/souk-backend/pkg/enums"
	pkgerrors "github.com/soukhq/souk-backend/pkg/errors"
	"github.com/soukhq/souk-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the buyer cart operations.
type Service interface {
	Get(ctx context.Context, buyerID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, buyerID uuid.UUID, input AddItemInput) (*ItemView, error)
	UpdateItem(ctx context.Context, buyerID, itemID uuid.UUID, input UpdateItemInput) (*ItemView, error)
	RemoveItem(ctx context.Context, buyerID, itemID uuid.UUID) error
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	tx      txRunner
	auditor audit.Service
	logg    *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, catalogRepo catalog.Repository, tx txRunner, auditor audit.Service, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		catalog: catalogRepo,
		tx:      tx,
		auditor: auditor,
		logg:    logg,
	}, nil
}

func priceFromCents(cents int) decimal.Decimal {
	return decimal.NewFromInt(int64(cents)).Shift(-2)
}

// Get returns the buyer's cart with a derived total over selected items.
// A buyer without a cart sees an empty cart, not an error.
func (s *service) Get(ctx context.Context, buyerID uuid.UUID) (*View, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}

	record, err := s.repo.FindCartByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &View{Items: []ItemView{}, Total: decimal.Zero}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}

	return s.buildView(ctx, record)
}

func (s *service) buildView(ctx context.Context, record *models.Cart) (*View, error) {
	variantIDs := make([]uuid.UUID, 0, len(record.Items))
	for _, item := range record.Items {
		variantIDs = append(variantIDs, item.VariantID)
	}

	details, err := s.catalog.FindVariantsWithProduct(ctx, variantIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart variants")
	}
	detailByVariant := make(map[uuid.UUID]catalog.VariantDetail, len(details))
	for _, d := range details {
		detailByVariant[d.VariantID] = d
	}

	view := View{
		CartID: record.ID,
		Items:  make([]ItemView, 0, len(record.Items)),
		Total:  decimal.Zero,
	}
	for _, item := range record.Items {
		iv := ItemView{
			ID:         item.ID,
			VariantID:  item.VariantID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			LineTotal:  item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
			IsSelected: item.IsSelected,
		}
		if d, ok := detailByVariant[item.VariantID]; ok {
			iv.ProductID = d.ProductID
			iv.ProductName = d.ProductName
			iv.VariantName = d.VariantName
		}
		if item.IsSelected {
			view.Total = view.Total.Add(iv.LineTotal)
		}
		view.Items = append(view.Items, iv)
	}
	return &view, nil
}

// AddItem validates the variant and upserts one row per (cart, variant),
// folding the requested quantity into any existing line.
func (s *service) AddItem(ctx context.Context, buyerID uuid.UUID, input AddItemInput) (*ItemView, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	detail, err := s.catalog.FindVariantWithProduct(ctx, input.VariantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading variant")
	}
	if !detail.IsListed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is not listed")
	}

	var saved models.CartItem
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		record, err := txRepo.FindOrCreateCart(ctx, buyerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving cart")
		}

		existing, err := txRepo.FindItem(ctx, record.ID, input.VariantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
		}

		quantity := input.Quantity
		if existing != nil {
			quantity += existing.Quantity
		}
		if quantity > detail.Stock {
			return pkgerrors.New(pkgerrors.CodeConflict, "requested quantity exceeds available stock").
				WithDetails(map[string]any{
					"variant_id": input.VariantID.String(),
					"requested":  quantity,
					"available":  detail.Stock,
				})
		}

		saved = models.CartItem{
			ID:         uuid.New(),
			CartID:     record.ID,
			VariantID:  input.VariantID,
			Quantity:   quantity,
			UnitPrice:  priceFromCents(detail.PriceCents),
			IsSelected: true,
		}
		if existing != nil {
			saved.ID = existing.ID
		}
		if err := txRepo.UpsertItem(ctx, &saved); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.itemView(saved, detail), nil
}

// UpdateItem patches quantity and/or selection. Quantity changes re-validate
// stock and refresh the price snapshot, so price changes apply here.
func (s *service) UpdateItem(ctx context.Context, buyerID, itemID uuid.UUID, input UpdateItemInput) (*ItemView, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if input.Quantity == nil && input.IsSelected == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	item, err := s.findOwnedItem(ctx, buyerID, itemID)
	if err != nil {
		return nil, err
	}

	detail, err := s.catalog.FindVariantWithProduct(ctx, item.VariantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant no longer exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading variant")
	}

	updates := map[string]any{}
	if input.Quantity != nil {
		if *input.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if *input.Quantity > detail.Stock {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "requested quantity exceeds available stock").
				WithDetails(map[string]any{
					"variant_id": item.VariantID.String(),
					"requested":  *input.Quantity,
					"available":  detail.Stock,
				})
		}
		updates["quantity"] = *input.Quantity
		updates["unit_price"] = priceFromCents(detail.PriceCents)
		item.Quantity = *input.Quantity
		item.UnitPrice = priceFromCents(detail.PriceCents)
	}
	if input.IsSelected != nil {
		updates["is_selected"] = *input.IsSelected
		item.IsSelected = *input.IsSelected
	}

	if err := s.repo.UpdateItem(ctx, item.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
	}

	return s.itemView(*item, detail), nil
}

// RemoveItem deletes the buyer's cart item and audits the removal.
func (s *service) RemoveItem(ctx context.Context, buyerID, itemID uuid.UUID) error {
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}

	item, err := s.findOwnedItem(ctx, buyerID, itemID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting cart item")
	}

	s.auditor.Record(ctx, audit.RecordInput{
		EventName:   enums.AuditCartItemRemoved,
		ActorID:     buyerID,
		ActorRole:   enums.ActorRoleBuyer,
		Description: "cart item removed",
		Metadata: map[string]any{
			"cart_item_id": item.ID.String(),
			"variant_id":   item.VariantID.String(),
		},
	})
	return nil
}

// findOwnedItem resolves the item through the buyer's cart. A row owned by a
// different buyer is reported exactly like a missing row.
func (s *service) findOwnedItem(ctx context.Context, buyerID, itemID uuid.UUID) (*models.CartItem, error) {
	item, err := s.repo.FindItemForBuyer(ctx, buyerID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
	}
	return item, nil
}

func (s *service) itemView(item models.CartItem, detail *catalog.VariantDetail) *ItemView {
	iv := ItemView{
		ID:         item.ID,
		VariantID:  item.VariantID,
		Quantity:   item.Quantity,
		UnitPrice:  item.UnitPrice,
		LineTotal:  item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		IsSelected: item.IsSelected,
	}
	if detail != nil {
		iv.ProductID = detail.ProductID
		iv.ProductName = detail.ProductName
		iv.VariantName = detail.VariantName
	}
	return &iv
}
