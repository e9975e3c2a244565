package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/soukhq/souk-backend/internal/audit"
	"github.com/soukhq/souk-backend/internal/cart"
	"github.com/soukhq/souk-backend/internal/catalog"
	"github.com/soukhq/souk-backend/internal/inventory"
	"github.com/soukhq/souk-backend/pkg/db/models"
	"github.com/soukhq/souk-backend/pkg/enums"
	pkgerrors "github.com/soukhq/souk-backend/pkg/errors"
	"github.com/soukhq/souk-backend/pkg/logger"
	"github.com/soukhq/souk-backend/pkg/metrics"
	"github.com/soukhq/souk-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service turns a buyer's cart into per-seller orders.
type Service interface {
	Execute(ctx context.Context, buyerID uuid.UUID, input Input) ([]models.Order, error)
}

type service struct {
	orders    Repository
	cartRepo  cart.Repository
	catalog   catalog.Repository
	inventory inventory.Service
	outbox    *outbox.Service
	auditor   audit.Service
	tx        txRunner
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
}

// NewService wires the checkout orchestrator. Metrics may be nil.
func NewService(
	orders Repository,
	cartRepo cart.Repository,
	catalogRepo catalog.Repository,
	inv inventory.Service,
	ob *outbox.Service,
	auditor audit.Service,
	tx txRunner,
	m *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:    orders,
		cartRepo:  cartRepo,
		catalog:   catalogRepo,
		inventory: inv,
		outbox:    ob,
		auditor:   auditor,
		tx:        tx,
		metrics:   m,
		logg:      logg,
	}, nil
}

// Execute runs the whole checkout in one transaction: resolve the item set,
// re-validate listings, decrement stock, create one order per seller, consume
// the cart items and queue the outbox event. Any failure rolls back every
// partition, so stock is never taken for a checkout that did not happen.
func (s *service) Execute(ctx context.Context, buyerID uuid.UUID, input Input) ([]models.Order, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if input.PaymentMethod == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	var (
		created     []models.Order
		cartID      uuid.UUID
		cartItemIDs []string
	)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)

		items, err := s.resolveItems(ctx, cartRepo, buyerID, input.ItemIDs)
		if err != nil {
			return err
		}
		cartID = items[0].CartID

		variantIDs := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			variantIDs = append(variantIDs, item.VariantID)
		}
		details, err := s.catalog.WithTx(tx).FindVariantsWithProduct(ctx, variantIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading checkout variants")
		}
		detailByVariant := make(map[uuid.UUID]catalog.VariantDetail, len(details))
		for _, d := range details {
			detailByVariant[d.VariantID] = d
		}

		for _, item := range items {
			detail, ok := detailByVariant[item.VariantID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "variant no longer exists").
					WithDetails(map[string]any{"variant_id": item.VariantID.String()})
			}
			if !detail.IsListed {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "product is no longer listed").
					WithDetails(map[string]any{
						"variant_id": item.VariantID.String(),
						"product_id": detail.ProductID.String(),
					})
			}
			if err := s.inventory.Decrement(ctx, tx, item.VariantID, item.Quantity); err != nil {
				return err
			}
		}

		bySeller := make(map[uuid.UUID][]models.CartItem)
		for _, item := range items {
			sellerID := detailByVariant[item.VariantID].SellerID
			bySeller[sellerID] = append(bySeller[sellerID], item)
		}

		orderRepo := s.orders.WithTx(tx)
		for sellerID, group := range bySeller {
			total := decimal.Zero
			order := models.Order{
				ID:            uuid.New(),
				BuyerID:       buyerID,
				SellerID:      sellerID,
				Status:        enums.OrderStatusUncompleted,
				Address:       input.ShippingAddress,
				PaymentMethod: input.PaymentMethod,
			}
			for _, item := range group {
				total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
				order.Items = append(order.Items, models.OrderItem{
					ID:        uuid.New(),
					OrderID:   order.ID,
					VariantID: item.VariantID,
					Quantity:  item.Quantity,
					UnitPrice: item.UnitPrice,
				})
			}
			order.TotalAmount = total
			if err := orderRepo.CreateOrder(ctx, &order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
			}
			created = append(created, order)
		}

		consumedIDs := make([]uuid.UUID, 0, len(items))
		cartItemIDs = make([]string, 0, len(items))
		for _, item := range items {
			consumedIDs = append(consumedIDs, item.ID)
			cartItemIDs = append(cartItemIDs, item.ID.String())
		}
		if err := cartRepo.DeleteItems(ctx, consumedIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consuming cart items")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateCart,
			AggregateID:   cartID,
			Actor:         &outbox.ActorRef{UserID: buyerID, Role: enums.ActorRoleBuyer.String()},
			Version:       1,
			Data: map[string]any{
				"buyer_id":      buyerID.String(),
				"order_ids":     orderIDs(created),
				"cart_item_ids": cartItemIDs,
			},
		})
	})
	if err != nil {
		s.metrics.IncCheckout("error")
		return nil, err
	}

	s.metrics.IncCheckout("success")
	s.metrics.AddOrdersCreated(len(created))
	s.auditor.Record(ctx, audit.RecordInput{
		EventName:   enums.AuditOrderCreated,
		ActorID:     buyerID,
		ActorRole:   enums.ActorRoleBuyer,
		Description: fmt.Sprintf("checkout created %d order(s)", len(created)),
		Metadata: map[string]any{
			"order_ids":     orderIDs(created),
			"cart_item_ids": cartItemIDs,
		},
	})
	return created, nil
}

// resolveItems picks the checkout set. Explicit ids are strict: every id must
// resolve to a row in the buyer's cart, otherwise the whole request is
// rejected with the missing ids. Without ids, all selected items are used.
func (s *service) resolveItems(ctx context.Context, repo cart.Repository, buyerID uuid.UUID, itemIDs []uuid.UUID) ([]models.CartItem, error) {
	if len(itemIDs) > 0 {
		items, err := repo.FindItemsForBuyer(ctx, buyerID, itemIDs)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart items")
		}
		found := make(map[uuid.UUID]bool, len(items))
		for _, item := range items {
			found[item.ID] = true
		}
		var missing []string
		for _, id := range itemIDs {
			if !found[id] {
				missing = append(missing, id.String())
			}
		}
		if len(missing) > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart items not found").
				WithDetails(map[string]any{"missing_cart_item_ids": missing})
		}
		return items, nil
	}

	items, err := repo.FindSelectedItems(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading selected cart items")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no cart items selected for checkout")
	}
	return items, nil
}

func orderIDs(orders []models.Order) []string {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID.String())
	}
	return ids
}
