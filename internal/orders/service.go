package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soukhq/souk-backend/internal/audit"
	"github.com/soukhq/souk-backend/internal/inventory"
	"github.com/soukhq/souk-backend/pkg/db/models"
	"github.com/soukhq/souk-backend/pkg/enums"
	pkgerrors "github.com/soukhq/souk-backend/pkg/errors"
	"github.com/soukhq/souk-backend/pkg/logger"
	"github.com/soukhq/souk-backend/pkg/metrics"
	"github.com/soukhq/souk-backend/pkg/outbox"
	"github.com/soukhq/souk-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the order lifecycle after checkout.
type Service interface {
	MarkFulfilled(ctx context.Context, input MarkFulfilledInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	AdminSetStatus(ctx context.Context, input AdminSetStatusInput) (*models.Order, error)
	GetBuyerOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error)
	GetSellerOrder(ctx context.Context, sellerID, orderID uuid.UUID) (*models.Order, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*ListResult, error)
	ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*ListResult, error)
	BuyerHasCompletedProduct(ctx context.Context, buyerID, productID uuid.UUID) (bool, error)
}

type service struct {
	repo      Repository
	inventory inventory.Service
	outbox    *outbox.Service
	auditor   audit.Service
	tx        txRunner
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
}

// NewService wires the order lifecycle service. Metrics may be nil.
func NewService(
	repo Repository,
	inv inventory.Service,
	ob *outbox.Service,
	auditor audit.Service,
	tx txRunner,
	m *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
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
		repo:      repo,
		inventory: inv,
		outbox:    ob,
		auditor:   auditor,
		tx:        tx,
		metrics:   m,
		logg:      logg,
	}, nil
}

// MarkFulfilled moves a seller's uncompleted order to completed. Ship and
// complete share one guard: any terminal status rejects the transition, so a
// canceled order can never be shipped and a completed one never re-completed.
func (s *service) MarkFulfilled(ctx context.Context, input MarkFulfilledInput) (*models.Order, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid fulfillment action")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		found, err := s.findOwnedOrder(ctx, txRepo, input.OrderID, func(o *models.Order) bool {
			return o.SellerID == input.SellerID
		})
		if err != nil {
			return err
		}
		if found.Status != enums.OrderStatusUncompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer open").
				WithDetails(map[string]any{"current_status": found.Status.String()})
		}

		now := time.Now()
		moved, err := txRepo.TransitionOrder(ctx, found.ID, enums.OrderStatusUncompleted, map[string]any{
			"status":       enums.OrderStatusCompleted,
			"fulfilled_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
		}
		if !moved {
			// Lost a race against a concurrent cancel or fulfill.
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer open")
		}
		found.Status = enums.OrderStatusCompleted
		found.FulfilledAt = &now
		order = found

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   found.ID,
			Actor:         &outbox.ActorRef{UserID: input.SellerID, Role: enums.ActorRoleSeller.String()},
			Version:       1,
			Data: map[string]any{
				"order_id": found.ID.String(),
				"action":   string(input.Action),
			},
		})
	})
	if err != nil {
		s.metrics.IncFulfill("error")
		return nil, err
	}

	s.metrics.IncFulfill("success")
	s.auditor.Record(ctx, audit.RecordInput{
		EventName:   input.Action.auditEvent(),
		ActorID:     input.SellerID,
		ActorRole:   enums.ActorRoleSeller,
		Description: fmt.Sprintf("order fulfilled via %s", input.Action),
		Metadata:    map[string]any{"order_id": order.ID.String()},
	})
	return order, nil
}

// Cancel rejects anything but an uncompleted order, so a second cancel cannot
// restore stock twice. Status flip and stock restoration share one
// transaction: the order is canceled exactly when every unit is back.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		found, err := s.findOwnedOrder(ctx, txRepo, input.OrderID, func(o *models.Order) bool {
			return o.BuyerID == input.BuyerID
		})
		if err != nil {
			return err
		}
		if found.Status != enums.OrderStatusUncompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be canceled").
				WithDetails(map[string]any{"current_status": found.Status.String()})
		}

		now := time.Now()
		moved, err := txRepo.TransitionOrder(ctx, found.ID, enums.OrderStatusUncompleted, map[string]any{
			"status":      enums.OrderStatusCanceled,
			"canceled_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
		}
		if !moved {
			// A concurrent transition already closed the order; restoring
			// stock here would double-apply it.
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be canceled")
		}

		for _, item := range found.Items {
			if err := s.inventory.Increment(ctx, tx, item.VariantID, item.Quantity); err != nil {
				return err
			}
		}
		found.Status = enums.OrderStatusCanceled
		found.CanceledAt = &now
		order = found

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   found.ID,
			Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: enums.ActorRoleBuyer.String()},
			Version:       1,
			Data: map[string]any{
				"order_id": found.ID.String(),
			},
		})
	})
	if err != nil {
		s.metrics.IncCancel("error")
		return nil, err
	}

	s.metrics.IncCancel("success")
	s.auditor.Record(ctx, audit.RecordInput{
		EventName:   enums.AuditOrderCanceled,
		ActorID:     input.BuyerID,
		ActorRole:   enums.ActorRoleBuyer,
		Description: "order canceled by buyer",
		Metadata:    map[string]any{"order_id": order.ID.String()},
	})
	return order, nil
}

// AdminSetStatus writes the requested status directly, skipping the lifecycle
// guards and any stock compensation. Every override lands in the audit trail
// with the old and new status.
func (s *service) AdminSetStatus(ctx context.Context, input AdminSetStatusInput) (*models.Order, error) {
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id is required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var (
		order     *models.Order
		oldStatus enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		found, err := txRepo.FindOrderWithItems(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}
		oldStatus = found.Status

		now := time.Now()
		updates := map[string]any{"status": input.Status}
		switch input.Status {
		case enums.OrderStatusCompleted:
			updates["fulfilled_at"] = now
			found.FulfilledAt = &now
		case enums.OrderStatusCanceled:
			updates["canceled_at"] = now
			found.CanceledAt = &now
		case enums.OrderStatusUncompleted:
			updates["fulfilled_at"] = nil
			updates["canceled_at"] = nil
			found.FulfilledAt = nil
			found.CanceledAt = nil
		}
		if err := txRepo.UpdateOrder(ctx, found.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "overriding order status")
		}
		found.Status = input.Status
		order = found

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusOverride,
			AggregateType: enums.AggregateOrder,
			AggregateID:   found.ID,
			Actor:         &outbox.ActorRef{UserID: input.AdminID, Role: enums.ActorRoleAdmin.String()},
			Version:       1,
			Data: map[string]any{
				"order_id":   found.ID.String(),
				"old_status": oldStatus.String(),
				"new_status": input.Status.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, audit.RecordInput{
		EventName:   enums.AuditOrderStatusOverridden,
		ActorID:     input.AdminID,
		ActorRole:   enums.ActorRoleAdmin,
		Description: "order status overridden",
		Metadata: map[string]any{
			"order_id":   order.ID.String(),
			"old_status": oldStatus.String(),
			"new_status": input.Status.String(),
		},
	})
	return order, nil
}

// GetBuyerOrder returns the buyer's order with items.
func (s *service) GetBuyerOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error) {
	return s.findOwnedOrder(ctx, s.repo, orderID, func(o *models.Order) bool {
		return o.BuyerID == buyerID
	})
}

// GetSellerOrder returns the seller's order with items.
func (s *service) GetSellerOrder(ctx context.Context, sellerID, orderID uuid.UUID) (*models.Order, error) {
	return s.findOwnedOrder(ctx, s.repo, orderID, func(o *models.Order) bool {
		return o.SellerID == sellerID
	})
}

func (s *service) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*ListResult, error) {
	return s.listOrders(ctx, params, func(cursor *pagination.Cursor, limit int) ([]models.Order, error) {
		return s.repo.ListBuyerOrders(ctx, buyerID, cursor, limit)
	})
}

func (s *service) ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*ListResult, error) {
	return s.listOrders(ctx, params, func(cursor *pagination.Cursor, limit int) ([]models.Order, error) {
		return s.repo.ListSellerOrders(ctx, sellerID, cursor, limit)
	})
}

func (s *service) listOrders(ctx context.Context, params pagination.Params, fetch func(*pagination.Cursor, int) ([]models.Order, error)) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := fetch(cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}

	result := ListResult{Orders: rows}
	if len(rows) > limit {
		result.Orders = rows[:limit]
		last := result.Orders[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return &result, nil
}

// BuyerHasCompletedProduct is the review gate: it reports whether the buyer
// has received the product through at least one completed order.
func (s *service) BuyerHasCompletedProduct(ctx context.Context, buyerID, productID uuid.UUID) (bool, error) {
	if buyerID == uuid.Nil || productID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "buyer id and product id are required")
	}
	ok, err := s.repo.BuyerHasCompletedProduct(ctx, buyerID, productID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking completed orders")
	}
	return ok, nil
}

// findOwnedOrder loads the order and applies the ownership predicate. An order
// owned by someone else is reported exactly like a missing order.
func (s *service) findOwnedOrder(ctx context.Context, repo Repository, orderID uuid.UUID, owns func(*models.Order) bool) (*models.Order, error) {
	order, err := repo.FindOrderWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if !owns(order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}
