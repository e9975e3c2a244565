package orders

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/soukhq/souk-backend/pkg/db/models"
	"github.com/soukhq/souk-backend/pkg/enums"
)

// Action labels how a seller fulfills an order. Both actions land the order in
// the same completed state; they differ only in the audit trail.
type Action string

const (
	ActionShip     Action = "ship"
	ActionComplete Action = "complete"
)

// IsValid reports whether the value is a known Action.
func (a Action) IsValid() bool {
	return a == ActionShip || a == ActionComplete
}

// ParseAction converts raw input into an Action.
func ParseAction(value string) (Action, error) {
	switch Action(value) {
	case ActionShip:
		return ActionShip, nil
	case ActionComplete:
		return ActionComplete, nil
	}
	return "", fmt.Errorf("invalid fulfillment action %q", value)
}

func (a Action) auditEvent() enums.AuditEventType {
	if a == ActionShip {
		return enums.AuditOrderShipped
	}
	return enums.AuditOrderCompleted
}

// MarkFulfilledInput carries a seller fulfillment request.
type MarkFulfilledInput struct {
	SellerID uuid.UUID
	OrderID  uuid.UUID
	Action   Action
}

// CancelInput carries a buyer cancellation request.
type CancelInput struct {
	BuyerID uuid.UUID
	OrderID uuid.UUID
}

// AdminSetStatusInput carries an administrative status override.
type AdminSetStatusInput struct {
	AdminID uuid.UUID
	OrderID uuid.UUID
	Status  enums.OrderStatus
}

// ListResult is one page of orders plus the cursor for the next page.
type ListResult struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
