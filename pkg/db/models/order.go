package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soukhq/souk-backend/pkg/enums"
	"github.com/soukhq/souk-backend/pkg/types"
)

// Order is the per-seller order produced by a checkout. Items are immutable
// after creation; only status and its timestamps move.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID       uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID      uuid.UUID         `gorm:"column:seller_id;type:uuid;not null"`
	Status        enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'uncompleted'"`
	TotalAmount   decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Address       types.Address     `gorm:"column:address;type:jsonb"`
	PaymentMethod string            `gorm:"column:payment_method;not null"`
	FulfilledAt   *time.Time        `gorm:"column:fulfilled_at"`
	CanceledAt    *time.Time        `gorm:"column:canceled_at"`
	Items         []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
