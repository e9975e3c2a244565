package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/soukhq/souk-backend/pkg/enums"
)

// AuditEvent records an immutable trail entry for order and cart activity.
type AuditEvent struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventName   enums.AuditEventType `gorm:"column:event_name;not null"`
	ActorID     uuid.UUID            `gorm:"column:actor_id;type:uuid;not null"`
	ActorRole   enums.ActorRole      `gorm:"column:actor_role;not null"`
	Description string               `gorm:"column:description;not null"`
	IPAddress   *string              `gorm:"column:ip_address"`
	Metadata    json.RawMessage      `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}
