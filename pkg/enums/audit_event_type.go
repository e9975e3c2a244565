package enums

import "fmt"

// AuditEventType labels entries in the audit trail.
type AuditEventType string

const (
	AuditOrderCreated          AuditEventType = "ORDER_CREATED"
	AuditOrderShipped          AuditEventType = "ORDER_SHIPPED"
	AuditOrderCompleted        AuditEventType = "ORDER_COMPLETED"
	AuditOrderCanceled         AuditEventType = "ORDER_CANCELED"
	AuditOrderStatusOverridden AuditEventType = "ORDER_STATUS_OVERRIDDEN"
	AuditCartItemRemoved       AuditEventType = "CART_ITEM_REMOVED"
)

var validAuditEventTypes = []AuditEventType{
	AuditOrderCreated,
	AuditOrderShipped,
	AuditOrderCompleted,
	AuditOrderCanceled,
	AuditOrderStatusOverridden,
	AuditCartItemRemoved,
}

// String implements fmt.Stringer.
func (a AuditEventType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditEventType.
func (a AuditEventType) IsValid() bool {
	for _, candidate := range validAuditEventTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditEventType converts raw input into an AuditEventType.
func ParseAuditEventType(value string) (AuditEventType, error) {
	for _, candidate := range validAuditEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit event type %q", value)
}
