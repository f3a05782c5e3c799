package enums

import "fmt"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusDraft               OrderStatus = "draft"
	OrderStatusPendingConfirmation OrderStatus = "pending_confirmation"
	OrderStatusConfirmed           OrderStatus = "confirmed"
	OrderStatusPreparing           OrderStatus = "preparing"
	OrderStatusReady               OrderStatus = "ready"
	OrderStatusDelivered           OrderStatus = "delivered"
	OrderStatusCancelled           OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusPendingConfirmation,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// orderStatusNext lists the allowed forward transitions; stages never skip.
var orderStatusNext = map[OrderStatus][]OrderStatus{
	OrderStatusDraft:               {OrderStatusPendingConfirmation, OrderStatusCancelled},
	OrderStatusPendingConfirmation: {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:           {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing:           {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:               {OrderStatusDelivered},
}

// IsValid reports whether the value matches the canonical order status enum.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the transition to next is allowed.
func (o OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderStatusNext[o] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (o OrderStatus) IsTerminal() bool {
	return len(orderStatusNext[o]) == 0
}

// ParseOrderStatus converts the raw string to OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
