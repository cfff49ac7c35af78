package enums

import "fmt"

// OrderStatus tracks the delivery lifecycle of an order. Cancellation is a
// separate flag on the order, not a status.
type OrderStatus string

const (
	OrderStatusReceivedPending OrderStatus = "received_pending"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusDelivering      OrderStatus = "delivering"
	OrderStatusDelivered       OrderStatus = "delivered"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusReceivedPending,
	OrderStatusProcessing,
	OrderStatusDelivering,
	OrderStatusDelivered,
}

// orderStatusRanks orders the lifecycle; transitions only move forward.
var orderStatusRanks = map[OrderStatus]int{
	OrderStatusReceivedPending: 0,
	OrderStatusProcessing:      1,
	OrderStatusDelivering:      2,
	OrderStatusDelivered:       3,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// Rank returns the lifecycle position; unknown statuses rank below all.
func (o OrderStatus) Rank() int {
	if rank, ok := orderStatusRanks[o]; ok {
		return rank
	}
	return -1
}

// CanTransitionTo reports whether target is a strictly forward move.
// Skipping intermediate stages is allowed; delivered is terminal.
func (o OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if !o.IsValid() || !target.IsValid() {
		return false
	}
	return target.Rank() > o.Rank()
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
