package models

import (
	"fmt"
	"strings"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusAccepted  OrderStatus = "accepted"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// statusSequence is the linear forward progression. Cancelled sits outside it.
var statusSequence = []OrderStatus{
	StatusPending,
	StatusAccepted,
	StatusPreparing,
	StatusReady,
	StatusDelivered,
}

// AllStatuses lists every status in display order
var AllStatuses = []OrderStatus{
	StatusPending,
	StatusAccepted,
	StatusPreparing,
	StatusReady,
	StatusDelivered,
	StatusCancelled,
}

// ParseOrderStatus converts a raw status string into an OrderStatus.
// Matching is case-insensitive and the kitchen service's "Received"
// status is treated as pending.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch normalized {
	case "received":
		return StatusPending, nil
	case "canceled":
		return StatusCancelled, nil
	}

	status := OrderStatus(normalized)
	if !status.Valid() {
		return "", &ValidationError{
			Code:    "INVALID_STATUS",
			Message: fmt.Sprintf("Unknown order status %q", raw),
		}
	}
	return status, nil
}

// Valid reports whether s is one of the known statuses
func (s OrderStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions can leave s
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Next returns the successor of s in the linear progression
func (s OrderStatus) Next() (OrderStatus, bool) {
	for i, status := range statusSequence {
		if status == s && i+1 < len(statusSequence) {
			return statusSequence[i+1], true
		}
	}
	return "", false
}

// Label returns the human-readable status text shown to customers and staff
func (s OrderStatus) Label() string {
	switch s {
	case StatusPending:
		return "Awaiting confirmation"
	case StatusAccepted:
		return "Order accepted"
	case StatusPreparing:
		return "Being prepared"
	case StatusReady:
		return "Ready for pickup"
	case StatusDelivered:
		return "Delivered"
	case StatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// Color is the chart/badge colour for s
func (s OrderStatus) Color() string {
	switch s {
	case StatusPending:
		return "#eab308"
	case StatusAccepted:
		return "#3b82f6"
	case StatusPreparing:
		return "#f97316"
	case StatusReady:
		return "#22c55e"
	case StatusDelivered:
		return "#16a34a"
	case StatusCancelled:
		return "#ef4444"
	default:
		return "#6b7280"
	}
}

// ProgressPercentage maps a status to the progress bar value of the tracking view
func ProgressPercentage(s OrderStatus) int {
	switch s {
	case StatusPending:
		return 25
	case StatusAccepted:
		return 50
	case StatusPreparing:
		return 75
	case StatusReady, StatusDelivered:
		return 100
	default:
		return 0
	}
}
