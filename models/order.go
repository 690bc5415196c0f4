package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryMethod is how the customer receives the order
type DeliveryMethod string

const (
	DeliveryCounter   DeliveryMethod = "counter"
	DeliveryDriveThru DeliveryMethod = "drive_thru"
	DeliveryHome      DeliveryMethod = "delivery"
)

// DeliveryFee is the flat surcharge for home delivery
var DeliveryFee = decimal.RequireFromString("5.90")

// DefaultEstimatedMinutes is used when an order carries no estimate
const DefaultEstimatedMinutes = 25

// ParseDeliveryMethod accepts the canonical names and the storefront's legacy aliases
func ParseDeliveryMethod(raw string) (DeliveryMethod, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "counter", "balcao":
		return DeliveryCounter, nil
	case "drive_thru", "drive-thru", "drive":
		return DeliveryDriveThru, nil
	case "delivery":
		return DeliveryHome, nil
	default:
		return "", &ValidationError{
			Code:    "INVALID_DELIVERY_METHOD",
			Message: fmt.Sprintf("Unknown delivery method %q", raw),
		}
	}
}

// Fee returns the delivery surcharge for the method
func (m DeliveryMethod) Fee() decimal.Decimal {
	if m == DeliveryHome {
		return DeliveryFee
	}
	return decimal.Zero
}

// Label returns the human-readable delivery method
func (m DeliveryMethod) Label() string {
	switch m {
	case DeliveryCounter:
		return "Counter pickup"
	case DeliveryDriveThru:
		return "Drive-thru"
	case DeliveryHome:
		return "Delivery"
	default:
		return string(m)
	}
}

// Order is a checkout created by a session and tracked locally
type Order struct {
	ID               string          `gorm:"primaryKey" json:"id"`
	SessionID        string          `gorm:"not null;index" json:"-"`
	Items            []LineItem      `gorm:"foreignKey:OrderID" json:"items"`
	Subtotal         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"subtotal"`
	DeliveryMethod   DeliveryMethod  `gorm:"not null" json:"delivery_method"`
	DeliveryFee      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"delivery_fee"`
	FinalTotal       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"final_total"`
	Observations     string          `json:"observations"`
	Status           OrderStatus     `gorm:"not null;default:'pending'" json:"status"`
	EstimatedMinutes *int            `json:"estimated_minutes,omitempty"`
	PickupCodeHash   string          `json:"-"`
	PickupCode       string          `gorm:"-" json:"pickup_code,omitempty"` // only set in the creation response
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "local_orders"
}

// Progress returns the tracking progress percentage for the current status
func (o *Order) Progress() int {
	return ProgressPercentage(o.Status)
}

// EstimatedReadyAt is the creation time plus the preparation estimate
func (o *Order) EstimatedReadyAt() time.Time {
	minutes := DefaultEstimatedMinutes
	if o.EstimatedMinutes != nil {
		minutes = *o.EstimatedMinutes
	}
	return o.CreatedAt.Add(time.Duration(minutes) * time.Minute)
}

// MinutesSince returns whole minutes elapsed between creation and now
func (o *Order) MinutesSince(now time.Time) int {
	return int(now.Sub(o.CreatedAt) / time.Minute)
}

// IsReady reports whether the customer can collect the order
func (o *Order) IsReady() bool {
	return o.Status == StatusReady || o.Status == StatusDelivered
}

// StatusChange is emitted whenever a tracked order changes status
type StatusChange struct {
	OrderID   string      `json:"order_id"`
	SessionID string      `json:"-"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	Progress  int         `json:"progress"`
	At        time.Time   `json:"at"`
}
