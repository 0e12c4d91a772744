package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of a café order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// orderTransitions is the allowed status machine. Delivered and cancelled
// are terminal; cancellation is possible from any state before delivery.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderReady, OrderCancelled},
	OrderReady:     {OrderDelivered, OrderCancelled},
}

// CanTransition reports whether an order may move from -> to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderPending, OrderPreparing, OrderReady, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// PaymentStatus tracks settlement of a café order's monetary charge.
// Collection itself is an external collaborator.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentInvoiced PaymentStatus = "invoiced" // org-billed, settled via monthly statement
)

// CafeOrder represents a café order. TotalAmountCents is currency (cents),
// distinct from the room-booking credit pool. OrgID is set iff BilledTo is
// organization.
type CafeOrder struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	TotalAmountCents int             `json:"total_amount_cents"`
	Status           OrderStatus     `json:"status"`
	BilledTo         BilledTo        `json:"billed_to"`
	OrgID            *uuid.UUID      `json:"org_id,omitempty"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	Notes            string          `json:"notes,omitempty"`
	Site             string          `json:"site"`
	Items            []CafeOrderItem `json:"items,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// CafeOrderItem is one line item of a café order. UnitPriceCents is captured
// at order time so later menu price changes do not rewrite history.
type CafeOrderItem struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"order_id"`
	MenuItemID     uuid.UUID `json:"menu_item_id"`
	MenuItemName   string    `json:"menu_item_name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
}
