package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "CREATED"
	OrderStatusPaid    OrderStatus = "PAID"
	OrderStatusShipped OrderStatus = "SHIPPED"
)

var orderStatusRank = map[OrderStatus]int{
	OrderStatusCreated: 0,
	OrderStatusPaid:    1,
	OrderStatusShipped: 2,
}

// CanAdvanceTo reports whether the status may move forward to next.
// Only single forward steps are allowed: CREATED -> PAID -> SHIPPED.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	cur, ok := orderStatusRank[s]
	if !ok {
		return false
	}
	to, ok := orderStatusRank[next]
	if !ok {
		return false
	}
	return to == cur+1
}

// OrderItem is a line frozen from the cart at checkout time
type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Order is the immutable snapshot of a purchase; only Status moves.
type Order struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customer_id"`
	Items      []OrderItem     `json:"items"`
	Total      decimal.Decimal `json:"total"`
	Status     OrderStatus     `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Advance moves the order to next or returns ErrInvalidTransition
func (o *Order) Advance(next OrderStatus) error {
	if !o.Status.CanAdvanceTo(next) {
		return errors.Wrapf(ErrInvalidTransition, "order %d: %s -> %s", o.ID, o.Status, next)
	}
	o.Status = next
	return nil
}

// Summary is the short order view used by staff listings
type Summary struct {
	OrderID int64           `json:"order_id" csv:"order_id"`
	Total   decimal.Decimal `json:"total" csv:"total"`
	Status  OrderStatus     `json:"status" csv:"status"`
}

func (o *Order) Summary() Summary {
	return Summary{OrderID: o.ID, Total: o.Total, Status: o.Status}
}

// Invoice is the billing record of an order, 1:1
type Invoice struct {
	ID      int64           `json:"id"`
	OrderID int64           `json:"order_id"`
	Total   decimal.Decimal `json:"total"`
	Paid    bool            `json:"paid"`
}
