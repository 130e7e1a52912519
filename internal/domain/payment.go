package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentApproved PaymentStatus = "APPROVED"
	PaymentDeclined PaymentStatus = "DECLINED"
)

// Payment methods accepted by the mock processors
const (
	PaymentMethodCard   = "card"
	PaymentMethodWallet = "wallet"
)

// Payment is an append-only audit record of a payment attempt
type Payment struct {
	ID      int64           `json:"id"`
	OrderID int64           `json:"order_id"`
	Method  string          `json:"method"`
	Amount  decimal.Decimal `json:"amount"`
	Status  PaymentStatus   `json:"status"`
}

type ShipmentStatus string

const (
	ShipmentPending ShipmentStatus = "PENDING"
	ShipmentShipped ShipmentStatus = "SHIPPED"
)

// Shipment tracks the physical dispatch of an order
type Shipment struct {
	ID             int64          `json:"id"`
	OrderID        int64          `json:"order_id"`
	TrackingNumber string         `json:"tracking_number"`
	Status         ShipmentStatus `json:"status"`
	ShippedAt      *time.Time     `json:"shipped_at"`
}
