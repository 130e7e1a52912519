package fulfillment

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/events"
	"github.com/talkincode/ocss/internal/payment"
	"github.com/talkincode/ocss/internal/repository"
	"go.uber.org/zap"
)

// StockSetter is the ledger operation used by stock corrections
type StockSetter interface {
	SetLevel(ctx context.Context, productID int64, qty int) error
}

// InvoiceLine is one row of an invoice view
type InvoiceLine struct {
	Product  string          `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// InvoiceDetails joins an order with its invoice and payment
type InvoiceDetails struct {
	OrderID       int64              `json:"order_id"`
	InvoiceID     int64              `json:"invoice_id"`
	PaymentMethod string             `json:"payment_method"`
	Total         decimal.Decimal    `json:"total"`
	Paid          bool               `json:"paid"`
	Status        domain.OrderStatus `json:"status"`
	Items         []InvoiceLine      `json:"items"`
}

// Service groups the staff operations on orders and stock
type Service struct {
	repos  *repository.Repositories
	stock  StockSetter
	events events.Publisher
	node   *snowflake.Node
	now    func() time.Time
}

// NewService creates the service; node generates tracking numbers
func NewService(repos *repository.Repositories, stock StockSetter, publisher events.Publisher, node *snowflake.Node) (*Service, error) {
	if node == nil {
		var err error
		node, err = snowflake.NewNode(1)
		if err != nil {
			return nil, errors.Wrap(err, "tracking number generator")
		}
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{repos: repos, stock: stock, events: publisher, node: node, now: time.Now}, nil
}

// PendingOrders lists every order not yet shipped
func (s *Service) PendingOrders(ctx context.Context) ([]domain.Summary, error) {
	orders, err := s.repos.Orders.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Summary
	for _, o := range orders {
		if o.Status != domain.OrderStatusShipped {
			out = append(out, o.Summary())
		}
	}
	return out, nil
}

// UpdateStock sets the stock level of an existing product
func (s *Service) UpdateStock(ctx context.Context, productID int64, qty int) error {
	if _, err := s.repos.Products.GetByID(ctx, productID); err != nil {
		return err
	}
	if err := s.stock.SetLevel(ctx, productID, qty); err != nil {
		return err
	}
	zap.L().Info("stock level set", zap.Int64("product_id", productID), zap.Int("quantity", qty))
	return nil
}

// NewTrackingNumber returns a unique tracking number
func (s *Service) NewTrackingNumber() string {
	return "TRK" + strings.ToUpper(s.node.Generate().Base36())
}

// ShipOrder records the shipment of a paid order and marks it SHIPPED.
// An empty tracking number is generated. The shipment stays PENDING until
// the order has moved, so a failed attempt is retried on the same shipment.
func (s *Service) ShipOrder(ctx context.Context, orderID int64, tracking string) (*domain.Shipment, error) {
	order, err := s.repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusPaid {
		return nil, errors.Wrapf(domain.ErrInvalidTransition, "order %d is %s, not yet paid", orderID, order.Status)
	}

	shipment, err := s.repos.Shipments.GetByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	tracking = strings.TrimSpace(tracking)
	if tracking == "" && shipment != nil {
		tracking = shipment.TrackingNumber
	}
	if tracking == "" {
		tracking = s.NewTrackingNumber()
	}
	if shipment == nil {
		shipment = &domain.Shipment{OrderID: orderID, TrackingNumber: tracking, Status: domain.ShipmentPending}
		if err := s.repos.Shipments.Create(ctx, shipment); err != nil {
			return nil, err
		}
	} else {
		shipment.TrackingNumber = tracking
		shipment.Status = domain.ShipmentPending
		shipment.ShippedAt = nil
		if err := s.repos.Shipments.Update(ctx, shipment); err != nil {
			return nil, err
		}
	}

	if _, err := s.repos.Orders.Transition(ctx, orderID, domain.OrderStatusShipped); err != nil {
		return nil, err
	}
	shippedAt := s.now()
	shipment.Status = domain.ShipmentShipped
	shipment.ShippedAt = &shippedAt
	if err := s.repos.Shipments.Update(ctx, shipment); err != nil {
		zap.L().Error("order shipped but shipment not updated",
			zap.Int64("order_id", orderID),
			zap.Int64("shipment_id", shipment.ID),
			zap.Error(err))
		return nil, err
	}

	zap.L().Info("order shipped",
		zap.Int64("order_id", orderID),
		zap.String("tracking_number", tracking))
	s.events.Publish(events.TopicOrderShipped, events.OrderShipped{
		OrderID:        orderID,
		TrackingNumber: tracking,
		ShippedAt:      shippedAt,
	})
	return shipment, nil
}

// InvoiceDetails returns the invoice view of an order
func (s *Service) InvoiceDetails(ctx context.Context, orderID int64) (*InvoiceDetails, error) {
	order, err := s.repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	inv, err := s.repos.Invoices.GetByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repos.Payments.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	method := "Unknown"
	for _, p := range payments {
		method = payment.Title(p.Method)
		if p.Status == domain.PaymentApproved {
			break
		}
	}

	details := &InvoiceDetails{
		OrderID:       order.ID,
		InvoiceID:     inv.ID,
		PaymentMethod: method,
		Total:         inv.Total,
		Paid:          inv.Paid,
		Status:        order.Status,
	}
	for _, it := range order.Items {
		details.Items = append(details.Items, InvoiceLine{
			Product:  it.Name,
			Quantity: it.Quantity,
			Price:    it.Price,
			Subtotal: it.Subtotal,
		})
	}
	return details, nil
}

// OrderStatus returns the status of an order
func (s *Service) OrderStatus(ctx context.Context, orderID int64) (domain.OrderStatus, error) {
	order, err := s.repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	return order.Status, nil
}

// OrphanedOrders lists CREATED orders older than olderThan whose invoice is
// unpaid. They are reported only; reconciliation is a staff decision.
func (s *Service) OrphanedOrders(ctx context.Context, olderThan time.Duration) ([]*domain.Order, error) {
	orders, err := s.repos.Orders.List(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := s.now().Add(-olderThan)
	var out []*domain.Order
	for _, o := range orders {
		if o.Status != domain.OrderStatusCreated || o.CreatedAt.After(cutoff) {
			continue
		}
		inv, err := s.repos.Invoices.GetByOrder(ctx, o.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if inv != nil && inv.Paid {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}
