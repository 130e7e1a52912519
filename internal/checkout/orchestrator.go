package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/talkincode/ocss/internal/cart"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/events"
	"github.com/talkincode/ocss/internal/inventory"
	"github.com/talkincode/ocss/internal/payment"
	"github.com/talkincode/ocss/internal/repository"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Reason classifies a failed checkout
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonCartEmpty           Reason = "CART_EMPTY"
	ReasonInsufficientStock   Reason = "INSUFFICIENT_STOCK"
	ReasonPaymentFailed       Reason = "PAYMENT_FAILED"
	ReasonOrderCreationFailed Reason = "ORDER_CREATION_FAILED"
)

// Result is the terminal state of one checkout attempt
type Result struct {
	CheckoutID    string          `json:"checkout_id"`
	Succeeded     bool            `json:"succeeded"`
	Reason        Reason          `json:"reason,omitempty"`
	Err           error           `json:"-"`
	OrderID       int64           `json:"order_id,omitempty"`
	InvoiceID     int64           `json:"invoice_id,omitempty"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Message       string          `json:"message"`
	// Compensated is set when reserved stock was handed back
	Compensated bool `json:"compensated,omitempty"`
}

// CartOpener opens the cart of a customer
type CartOpener interface {
	Cart(ctx context.Context, customerID int64) (*cart.Cart, error)
}

// Payer charges orders
type Payer interface {
	Supports(method string) bool
	Pay(ctx context.Context, method string, orderID int64, amount decimal.Decimal) (*payment.Receipt, error)
}

// StockCommitter retires reservations once a sale is final
type StockCommitter interface {
	Commit(lines []inventory.Line)
}

// Orchestrator turns a cart into a paid order:
// validate, reserve, create order, create invoice, pay, confirm.
// Any failure after the reservation hands the stock back before returning.
type Orchestrator struct {
	carts    CartOpener
	orders   repository.OrderRepository
	invoices repository.InvoiceRepository
	payer    Payer
	stock    StockCommitter
	events   events.Publisher
	now      func() time.Time
}

// NewOrchestrator wires the checkout steps; a nil publisher drops events
func NewOrchestrator(
	carts CartOpener,
	orders repository.OrderRepository,
	invoices repository.InvoiceRepository,
	payer Payer,
	stock StockCommitter,
	publisher events.Publisher,
) *Orchestrator {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Orchestrator{
		carts:    carts,
		orders:   orders,
		invoices: invoices,
		payer:    payer,
		stock:    stock,
		events:   publisher,
		now:      time.Now,
	}
}

func (o *Orchestrator) fail(res *Result, customerID int64, reason Reason, err error) *Result {
	res.Succeeded = false
	res.Reason = reason
	res.Err = err
	res.Message = err.Error()
	zap.L().Warn("checkout failed",
		zap.String("checkout_id", res.CheckoutID),
		zap.Int64("customer_id", customerID),
		zap.String("reason", string(reason)),
		zap.Bool("compensated", res.Compensated),
		zap.Error(err))
	o.events.Publish(events.TopicCheckoutFailed, events.CheckoutFailed{
		CheckoutID: res.CheckoutID,
		CustomerID: customerID,
		Reason:     string(reason),
	})
	return res
}

// Checkout runs one attempt for the customer's cart. It never returns nil
// and never panics on a failing collaborator; every outcome is in the Result.
func (o *Orchestrator) Checkout(ctx context.Context, customerID int64, method string) *Result {
	res := &Result{CheckoutID: uuid.NewString(), Total: decimal.Zero, PaymentMethod: method}

	c, err := o.carts.Cart(ctx, customerID)
	if err != nil {
		return o.fail(res, customerID, ReasonOrderCreationFailed, errors.Wrap(domain.ErrOrderCreationFailed, err.Error()))
	}
	if c.IsEmpty() {
		return o.fail(res, customerID, ReasonCartEmpty, domain.ErrCartEmpty)
	}
	if !o.payer.Supports(method) {
		return o.fail(res, customerID, ReasonPaymentFailed, errors.Wrapf(domain.ErrUnsupportedMethod, "%q", method))
	}

	// reserve; the ledger has already undone a partial batch when this fails
	if err := c.ReserveAll(ctx); err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			return o.fail(res, customerID, ReasonInsufficientStock, err)
		}
		res.Compensated = true
		return o.fail(res, customerID, ReasonOrderCreationFailed, errors.Wrap(domain.ErrOrderCreationFailed, err.Error()))
	}
	lines := c.Lines()
	release := func() {
		if err := c.ReleaseAll(ctx); err != nil {
			zap.L().Error("checkout compensation failed",
				zap.String("checkout_id", res.CheckoutID),
				zap.Error(err))
		}
		res.Compensated = true
	}

	items, total := c.Snapshot()
	res.Total = total
	order := &domain.Order{
		CustomerID: customerID,
		Items:      items,
		Total:      total,
		Status:     domain.OrderStatusCreated,
		CreatedAt:  o.now(),
	}
	if err := o.orders.Create(ctx, order); err != nil {
		release()
		return o.fail(res, customerID, ReasonOrderCreationFailed, errors.Wrap(domain.ErrOrderCreationFailed, err.Error()))
	}
	res.OrderID = order.ID

	invoice := &domain.Invoice{OrderID: order.ID, Total: order.Total}
	if err := o.invoices.Create(ctx, invoice); err != nil {
		release()
		o.warnOrphan(res, order.ID)
		return o.fail(res, customerID, ReasonOrderCreationFailed, errors.Wrap(domain.ErrOrderCreationFailed, err.Error()))
	}
	res.InvoiceID = invoice.ID

	receipt, err := o.payer.Pay(ctx, method, order.ID, order.Total)
	if err != nil {
		release()
		o.warnOrphan(res, order.ID)
		if !errors.Is(err, domain.ErrPaymentFailed) && !errors.Is(err, domain.ErrUnsupportedMethod) {
			err = errors.Wrap(domain.ErrPaymentFailed, err.Error())
		}
		return o.fail(res, customerID, ReasonPaymentFailed, err)
	}
	res.PaymentMethod = receipt.Payment.Method

	// confirm; payment is taken, so these are best effort and logged
	var confirmErr error
	confirmErr = multierr.Append(confirmErr, o.invoices.MarkPaid(ctx, invoice.ID))
	if _, err := o.orders.Transition(ctx, order.ID, domain.OrderStatusPaid); err != nil {
		confirmErr = multierr.Append(confirmErr, err)
	}
	o.stock.Commit(lines)
	confirmErr = multierr.Append(confirmErr, c.Clear(ctx))
	if confirmErr != nil {
		zap.L().Error("checkout confirmation incomplete",
			zap.String("checkout_id", res.CheckoutID),
			zap.Int64("order_id", order.ID),
			zap.Error(confirmErr))
	}

	res.Succeeded = true
	res.Message = fmt.Sprintf("Order #%d placed. %s", order.ID, receipt.Message)
	zap.L().Info("checkout succeeded",
		zap.String("checkout_id", res.CheckoutID),
		zap.Int64("customer_id", customerID),
		zap.Int64("order_id", order.ID),
		zap.Int64("invoice_id", invoice.ID),
		zap.String("total", total.StringFixed(2)),
		zap.String("method", res.PaymentMethod))

	productIDs := make([]int64, 0, len(lines))
	for _, l := range lines {
		productIDs = append(productIDs, l.ProductID)
	}
	o.events.Publish(events.TopicOrderPaid, events.OrderPaid{
		CheckoutID: res.CheckoutID,
		OrderID:    order.ID,
		CustomerID: customerID,
		Total:      total,
		ProductIDs: productIDs,
		PaidAt:     o.now(),
	})
	return res
}

func (o *Orchestrator) warnOrphan(res *Result, orderID int64) {
	zap.L().Warn("order left in CREATED state",
		zap.String("checkout_id", res.CheckoutID),
		zap.Int64("order_id", orderID))
}
