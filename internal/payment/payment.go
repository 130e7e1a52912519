package payment

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Processor charges an amount for an order. A non-nil error or a DECLINED
// status both count as a failed payment.
type Processor interface {
	Method() string
	Process(ctx context.Context, orderID int64, amount decimal.Decimal) (domain.PaymentStatus, error)
}

// CardProcessor is a mock card processor that always approves
type CardProcessor struct{}

func (CardProcessor) Method() string { return domain.PaymentMethodCard }

func (CardProcessor) Process(context.Context, int64, decimal.Decimal) (domain.PaymentStatus, error) {
	return domain.PaymentApproved, nil
}

// WalletProcessor is a mock wallet processor that always approves
type WalletProcessor struct{}

func (WalletProcessor) Method() string { return domain.PaymentMethodWallet }

func (WalletProcessor) Process(context.Context, int64, decimal.Decimal) (domain.PaymentStatus, error) {
	return domain.PaymentApproved, nil
}

// Title renders a method name for display, e.g. "wallet" -> "Wallet"
func Title(method string) string {
	return cases.Title(language.English).String(strings.ToLower(method))
}

// Receipt is the outcome of an approved payment
type Receipt struct {
	Payment *domain.Payment
	Message string
}

// Gateway selects the processor for a method and records every attempt.
type Gateway struct {
	mu         sync.RWMutex
	processors map[string]Processor
	payments   repository.PaymentRepository
}

// NewGateway creates a gateway; without processors it serves card and wallet
func NewGateway(payments repository.PaymentRepository, processors ...Processor) *Gateway {
	g := &Gateway{processors: make(map[string]Processor), payments: payments}
	if len(processors) == 0 {
		processors = []Processor{CardProcessor{}, WalletProcessor{}}
	}
	for _, p := range processors {
		g.Register(p)
	}
	return g
}

// Register adds or replaces the processor of p.Method()
func (g *Gateway) Register(p Processor) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.processors[strings.ToLower(p.Method())] = p
}

func (g *Gateway) lookup(method string) (Processor, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.processors[strings.ToLower(strings.TrimSpace(method))]
	return p, ok
}

// Supports reports whether method has a processor
func (g *Gateway) Supports(method string) bool {
	_, ok := g.lookup(method)
	return ok
}

// Methods lists the registered methods
func (g *Gateway) Methods() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.processors))
	for m := range g.processors {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Pay charges amount for the order. An unsupported method fails before
// anything is written; otherwise the attempt is recorded as APPROVED or
// DECLINED and a declined attempt returns ErrPaymentFailed.
func (g *Gateway) Pay(ctx context.Context, method string, orderID int64, amount decimal.Decimal) (*Receipt, error) {
	p, ok := g.lookup(method)
	if !ok {
		return nil, errors.Wrapf(domain.ErrUnsupportedMethod, "%q", method)
	}
	if amount.IsNegative() {
		return nil, errors.Wrapf(domain.ErrInvalidArgument, "amount %s", amount)
	}

	status, perr := p.Process(ctx, orderID, amount)
	if perr != nil {
		status = domain.PaymentDeclined
	}
	rec := &domain.Payment{
		OrderID: orderID,
		Method:  p.Method(),
		Amount:  amount,
		Status:  status,
	}
	if err := g.payments.Create(ctx, rec); err != nil {
		return nil, errors.Wrapf(err, "record payment of order %d", orderID)
	}

	if status != domain.PaymentApproved {
		zap.L().Warn("payment declined",
			zap.Int64("order_id", orderID),
			zap.String("method", rec.Method),
			zap.String("amount", amount.StringFixed(2)),
			zap.Error(perr))
		if perr != nil {
			return nil, errors.Wrap(domain.ErrPaymentFailed, perr.Error())
		}
		return nil, errors.Wrapf(domain.ErrPaymentFailed, "%s payment declined", rec.Method)
	}
	return &Receipt{
		Payment: rec,
		Message: fmt.Sprintf("%s payment processed", Title(rec.Method)),
	}, nil
}
