package app

import (
	"github.com/shopspring/decimal"
	"github.com/talkincode/ocss/internal/events"
	"github.com/talkincode/ocss/pkg/metrics"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

func (a *Application) initEvents() error {
	var err error
	err = multierr.Append(err, a.bus.Subscribe(events.TopicOrderPaid, func(e events.OrderPaid) {
		metrics.Incr(metrics.CheckoutSucceeded)
		metrics.Add(metrics.CheckoutRevenueCents, e.Total.Mul(hundred).Round(0).IntPart())
	}))
	err = multierr.Append(err, a.bus.Subscribe(events.TopicCheckoutFailed, func(e events.CheckoutFailed) {
		metrics.Incr(metrics.CheckoutFailed)
	}))
	err = multierr.Append(err, a.bus.Subscribe(events.TopicOrderShipped, func(e events.OrderShipped) {
		metrics.Incr(metrics.OrdersShipped)
	}))
	err = multierr.Append(err, a.bus.Subscribe(events.TopicStockLow, func(e events.StockLow) {
		zap.L().Warn("low stock",
			zap.Int64("product_id", e.ProductID),
			zap.Int("quantity", e.Quantity),
			zap.Int("threshold", e.Threshold))
	}))
	// publishes stock:low, so it cannot run inside the order:paid publish
	err = multierr.Append(err, a.bus.SubscribeAsync(events.TopicOrderPaid, a.checkSoldStock))
	return err
}

// checkSoldStock flags the products of a paid order that fell to the threshold
func (a *Application) checkSoldStock(e events.OrderPaid) {
	threshold := a.appConfig.Shop.LowStockThreshold
	for _, id := range e.ProductIDs {
		if qty := a.ledger.Check(id); qty <= threshold {
			a.bus.Publish(events.TopicStockLow, events.StockLow{ProductID: id, Quantity: qty, Threshold: threshold})
		}
	}
}
