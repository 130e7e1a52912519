package events

import (
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Topics published on the bus
const (
	TopicOrderPaid      = "order:paid"
	TopicOrderShipped   = "order:shipped"
	TopicCheckoutFailed = "checkout:failed"
	TopicStockLow       = "stock:low"
)

type OrderPaid struct {
	CheckoutID string
	OrderID    int64
	CustomerID int64
	Total      decimal.Decimal
	ProductIDs []int64
	PaidAt     time.Time
}

type OrderShipped struct {
	OrderID        int64
	TrackingNumber string
	ShippedAt      time.Time
}

type CheckoutFailed struct {
	CheckoutID string
	CustomerID int64
	Reason     string
}

type StockLow struct {
	ProductID int64
	Quantity  int
	Threshold int
}

// Publisher is what the services need from the bus
type Publisher interface {
	Publish(topic string, event interface{})
}

// Bus is an in-process synchronous event bus. Handlers registered with
// Subscribe run inside Publish and must not publish themselves; handlers that
// do must use SubscribeAsync.
type Bus struct {
	bus EventBus.Bus
}

var _ Publisher = (*Bus)(nil)

func NewBus() *Bus {
	return &Bus{bus: EventBus.New()}
}

func (b *Bus) Publish(topic string, event interface{}) {
	if b == nil {
		return
	}
	if !b.bus.HasCallback(topic) {
		return
	}
	b.bus.Publish(topic, event)
}

// Subscribe registers fn, which must take the event type of topic
func (b *Bus) Subscribe(topic string, fn interface{}) error {
	if err := b.bus.Subscribe(topic, fn); err != nil {
		zap.L().Error("event subscribe failed", zap.String("topic", topic), zap.Error(err))
		return err
	}
	return nil
}

// SubscribeAsync registers fn to run in its own goroutine, one event at a time
func (b *Bus) SubscribeAsync(topic string, fn interface{}) error {
	if err := b.bus.SubscribeAsync(topic, fn, true); err != nil {
		zap.L().Error("event subscribe failed", zap.String("topic", topic), zap.Error(err))
		return err
	}
	return nil
}

// Wait blocks until the async handlers are done
func (b *Bus) Wait() {
	if b == nil {
		return
	}
	b.bus.WaitAsync()
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(string, interface{}) {}
