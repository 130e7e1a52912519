package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/store"
)

// StoreCartRepository is the record store implementation of CartRepository
type StoreCartRepository struct {
	c collection[domain.Cart]
}

var _ CartRepository = (*StoreCartRepository)(nil)

func NewStoreCartRepository(s store.RecordStore) *StoreCartRepository {
	return &StoreCartRepository{c: collection[domain.Cart]{store: s, entity: domain.EntityCarts}}
}

func (r *StoreCartRepository) GetByCustomer(ctx context.Context, customerID int64) (*domain.Cart, error) {
	return r.c.first(ctx, func(c *domain.Cart) bool { return c.CustomerID == customerID })
}

func (r *StoreCartRepository) Create(ctx context.Context, c *domain.Cart) error {
	if c.Items == nil {
		c.Items = []domain.CartItem{}
	}
	id, err := r.c.add(ctx, c)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (r *StoreCartRepository) SaveItems(ctx context.Context, cartID int64, items []domain.CartItem) error {
	if items == nil {
		items = []domain.CartItem{}
	}
	rec, err := domain.ToRecord(&domain.Cart{Items: items})
	if err != nil {
		return err
	}
	return r.c.update(ctx, cartID, domain.Record{"items": rec["items"]})
}

// StoreOrderRepository is the record store implementation of OrderRepository
type StoreOrderRepository struct {
	c collection[domain.Order]
}

var _ OrderRepository = (*StoreOrderRepository)(nil)

func NewStoreOrderRepository(s store.RecordStore) *StoreOrderRepository {
	return &StoreOrderRepository{c: collection[domain.Order]{store: s, entity: domain.EntityOrders}}
}

func (r *StoreOrderRepository) Create(ctx context.Context, o *domain.Order) error {
	if len(o.Items) == 0 {
		return errors.Wrap(domain.ErrInvalidArgument, "order without items")
	}
	if o.Status == "" {
		o.Status = domain.OrderStatusCreated
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	id, err := r.c.add(ctx, o)
	if err != nil {
		return err
	}
	o.ID = id
	return nil
}

func (r *StoreOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.c.get(ctx, id)
}

func (r *StoreOrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	return r.c.all(ctx)
}

// Transition writes only the status field; items and total are never rewritten
func (r *StoreOrderRepository) Transition(ctx context.Context, id int64, next domain.OrderStatus) (*domain.Order, error) {
	o, err := r.c.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := o.Advance(next); err != nil {
		return nil, err
	}
	if err := r.c.update(ctx, id, domain.Record{"status": string(next)}); err != nil {
		return nil, err
	}
	return o, nil
}

// StoreInvoiceRepository is the record store implementation of InvoiceRepository
type StoreInvoiceRepository struct {
	c collection[domain.Invoice]
}

var _ InvoiceRepository = (*StoreInvoiceRepository)(nil)

func NewStoreInvoiceRepository(s store.RecordStore) *StoreInvoiceRepository {
	return &StoreInvoiceRepository{c: collection[domain.Invoice]{store: s, entity: domain.EntityInvoices}}
}

func (r *StoreInvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	id, err := r.c.add(ctx, inv)
	if err != nil {
		return err
	}
	inv.ID = id
	return nil
}

func (r *StoreInvoiceRepository) GetByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	return r.c.get(ctx, id)
}

func (r *StoreInvoiceRepository) GetByOrder(ctx context.Context, orderID int64) (*domain.Invoice, error) {
	inv, err := r.c.first(ctx, func(i *domain.Invoice) bool { return i.OrderID == orderID })
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, errors.Wrapf(domain.ErrNotFound, "invoice for order %d", orderID)
	}
	return inv, nil
}

func (r *StoreInvoiceRepository) List(ctx context.Context) ([]*domain.Invoice, error) {
	return r.c.all(ctx)
}

func (r *StoreInvoiceRepository) MarkPaid(ctx context.Context, id int64) error {
	inv, err := r.c.get(ctx, id)
	if err != nil {
		return err
	}
	if inv.Paid {
		return errors.Wrapf(domain.ErrInvalidTransition, "invoice %d already paid", id)
	}
	return r.c.update(ctx, id, domain.Record{"paid": true})
}

// StorePaymentRepository is the record store implementation of PaymentRepository
type StorePaymentRepository struct {
	c collection[domain.Payment]
}

var _ PaymentRepository = (*StorePaymentRepository)(nil)

func NewStorePaymentRepository(s store.RecordStore) *StorePaymentRepository {
	return &StorePaymentRepository{c: collection[domain.Payment]{store: s, entity: domain.EntityPayments}}
}

func (r *StorePaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	id, err := r.c.add(ctx, p)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (r *StorePaymentRepository) ListByOrder(ctx context.Context, orderID int64) ([]*domain.Payment, error) {
	return r.c.filter(ctx, func(p *domain.Payment) bool { return p.OrderID == orderID })
}

func (r *StorePaymentRepository) List(ctx context.Context) ([]*domain.Payment, error) {
	return r.c.all(ctx)
}

// StoreShipmentRepository is the record store implementation of ShipmentRepository
type StoreShipmentRepository struct {
	c collection[domain.Shipment]
}

var _ ShipmentRepository = (*StoreShipmentRepository)(nil)

func NewStoreShipmentRepository(s store.RecordStore) *StoreShipmentRepository {
	return &StoreShipmentRepository{c: collection[domain.Shipment]{store: s, entity: domain.EntityShipments}}
}

func (r *StoreShipmentRepository) Create(ctx context.Context, s *domain.Shipment) error {
	if s.Status == "" {
		s.Status = domain.ShipmentPending
	}
	id, err := r.c.add(ctx, s)
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

func (r *StoreShipmentRepository) Update(ctx context.Context, s *domain.Shipment) error {
	rec, err := domain.ToRecord(s)
	if err != nil {
		return err
	}
	return r.c.update(ctx, s.ID, rec)
}

// GetByOrder returns nil when the order has no shipment
func (r *StoreShipmentRepository) GetByOrder(ctx context.Context, orderID int64) (*domain.Shipment, error) {
	return r.c.first(ctx, func(s *domain.Shipment) bool { return s.OrderID == orderID })
}
