package repository

import (
	"context"

	"github.com/pkg/errors"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/store"
)

// ProductRepository handles product records
type ProductRepository interface {
	// GetByID returns ErrNotFound when the product does not exist
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	List(ctx context.Context) ([]*domain.Product, error)

	// Create stores the product and assigns its ID
	Create(ctx context.Context, p *domain.Product) error
}

// StockRepository persists the stock level table as a whole
type StockRepository interface {
	Load(ctx context.Context) ([]domain.StockLevel, error)
	Save(ctx context.Context, levels []domain.StockLevel) error
}

// CartRepository handles the one-per-customer cart records
type CartRepository interface {
	// GetByCustomer returns nil when the customer has no cart yet
	GetByCustomer(ctx context.Context, customerID int64) (*domain.Cart, error)

	Create(ctx context.Context, c *domain.Cart) error

	// SaveItems replaces the line items of the cart
	SaveItems(ctx context.Context, cartID int64, items []domain.CartItem) error
}

// OrderRepository handles orders. Items and total are write-once; only the
// status can be changed after Create.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context) ([]*domain.Order, error)

	// Transition advances the order status by one step
	Transition(ctx context.Context, id int64, next domain.OrderStatus) (*domain.Order, error)
}

// InvoiceRepository handles invoices
type InvoiceRepository interface {
	Create(ctx context.Context, inv *domain.Invoice) error
	GetByID(ctx context.Context, id int64) (*domain.Invoice, error)
	GetByOrder(ctx context.Context, orderID int64) (*domain.Invoice, error)
	List(ctx context.Context) ([]*domain.Invoice, error)

	// MarkPaid flips paid from false to true; a second call fails
	MarkPaid(ctx context.Context, id int64) error
}

// PaymentRepository is the append-only payment audit trail
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	ListByOrder(ctx context.Context, orderID int64) ([]*domain.Payment, error)
	List(ctx context.Context) ([]*domain.Payment, error)
}

// ShipmentRepository handles shipments
type ShipmentRepository interface {
	Create(ctx context.Context, s *domain.Shipment) error
	Update(ctx context.Context, s *domain.Shipment) error
	GetByOrder(ctx context.Context, orderID int64) (*domain.Shipment, error)
}

// AccountRepository handles login accounts
type AccountRepository interface {
	Create(ctx context.Context, a *domain.Account) error
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
}

// CustomerRepository handles customer profiles
type CustomerRepository interface {
	Create(ctx context.Context, c *domain.Customer) error
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	List(ctx context.Context) ([]*domain.Customer, error)
}

// StaffRepository handles staff profiles
type StaffRepository interface {
	Create(ctx context.Context, s *domain.Staff) error
	GetByID(ctx context.Context, id int64) (*domain.Staff, error)
	GetByUsername(ctx context.Context, username string) (*domain.Staff, error)
}

// Repositories bundles every repository backed by one record store
type Repositories struct {
	Products  ProductRepository
	Stock     StockRepository
	Carts     CartRepository
	Orders    OrderRepository
	Invoices  InvoiceRepository
	Payments  PaymentRepository
	Shipments ShipmentRepository
	Accounts  AccountRepository
	Customers CustomerRepository
	Staff     StaffRepository
}

// New creates the store-backed repositories
func New(s store.RecordStore) *Repositories {
	return &Repositories{
		Products:  NewStoreProductRepository(s),
		Stock:     NewStoreStockRepository(s),
		Carts:     NewStoreCartRepository(s),
		Orders:    NewStoreOrderRepository(s),
		Invoices:  NewStoreInvoiceRepository(s),
		Payments:  NewStorePaymentRepository(s),
		Shipments: NewStoreShipmentRepository(s),
		Accounts:  NewStoreAccountRepository(s),
		Customers: NewStoreCustomerRepository(s),
		Staff:     NewStoreStaffRepository(s),
	}
}

// collection maps one entity of the record store to the typed value T
type collection[T any] struct {
	store  store.RecordStore
	entity string
}

func (c collection[T]) decode(rec domain.Record) (*T, error) {
	v := new(T)
	if err := domain.FromRecord(rec, v); err != nil {
		return nil, errors.Wrapf(err, "decode %s", c.entity)
	}
	return v, nil
}

func (c collection[T]) get(ctx context.Context, id int64) (*T, error) {
	rec, err := c.store.Find(ctx, c.entity, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.Wrapf(domain.ErrNotFound, "%s %d", c.entity, id)
	}
	return c.decode(rec)
}

func (c collection[T]) all(ctx context.Context) ([]*T, error) {
	return c.filter(ctx, nil)
}

// filter returns the values accepted by keep, in stored order
func (c collection[T]) filter(ctx context.Context, keep func(*T) bool) ([]*T, error) {
	records, err := c.store.Load(ctx, c.entity)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(records))
	for _, rec := range records {
		v, err := c.decode(rec)
		if err != nil {
			return nil, err
		}
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// first returns the first value accepted by keep, or nil
func (c collection[T]) first(ctx context.Context, keep func(*T) bool) (*T, error) {
	found, err := c.filter(ctx, keep)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// add stores v and returns the assigned id
func (c collection[T]) add(ctx context.Context, v *T) (int64, error) {
	rec, err := domain.ToRecord(v)
	if err != nil {
		return 0, err
	}
	delete(rec, "id")
	stored, err := c.store.Add(ctx, c.entity, rec)
	if err != nil {
		return 0, err
	}
	return stored.ID(), nil
}

func (c collection[T]) update(ctx context.Context, id int64, fields domain.Record) error {
	ok, err := c.store.Update(ctx, c.entity, id, fields)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(domain.ErrNotFound, "%s %d", c.entity, id)
	}
	return nil
}
