package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/store"
)

func newRepos(t *testing.T) (*Repositories, store.RecordStore) {
	s, err := store.NewJSONFileStore(t.TempDir())
	require.NoError(t, err)
	return New(s), s
}

func TestProductRepository(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()

	p := &domain.Product{Name: "Milk 1L", Price: decimal.RequireFromString("3.50")}
	require.NoError(t, repos.Products.Create(ctx, p))
	assert.Equal(t, int64(1), p.ID)

	got, err := repos.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Milk 1L", got.Name)
	assert.Equal(t, domain.DefaultProductCategory, got.Category)
	assert.Equal(t, domain.DefaultProductDescription, got.Description)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("3.5")))

	_, err = repos.Products.GetByID(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStockRepository(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()

	levels, err := repos.Stock.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, levels)

	require.NoError(t, repos.Stock.Save(ctx, []domain.StockLevel{{ProductID: 1, Quantity: 50}, {ProductID: 2, Quantity: 0}}))
	levels, err = repos.Stock.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.StockLevel{{ProductID: 1, Quantity: 50}, {ProductID: 2, Quantity: 0}}, levels)
}

func TestCartRepository(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()

	none, err := repos.Carts.GetByCustomer(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, none)

	c := &domain.Cart{CustomerID: 1}
	require.NoError(t, repos.Carts.Create(ctx, c))

	item := domain.CartItem{ProductID: 1, Name: "Milk 1L", Price: decimal.RequireFromString("3.50"), Qty: 2}
	item.Recalculate()
	require.NoError(t, repos.Carts.SaveItems(ctx, c.ID, []domain.CartItem{item}))

	got, err := repos.Carts.GetByCustomer(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "7", got.Total().String())

	require.NoError(t, repos.Carts.SaveItems(ctx, c.ID, nil))
	got, err = repos.Carts.GetByCustomer(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, got.Items)

	assert.ErrorIs(t, repos.Carts.SaveItems(ctx, 42, nil), domain.ErrNotFound)
}

func TestOrderRepository_TransitionKeepsItems(t *testing.T) {
	repos, s := newRepos(t)
	ctx := context.Background()

	assert.ErrorIs(t, repos.Orders.Create(ctx, &domain.Order{CustomerID: 1}), domain.ErrInvalidArgument)

	o := &domain.Order{
		CustomerID: 1,
		Items:      []domain.OrderItem{{ProductID: 1, Name: "Milk 1L", Quantity: 2, Price: decimal.RequireFromString("3.50"), Subtotal: decimal.RequireFromString("7.00")}},
		Total:      decimal.RequireFromString("7.00"),
	}
	require.NoError(t, repos.Orders.Create(ctx, o))
	assert.Equal(t, domain.OrderStatusCreated, o.Status)
	assert.False(t, o.CreatedAt.IsZero())

	before, err := s.Find(ctx, domain.EntityOrders, o.ID)
	require.NoError(t, err)

	_, err = repos.Orders.Transition(ctx, o.ID, domain.OrderStatusShipped)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	paid, err := repos.Orders.Transition(ctx, o.ID, domain.OrderStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, paid.Status)

	after, err := s.Find(ctx, domain.EntityOrders, o.ID)
	require.NoError(t, err)
	assert.Equal(t, before["items"], after["items"])
	assert.Equal(t, before["total"], after["total"])
	assert.Equal(t, before["created_at"], after["created_at"])
	assert.Equal(t, "PAID", after["status"])

	_, err = repos.Orders.Transition(ctx, 99, domain.OrderStatusPaid)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInvoiceRepository_MarkPaidOnce(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()

	inv := &domain.Invoice{OrderID: 3, Total: decimal.RequireFromString("11.20")}
	require.NoError(t, repos.Invoices.Create(ctx, inv))

	got, err := repos.Invoices.GetByOrder(ctx, 3)
	require.NoError(t, err)
	assert.False(t, got.Paid)

	require.NoError(t, repos.Invoices.MarkPaid(ctx, inv.ID))
	assert.ErrorIs(t, repos.Invoices.MarkPaid(ctx, inv.ID), domain.ErrInvalidTransition)

	got, err = repos.Invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.Paid)

	_, err = repos.Invoices.GetByOrder(ctx, 4)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPaymentAndShipmentRepository(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Payments.Create(ctx, &domain.Payment{OrderID: 1, Method: "card", Amount: decimal.RequireFromString("11.20"), Status: domain.PaymentApproved}))
	require.NoError(t, repos.Payments.Create(ctx, &domain.Payment{OrderID: 2, Method: "wallet", Amount: decimal.RequireFromString("3.50"), Status: domain.PaymentApproved}))
	payments, err := repos.Payments.ListByOrder(ctx, 1)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "card", payments[0].Method)

	none, err := repos.Shipments.GetByOrder(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, none)

	sh := &domain.Shipment{OrderID: 1, TrackingNumber: "TRK-1"}
	require.NoError(t, repos.Shipments.Create(ctx, sh))
	assert.Equal(t, domain.ShipmentPending, sh.Status)

	now := time.Now().UTC().Truncate(time.Second)
	sh.Status = domain.ShipmentShipped
	sh.ShippedAt = &now
	require.NoError(t, repos.Shipments.Update(ctx, sh))

	got, err := repos.Shipments.GetByOrder(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentShipped, got.Status)
	require.NotNil(t, got.ShippedAt)
	assert.True(t, got.ShippedAt.Equal(now))
}

func TestAccountRepositories(t *testing.T) {
	repos, _ := newRepos(t)
	ctx := context.Background()

	cust := &domain.Customer{Name: "John Doe", Email: "john@example.com"}
	require.NoError(t, repos.Customers.Create(ctx, cust))
	acc := &domain.Account{Username: "customer1", Password: "Password123!", UserType: domain.UserTypeCustomer, CustomerID: &cust.ID}
	require.NoError(t, repos.Accounts.Create(ctx, acc))

	got, err := repos.Accounts.GetByUsername(ctx, "CUSTOMER1")
	require.NoError(t, err)
	assert.Equal(t, cust.ID, got.LinkedID())
	assert.Nil(t, got.StaffID)

	_, err = repos.Accounts.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	st := &domain.Staff{Username: "staff1", Name: "Store Staff"}
	require.NoError(t, repos.Staff.Create(ctx, st))
	found, err := repos.Staff.GetByUsername(ctx, "staff1")
	require.NoError(t, err)
	assert.Equal(t, st.ID, found.ID)
}
