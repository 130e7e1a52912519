package app

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/ocss/config"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/events"
	"github.com/talkincode/ocss/pkg/metrics"
)

func newTestApp(t *testing.T) *Application {
	cfg := config.DefaultAppConfig()
	cfg.System.Workdir = t.TempDir()
	a := NewApplication(cfg)
	require.NoError(t, a.Init(context.Background()))
	t.Cleanup(a.Release)
	require.NoError(t, a.InitSystem(context.Background()))
	return a
}

func TestInitSystem_Idempotent(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)
	require.NoError(t, a.InitSystem(ctx))

	products, err := a.Repos().Products.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Milk 1L", products[0].Name)
	assert.Equal(t, 50, a.Ledger().Check(products[0].ID))
	assert.Equal(t, 25, a.Ledger().Check(products[1].ID))
	assert.Equal(t, 30, a.Ledger().Check(products[2].ID))

	customers, err := a.Repos().Customers.List(ctx)
	require.NoError(t, err)
	assert.Len(t, customers, 1)

	_, err = a.Accounts().Login(ctx, "staff1", "Admin123!")
	require.NoError(t, err)
	_, err = a.Accounts().Login(ctx, "customer1", "Password123!")
	require.NoError(t, err)
}

func TestOrderLifecycle(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)
	sess, err := a.Accounts().Login(ctx, "customer1", "Password123!")
	require.NoError(t, err)

	var mu sync.Mutex
	var low []events.StockLow
	require.NoError(t, a.Bus().Subscribe(events.TopicStockLow, func(e events.StockLow) {
		mu.Lock()
		low = append(low, e)
		mu.Unlock()
	}))

	_, err = a.Carts().AddItem(ctx, sess.CustomerID, 1, 46)
	require.NoError(t, err)
	res := a.Checkout().Checkout(ctx, sess.CustomerID, "card")
	require.True(t, res.Succeeded, res.Message)
	assert.Equal(t, "161.00", res.Total.StringFixed(2))
	a.Bus().Wait()

	assert.Equal(t, 4, a.Ledger().Check(1))
	mu.Lock()
	require.Len(t, low, 1)
	assert.Equal(t, int64(1), low[0].ProductID)
	mu.Unlock()
	assert.Equal(t, int64(1), metrics.Value(metrics.CheckoutSucceeded))
	assert.Equal(t, int64(16100), metrics.Value(metrics.CheckoutRevenueCents))

	_, err = a.Fulfillment().ShipOrder(ctx, res.OrderID, "")
	require.NoError(t, err)
	status, err := a.Fulfillment().OrderStatus(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, status)
	assert.Equal(t, int64(1), metrics.Value(metrics.OrdersShipped))

	failed := a.Checkout().Checkout(ctx, sess.CustomerID, "card")
	assert.False(t, failed.Succeeded)
	assert.Equal(t, int64(1), metrics.Value(metrics.CheckoutFailed))
}

func TestRunJobNow(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)
	require.NoError(t, a.Fulfillment().UpdateStock(ctx, 2, 3))

	require.NoError(t, a.RunJobNow(JobLowStock))
	st, ok := LastJobStatus(JobLowStock)
	require.True(t, ok)
	assert.Equal(t, "success", st.LastResult)
	assert.Equal(t, "low stock products: 1", st.LastMessage)
	assert.Equal(t, int64(1), metrics.Value(metrics.StockLowProducts))

	require.NoError(t, a.RunJobNow(JobOrphanOrders))
	require.NoError(t, a.RunJobNow(JobSalesSnapshot))
	st, _ = LastJobStatus(JobSalesSnapshot)
	assert.Equal(t, "revenue today: 0.00", st.LastMessage)

	assert.ErrorIs(t, a.RunJobNow("nope"), domain.ErrNotFound)
}

func TestStartBackgroundJobs(t *testing.T) {
	a := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.StartBackgroundJobs(ctx))
	require.NotNil(t, a.Scheduler())
	assert.Len(t, a.Scheduler().Entries(), 3)
}

func TestStartBackgroundJobs_BadSchedule(t *testing.T) {
	a := newTestApp(t)
	a.Config().Jobs.LowStockScan = "every now and then"
	assert.Error(t, a.StartBackgroundJobs(context.Background()))
}
