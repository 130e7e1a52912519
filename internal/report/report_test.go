package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/repository"
	"github.com/talkincode/ocss/internal/store"
)

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)

func newService(t *testing.T) (*Service, *repository.Repositories) {
	s, err := store.NewJSONFileStore(t.TempDir())
	require.NoError(t, err)
	repos := repository.New(s)
	svc := NewService(repos.Orders)
	svc.now = func() time.Time { return now }
	return svc, repos
}

func addOrder(t *testing.T, repos *repository.Repositories, created time.Time, total string, qty int, status domain.OrderStatus) {
	ctx := context.Background()
	o := &domain.Order{
		CustomerID: 1,
		Items: []domain.OrderItem{{
			ProductID: 1, Name: "Milk 1L", Quantity: qty,
			Price: decimal.RequireFromString("1"), Subtotal: decimal.RequireFromString(total),
		}},
		Total:     decimal.RequireFromString(total),
		CreatedAt: created,
	}
	require.NoError(t, repos.Orders.Create(ctx, o))
	if status == domain.OrderStatusCreated {
		return
	}
	_, err := repos.Orders.Transition(ctx, o.ID, domain.OrderStatusPaid)
	require.NoError(t, err)
	if status == domain.OrderStatusShipped {
		_, err = repos.Orders.Transition(ctx, o.ID, domain.OrderStatusShipped)
		require.NoError(t, err)
	}
}

func rowMap(rows []Row) map[string]string {
	m := make(map[string]string, len(rows))
	for _, r := range rows {
		m[r.Metric] = r.Value
	}
	return m
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	svc, repos := newService(t)
	addOrder(t, repos, now.Add(-time.Hour), "11.20", 3, domain.OrderStatusPaid)
	addOrder(t, repos, now.Add(-2*time.Hour), "7.00", 2, domain.OrderStatusShipped)
	addOrder(t, repos, now.AddDate(0, 0, -3), "4.20", 1, domain.OrderStatusPaid)
	addOrder(t, repos, now.AddDate(0, -2, 0), "10.00", 10, domain.OrderStatusPaid)
	addOrder(t, repos, now, "99.00", 5, domain.OrderStatusCreated)

	tests := []struct {
		period  string
		title   string
		count   string
		revenue string
		values  []string
	}{
		{"daily", "Daily", "Orders Today", "Revenue Today", []string{"2", "18.20", "2.50", "2.50"}},
		{"Monthly", "Monthly", "Orders This Month", "Revenue This Month", []string{"3", "22.40", "2.00", "2.00"}},
		{"all", "All-Time", "Total Orders", "Total Revenue", []string{"4", "32.40", "4.00", "2.50"}},
		{"weekly", "All-Time", "Total Orders", "Total Revenue", []string{"4", "32.40", "4.00", "2.50"}},
	}
	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			rows, err := svc.Generate(ctx, tt.period)
			require.NoError(t, err)
			require.Len(t, rows, 5)
			m := rowMap(rows)
			assert.Equal(t, tt.title, m["Report Type"])
			assert.Equal(t, tt.values[0], m[tt.count])
			assert.Equal(t, tt.values[1], m[tt.revenue])
			assert.Equal(t, tt.values[2], m["Average Basket Size"])
			assert.Equal(t, tt.values[3], m["Median Basket Size"])
		})
	}
}

func TestGenerate_Empty(t *testing.T) {
	ctx := context.Background()
	svc, repos := newService(t)
	for _, period := range []string{"daily", "monthly", "all"} {
		rows, err := svc.Generate(ctx, period)
		require.NoError(t, err)
		require.Len(t, rows, 5)
		assert.Equal(t, "0", rows[1].Value, period)
		assert.Equal(t, "0.00", rows[2].Value, period)
		assert.Equal(t, "0.00", rowMap(rows)["Average Basket Size"], period)
		assert.Equal(t, "0.00", rowMap(rows)["Median Basket Size"], period)
	}

	// unpaid orders alone still leave the report empty
	addOrder(t, repos, now, "99.00", 5, domain.OrderStatusCreated)
	rows, err := svc.Generate(ctx, "daily")
	require.NoError(t, err)
	m := rowMap(rows)
	assert.Equal(t, "0", m["Orders Today"])
	assert.Equal(t, "0.00", m["Revenue Today"])
	assert.Equal(t, "0.00", m["Average Basket Size"])
	assert.Equal(t, "0.00", m["Median Basket Size"])
}

func TestRange(t *testing.T) {
	ctx := context.Background()
	svc, repos := newService(t)
	addOrder(t, repos, time.Date(2024, 1, 10, 9, 0, 0, 0, time.Local), "5.00", 1, domain.OrderStatusPaid)
	addOrder(t, repos, time.Date(2024, 2, 10, 9, 0, 0, 0, time.Local), "6.00", 2, domain.OrderStatusPaid)

	b, err := ParseRange("2024-01-01", "2024/02/01")
	require.NoError(t, err)
	rows, err := svc.Run(ctx, b)
	require.NoError(t, err)
	m := rowMap(rows)
	assert.Equal(t, "Range", m["Report Type"])
	assert.Equal(t, "1", m["Orders In Range"])
	assert.Equal(t, "5.00", m["Revenue In Range"])

	b, err = ParseRange("2024-02-01", "")
	require.NoError(t, err)
	rows, err = svc.Run(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "6.00", rowMap(rows)["Revenue In Range"])
}

func TestParseRange_Errors(t *testing.T) {
	_, err := ParseRange("not a date", "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = ParseRange("2024-03-01", "2024-02-01")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCSV(t *testing.T) {
	ctx := context.Background()
	svc, repos := newService(t)
	addOrder(t, repos, now, "11.20", 3, domain.OrderStatusPaid)

	rows, err := svc.Generate(ctx, "all")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "metric,value", lines[0])
	assert.Equal(t, "Total Revenue,11.20", lines[3])

	buf.Reset()
	require.NoError(t, svc.ExportOrders(ctx, &buf))
	lines = strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "order_id,customer_id,status,items,total,created_at", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,1,PAID,3,11.20,"))
}
