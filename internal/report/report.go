package report

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/repository"
)

// Row is one metric of a report
type Row struct {
	Metric string `json:"metric" csv:"metric"`
	Value  string `json:"value" csv:"value"`
}

// Strategy selects the orders of a report and names its rows
type Strategy interface {
	Title() string
	CountLabel() string
	RevenueLabel() string
	Include(o *domain.Order, now time.Time) bool
}

type daily struct{}

func (daily) Title() string        { return "Daily" }
func (daily) CountLabel() string   { return "Orders Today" }
func (daily) RevenueLabel() string { return "Revenue Today" }
func (daily) Include(o *domain.Order, now time.Time) bool {
	y1, m1, d1 := o.CreatedAt.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

type monthly struct{}

func (monthly) Title() string        { return "Monthly" }
func (monthly) CountLabel() string   { return "Orders This Month" }
func (monthly) RevenueLabel() string { return "Revenue This Month" }
func (monthly) Include(o *domain.Order, now time.Time) bool {
	y1, m1, _ := o.CreatedAt.In(now.Location()).Date()
	y2, m2, _ := now.Date()
	return y1 == y2 && m1 == m2
}

type allTime struct{}

func (allTime) Title() string        { return "All-Time" }
func (allTime) CountLabel() string   { return "Total Orders" }
func (allTime) RevenueLabel() string { return "Total Revenue" }
func (allTime) Include(*domain.Order, time.Time) bool {
	return true
}

// Between covers orders created in [Since, Until)
type Between struct {
	Since time.Time
	Until time.Time
}

func (Between) Title() string        { return "Range" }
func (Between) CountLabel() string   { return "Orders In Range" }
func (Between) RevenueLabel() string { return "Revenue In Range" }
func (b Between) Include(o *domain.Order, _ time.Time) bool {
	if !b.Since.IsZero() && o.CreatedAt.Before(b.Since) {
		return false
	}
	if !b.Until.IsZero() && !o.CreatedAt.Before(b.Until) {
		return false
	}
	return true
}

// StrategyFor maps a period name to its strategy; unknown names mean all-time
func StrategyFor(period string) Strategy {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "daily":
		return daily{}
	case "monthly":
		return monthly{}
	default:
		return allTime{}
	}
}

// ParseRange parses loosely formatted bounds; an empty bound is open
func ParseRange(since, until string) (Between, error) {
	var b Between
	var err error
	if since != "" {
		if b.Since, err = dateparse.ParseLocal(since); err != nil {
			return b, errors.Wrapf(domain.ErrInvalidArgument, "since %q: %v", since, err)
		}
	}
	if until != "" {
		if b.Until, err = dateparse.ParseLocal(until); err != nil {
			return b, errors.Wrapf(domain.ErrInvalidArgument, "until %q: %v", until, err)
		}
	}
	if !b.Since.IsZero() && !b.Until.IsZero() && !b.Since.Before(b.Until) {
		return b, errors.Wrap(domain.ErrInvalidArgument, "since must be before until")
	}
	return b, nil
}

// Service builds sales reports from the stored orders. Orders still in
// CREATED were never paid and are left out.
type Service struct {
	orders repository.OrderRepository
	now    func() time.Time
}

func NewService(orders repository.OrderRepository) *Service {
	return &Service{orders: orders, now: time.Now}
}

// Generate runs the report of the named period
func (s *Service) Generate(ctx context.Context, period string) ([]Row, error) {
	return s.Run(ctx, StrategyFor(period))
}

// Run produces the rows of a strategy
func (s *Service) Run(ctx context.Context, st Strategy) ([]Row, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	revenue := decimal.Zero
	var baskets []float64
	for _, o := range orders {
		if o.Status == domain.OrderStatusCreated || !st.Include(o, now) {
			continue
		}
		revenue = revenue.Add(o.Total)
		units := 0
		for _, it := range o.Items {
			units += it.Quantity
		}
		baskets = append(baskets, float64(units))
	}
	var mean, median float64
	if len(baskets) > 0 {
		if mean, err = stats.Mean(baskets); err != nil {
			return nil, errors.Wrap(err, "basket mean")
		}
		if median, err = stats.Median(baskets); err != nil {
			return nil, errors.Wrap(err, "basket median")
		}
	}
	return []Row{
		{Metric: "Report Type", Value: st.Title()},
		{Metric: st.CountLabel(), Value: strconv.Itoa(len(baskets))},
		{Metric: st.RevenueLabel(), Value: revenue.StringFixed(2)},
		{Metric: "Average Basket Size", Value: strconv.FormatFloat(mean, 'f', 2, 64)},
		{Metric: "Median Basket Size", Value: strconv.FormatFloat(median, 'f', 2, 64)},
	}, nil
}

// WriteCSV writes rows with a header line
func WriteCSV(w io.Writer, rows []Row) error {
	return gocsv.Marshal(rows, w)
}

// OrderRow is the CSV shape of an order
type OrderRow struct {
	OrderID    int64  `csv:"order_id"`
	CustomerID int64  `csv:"customer_id"`
	Status     string `csv:"status"`
	Items      int    `csv:"items"`
	Total      string `csv:"total"`
	CreatedAt  string `csv:"created_at"`
}

// ExportOrders writes every order as CSV
func (s *Service) ExportOrders(ctx context.Context, w io.Writer) error {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return err
	}
	rows := make([]OrderRow, 0, len(orders))
	for _, o := range orders {
		units := 0
		for _, it := range o.Items {
			units += it.Quantity
		}
		rows = append(rows, OrderRow{
			OrderID:    o.ID,
			CustomerID: o.CustomerID,
			Status:     string(o.Status),
			Items:      units,
			Total:      o.Total.StringFixed(2),
			CreatedAt:  o.CreatedAt.Format(time.RFC3339),
		})
	}
	return gocsv.Marshal(rows, w)
}
