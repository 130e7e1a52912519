package app

import (
	"context"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/talkincode/ocss/internal/events"
	"github.com/talkincode/ocss/pkg/metrics"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() error {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	for _, j := range a.jobs() {
		if j.spec == "" {
			continue
		}
		name := j.name
		if _, err := a.sched.AddFunc(j.spec, func() { _ = a.runJob(name) }); err != nil {
			zap.S().Errorf("init job %s error %s", j.name, err.Error())
			return err
		}
	}
	a.sched.Start()
	return nil
}

// SchedLowStockTask publishes stock:low for every product at or below the threshold
func (a *Application) SchedLowStockTask(ctx context.Context) (string, error) {
	threshold := a.appConfig.Shop.LowStockThreshold
	low := a.ledger.LowStock(threshold)
	for _, l := range low {
		a.bus.Publish(events.TopicStockLow, events.StockLow{ProductID: l.ProductID, Quantity: l.Quantity, Threshold: threshold})
	}
	metrics.SetGauge(metrics.StockLowProducts, int64(len(low)))
	return "low stock products: " + strconv.Itoa(len(low)), nil
}

// SchedOrphanOrderTask reports CREATED orders that never got paid
func (a *Application) SchedOrphanOrderTask(ctx context.Context) (string, error) {
	orphans, err := a.fulfillment.OrphanedOrders(ctx, a.appConfig.Shop.OrphanOrderAge)
	if err != nil {
		return "", err
	}
	for _, o := range orphans {
		zap.L().Warn("orphaned order",
			zap.Int64("order_id", o.ID),
			zap.Int64("customer_id", o.CustomerID),
			zap.Time("created_at", o.CreatedAt),
			zap.String("total", o.Total.StringFixed(2)))
	}
	return "orphaned orders: " + strconv.Itoa(len(orphans)), nil
}

// SchedSalesSnapshotTask records today's revenue as a gauge
func (a *Application) SchedSalesSnapshotTask(ctx context.Context) (string, error) {
	rows, err := a.reports.Generate(ctx, "daily")
	if err != nil {
		return "", err
	}
	for _, r := range rows {
		if r.Metric != "Revenue Today" {
			continue
		}
		cents, err := centsOf(r.Value)
		if err != nil {
			return "", err
		}
		metrics.SetGauge(metrics.SalesRevenueCents, cents)
		return "revenue today: " + r.Value, nil
	}
	return "", nil
}
