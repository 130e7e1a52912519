package app

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/talkincode/ocss/internal/domain"
	"go.uber.org/zap"
)

// Job names
const (
	JobLowStock      = "low_stock"
	JobOrphanOrders  = "orphan_orders"
	JobSalesSnapshot = "sales_snapshot"
)

const jobTimeout = time.Minute

type job struct {
	name string
	spec string
	run  func(ctx context.Context) (string, error)
}

// JobStatus is the outcome of the last run of a job
type JobStatus struct {
	LastRunAt   time.Time
	LastResult  string
	LastMessage string
}

var (
	jobStatusMu sync.Mutex
	jobStatus   = map[string]JobStatus{}
)

func (a *Application) jobs() []job {
	cfg := a.appConfig.Jobs
	return []job{
		{name: JobLowStock, spec: cfg.LowStockScan, run: a.SchedLowStockTask},
		{name: JobOrphanOrders, spec: cfg.OrphanOrderScan, run: a.SchedOrphanOrderTask},
		{name: JobSalesSnapshot, spec: cfg.SalesSnapshot, run: a.SchedSalesSnapshotTask},
	}
}

// RunJobNow triggers a job execution immediately by name
func (a *Application) RunJobNow(name string) error {
	for _, j := range a.jobs() {
		if j.name == name {
			return a.runJob(name)
		}
	}
	return errors.Wrapf(domain.ErrNotFound, "job %q", name)
}

// LastJobStatus returns the outcome of the last run of name
func LastJobStatus(name string) (JobStatus, bool) {
	jobStatusMu.Lock()
	defer jobStatusMu.Unlock()
	s, ok := jobStatus[name]
	return s, ok
}

func (a *Application) runJob(name string) (err error) {
	var j job
	for _, candidate := range a.jobs() {
		if candidate.name == name {
			j = candidate
		}
	}
	status := JobStatus{LastRunAt: time.Now()}
	defer func() {
		if r := recover(); r != nil {
			zap.S().Error(r)
			err = errors.Errorf("job %s panic: %v", name, r)
		}
		if err != nil {
			status.LastResult = "failed"
			status.LastMessage = err.Error()
			zap.L().Error("job failed", zap.String("job", name), zap.Error(err))
		}
		jobStatusMu.Lock()
		jobStatus[name] = status
		jobStatusMu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	msg, err := j.run(ctx)
	if err != nil {
		return err
	}
	status.LastResult = "success"
	status.LastMessage = msg
	zap.L().Info("job done", zap.String("job", name), zap.String("message", msg))
	return nil
}

func centsOf(amount string) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, errors.Wrapf(err, "amount %q", amount)
	}
	return d.Mul(hundred).Round(0).IntPart(), nil
}
