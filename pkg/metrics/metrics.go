package metrics

import (
	"math"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Metric names
const (
	CheckoutSucceeded    = "checkout_succeeded"
	CheckoutFailed       = "checkout_failed"
	CheckoutRevenueCents = "checkout_revenue_cents"
	OrdersShipped        = "orders_shipped"
	StockLowProducts     = "stock_low_products"
	SalesRevenueCents    = "sales_revenue_cents"
)

// Names lists every metric the shop records
var Names = []string{
	CheckoutSucceeded,
	CheckoutFailed,
	CheckoutRevenueCents,
	OrdersShipped,
	StockLowProducts,
	SalesRevenueCents,
}

// Point is one stored sample
type Point struct {
	Time  time.Time
	Value int64
}

var (
	mu       sync.Mutex
	storage  tstorage.Storage
	counters = map[string]int64{}
	// lastStamp keeps insert timestamps strictly increasing
	lastStamp int64
)

// InitMetrics opens the time series storage under workdir/data/metrics.
// An empty workdir keeps everything in memory.
func InitMetrics(workdir string) error {
	mu.Lock()
	defer mu.Unlock()
	if storage != nil {
		_ = storage.Close()
		storage = nil
	}
	counters = map[string]int64{}
	opts := []tstorage.Option{
		tstorage.WithTimestampPrecision(tstorage.Nanoseconds),
		tstorage.WithWriteTimeout(time.Second),
	}
	if workdir != "" {
		opts = append(opts, tstorage.WithDataPath(path.Join(workdir, "data", "metrics")))
	}
	s, err := tstorage.NewStorage(opts...)
	if err != nil {
		return errors.Wrap(err, "open metrics storage")
	}
	storage = s
	return nil
}

// stamp returns a nanosecond timestamp after every earlier one; the caller holds mu.
// tstorage hides a sample whose timestamp does not exceed the previous one
// until its partition is flushed.
func stamp() int64 {
	ts := time.Now().UnixNano()
	if ts <= lastStamp {
		ts = lastStamp + 1
	}
	lastStamp = ts
	return ts
}

func insert(name string, value int64) {
	if storage == nil {
		return
	}
	err := storage.InsertRows([]tstorage.Row{{
		Metric:    name,
		DataPoint: tstorage.DataPoint{Timestamp: stamp(), Value: float64(value)},
	}})
	if err != nil {
		zap.L().Warn("metrics insert", zap.String("metric", name), zap.Error(err))
	}
}

// latest returns the newest stored value; the caller holds mu
func latest(name string) (int64, bool) {
	if storage == nil {
		return 0, false
	}
	points, err := storage.Select(name, nil, 0, math.MaxInt64)
	if err != nil || len(points) == 0 {
		return 0, false
	}
	newest := points[0]
	for _, p := range points[1:] {
		if p.Timestamp >= newest.Timestamp {
			newest = p
		}
	}
	return int64(newest.Value), true
}

// SetGauge records the current value of a gauge
func SetGauge(name string, value int64) {
	mu.Lock()
	defer mu.Unlock()
	counters[name] = value
	insert(name, value)
}

// Add increases a counter by delta and records the new total.
// Counters resume from the last stored value.
func Add(name string, delta int64) {
	mu.Lock()
	defer mu.Unlock()
	cur, ok := counters[name]
	if !ok {
		cur, _ = latest(name)
	}
	cur += delta
	counters[name] = cur
	insert(name, cur)
}

func Incr(name string) {
	Add(name, 1)
}

// Value returns the last value of a counter or gauge
func Value(name string) int64 {
	mu.Lock()
	defer mu.Unlock()
	if v, ok := counters[name]; ok {
		return v
	}
	v, _ := latest(name)
	return v
}

// Query returns the samples of name in [start, end), oldest first
func Query(name string, start, end time.Time) ([]Point, error) {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil, errors.New("metrics not initialised")
	}
	if !start.Before(end) {
		return nil, errors.New("start must be before end")
	}
	points, err := storage.Select(name, nil, start.UnixNano(), end.UnixNano())
	if errors.Is(err, tstorage.ErrNoDataPoints) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "select %s", name)
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})
	out := make([]Point, 0, len(points))
	for _, p := range points {
		out = append(out, Point{Time: time.Unix(0, p.Timestamp), Value: int64(p.Value)})
	}
	return out, nil
}

// Close flushes and closes the storage
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}
