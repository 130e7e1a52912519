package inventory

import (
	"context"
	"sync"

	"github.com/google/btree"
	"github.com/pkg/errors"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/repository"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Line is a product quantity taking part in a batch operation
type Line struct {
	ProductID int64
	Qty       int
}

type level struct {
	productID int64
	qty       int
}

func levelLess(a, b level) bool {
	return a.productID < b.productID
}

type Option func(*Ledger)

// WithStrictRelease rejects releases larger than the outstanding reservations
func WithStrictRelease(strict bool) Option {
	return func(l *Ledger) {
		l.strict = strict
	}
}

// Ledger is the single in-process view of available stock. The view is
// loaded once from the repository and written back in full after every
// mutation.
type Ledger struct {
	mu           sync.Mutex
	repo         repository.StockRepository
	levels       *btree.BTreeG[level]
	outstanding  map[int64]int
	overReleases int
	strict       bool
}

// NewLedger loads the current stock levels from repo
func NewLedger(ctx context.Context, repo repository.StockRepository, opts ...Option) (*Ledger, error) {
	rows, err := repo.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load stock levels")
	}
	l := &Ledger{
		repo:        repo,
		levels:      btree.NewG[level](16, levelLess),
		outstanding: make(map[int64]int),
	}
	for _, opt := range opts {
		opt(l)
	}
	for _, row := range rows {
		qty := row.Quantity
		if qty < 0 {
			zap.L().Warn("negative stock level clamped to zero",
				zap.Int64("product_id", row.ProductID),
				zap.Int("quantity", qty))
			qty = 0
		}
		l.levels.ReplaceOrInsert(level{productID: row.ProductID, qty: qty})
	}
	return l, nil
}

func (l *Ledger) get(productID int64) int {
	lv, ok := l.levels.Get(level{productID: productID})
	if !ok {
		return 0
	}
	return lv.qty
}

// put sets qty and persists; the previous value is restored if the write fails
func (l *Ledger) put(ctx context.Context, productID int64, qty int) error {
	prev, existed := l.levels.Get(level{productID: productID})
	l.levels.ReplaceOrInsert(level{productID: productID, qty: qty})
	if err := l.repo.Save(ctx, l.snapshot()); err != nil {
		if existed {
			l.levels.ReplaceOrInsert(prev)
		} else {
			l.levels.Delete(level{productID: productID})
		}
		return errors.Wrap(err, "persist stock levels")
	}
	return nil
}

func (l *Ledger) snapshot() []domain.StockLevel {
	out := make([]domain.StockLevel, 0, l.levels.Len())
	l.levels.Ascend(func(lv level) bool {
		out = append(out, domain.StockLevel{ProductID: lv.productID, Quantity: lv.qty})
		return true
	})
	return out
}

// Check returns the available quantity, 0 for unknown products
func (l *Ledger) Check(productID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.get(productID)
}

// Reserve takes qty units out of the available stock
func (l *Ledger) Reserve(ctx context.Context, productID int64, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reserve(ctx, productID, qty)
}

func (l *Ledger) reserve(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return errors.Wrapf(domain.ErrInvalidArgument, "reserve quantity %d", qty)
	}
	avail := l.get(productID)
	if avail < qty {
		return errors.Wrapf(domain.ErrInsufficientStock, "product %d: requested %d, available %d", productID, qty, avail)
	}
	if err := l.put(ctx, productID, avail-qty); err != nil {
		return err
	}
	l.outstanding[productID] += qty
	return nil
}

// Release returns qty units to the available stock. Releasing more than is
// currently reserved is counted and logged; in strict mode it is rejected.
func (l *Ledger) Release(ctx context.Context, productID int64, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.release(ctx, productID, qty)
}

func (l *Ledger) release(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return errors.Wrapf(domain.ErrInvalidArgument, "release quantity %d", qty)
	}
	reserved := l.outstanding[productID]
	over := qty > reserved
	if over && l.strict {
		return errors.Wrapf(domain.ErrOverRelease, "product %d: release %d, reserved %d", productID, qty, reserved)
	}
	if err := l.put(ctx, productID, l.get(productID)+qty); err != nil {
		return err
	}
	if over {
		l.overReleases++
		l.outstanding[productID] = 0
		zap.L().Warn("stock released beyond outstanding reservations",
			zap.Int64("product_id", productID),
			zap.Int("released", qty),
			zap.Int("reserved", reserved))
		return nil
	}
	l.outstanding[productID] = reserved - qty
	return nil
}

// SetLevel overwrites the available quantity, used by stock corrections
func (l *Ledger) SetLevel(ctx context.Context, productID int64, qty int) error {
	if qty < 0 {
		return errors.Wrapf(domain.ErrInvalidArgument, "stock level %d", qty)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.put(ctx, productID, qty)
}

// ReserveBatch reserves every line or none. On the first failure the lines
// already reserved are released again, in the order they were reserved, and
// the original error is returned.
func (l *Ledger) ReserveBatch(ctx context.Context, lines []Line) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, line := range lines {
		if err := l.reserve(ctx, line.ProductID, line.Qty); err != nil {
			l.rollback(ctx, lines[:i])
			return err
		}
	}
	return nil
}

func (l *Ledger) rollback(ctx context.Context, done []Line) {
	for _, line := range done {
		if err := l.release(ctx, line.ProductID, line.Qty); err != nil {
			zap.L().Error("stock rollback release failed",
				zap.Int64("product_id", line.ProductID),
				zap.Int("qty", line.Qty),
				zap.Error(err))
		}
	}
}

// ReleaseBatch releases every line, collecting the failures
func (l *Ledger) ReleaseBatch(ctx context.Context, lines []Line) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var err error
	for _, line := range lines {
		err = multierr.Append(err, l.release(ctx, line.ProductID, line.Qty))
	}
	return err
}

// Commit retires the reservations of lines once the sale is final
func (l *Ledger) Commit(lines []Line) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range lines {
		left := l.outstanding[line.ProductID] - line.Qty
		if left <= 0 {
			delete(l.outstanding, line.ProductID)
			continue
		}
		l.outstanding[line.ProductID] = left
	}
}

// Outstanding returns the reserved and not yet committed quantity
func (l *Ledger) Outstanding(productID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.outstanding[productID]
}

// OverReleases counts releases that exceeded the outstanding reservations
func (l *Ledger) OverReleases() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.overReleases
}

// Levels returns every stock level ordered by product id
func (l *Ledger) Levels() []domain.StockLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// LowStock returns the levels at or below threshold
func (l *Ledger) LowStock(threshold int) []domain.StockLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.StockLevel
	l.levels.Ascend(func(lv level) bool {
		if lv.qty <= threshold {
			out = append(out, domain.StockLevel{ProductID: lv.productID, Quantity: lv.qty})
		}
		return true
	})
	return out
}
