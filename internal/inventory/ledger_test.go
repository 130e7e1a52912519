package inventory

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/repository"
	"github.com/talkincode/ocss/internal/store"
	"pgregory.net/rapid"
)

// memStock keeps levels in memory and can be told to fail writes
type memStock struct {
	levels []domain.StockLevel
	saves  int
	failAt int
}

func (m *memStock) Load(context.Context) ([]domain.StockLevel, error) {
	return append([]domain.StockLevel(nil), m.levels...), nil
}

func (m *memStock) Save(_ context.Context, levels []domain.StockLevel) error {
	m.saves++
	if m.failAt > 0 && m.saves >= m.failAt {
		return errors.New("disk full")
	}
	m.levels = append([]domain.StockLevel(nil), levels...)
	return nil
}

func newLedger(t *testing.T, levels map[int64]int, opts ...Option) (*Ledger, *memStock) {
	repo := &memStock{}
	for id, qty := range levels {
		repo.levels = append(repo.levels, domain.StockLevel{ProductID: id, Quantity: qty})
	}
	l, err := NewLedger(context.Background(), repo, opts...)
	require.NoError(t, err)
	return l, repo
}

func TestLedger_CheckUnknownIsZero(t *testing.T) {
	l, _ := newLedger(t, nil)
	assert.Equal(t, 0, l.Check(42))
}

func TestLedger_Reserve(t *testing.T) {
	ctx := context.Background()
	l, repo := newLedger(t, map[int64]int{1: 50})

	require.NoError(t, l.Reserve(ctx, 1, 2))
	assert.Equal(t, 48, l.Check(1))
	assert.Equal(t, 2, l.Outstanding(1))
	assert.Equal(t, []domain.StockLevel{{ProductID: 1, Quantity: 48}}, repo.levels)

	err := l.Reserve(ctx, 1, 9999)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 48, l.Check(1))

	assert.ErrorIs(t, l.Reserve(ctx, 1, 0), domain.ErrInvalidArgument)
	assert.ErrorIs(t, l.Reserve(ctx, 1, -3), domain.ErrInvalidArgument)
	assert.ErrorIs(t, l.Reserve(ctx, 7, 1), domain.ErrInsufficientStock)
}

func TestLedger_ReserveInsufficientKeepsStock(t *testing.T) {
	l, _ := newLedger(t, map[int64]int{1: 50})
	err := l.Reserve(context.Background(), 1, 9999)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 50, l.Check(1))
}

func TestLedger_SetLevel(t *testing.T) {
	ctx := context.Background()
	l, repo := newLedger(t, map[int64]int{1: 50})

	require.NoError(t, l.SetLevel(ctx, 3, 12))
	require.NoError(t, l.SetLevel(ctx, 1, 0))
	assert.Equal(t, 12, l.Check(3))
	assert.Equal(t, 0, l.Check(1))
	assert.Equal(t, []domain.StockLevel{{ProductID: 1, Quantity: 0}, {ProductID: 3, Quantity: 12}}, repo.levels)

	assert.ErrorIs(t, l.SetLevel(ctx, 1, -1), domain.ErrInvalidArgument)
}

func TestLedger_PersistFailureReverts(t *testing.T) {
	ctx := context.Background()
	l, repo := newLedger(t, map[int64]int{1: 50})
	repo.failAt = 1

	assert.Error(t, l.Reserve(ctx, 1, 5))
	assert.Equal(t, 50, l.Check(1))
	assert.Equal(t, 0, l.Outstanding(1))

	assert.Error(t, l.SetLevel(ctx, 9, 5))
	assert.Equal(t, 0, l.Check(9))
	assert.Len(t, l.Levels(), 1)
}

func TestLedger_ReserveBatchRollsBack(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, map[int64]int{1: 50, 2: 25})

	err := l.ReserveBatch(ctx, []Line{{ProductID: 1, Qty: 5}, {ProductID: 2, Qty: 9999}})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 50, l.Check(1))
	assert.Equal(t, 25, l.Check(2))
	assert.Equal(t, 0, l.Outstanding(1))
	assert.Equal(t, 0, l.OverReleases())

	require.NoError(t, l.ReserveBatch(ctx, []Line{{ProductID: 1, Qty: 5}, {ProductID: 2, Qty: 5}}))
	assert.Equal(t, 45, l.Check(1))
	assert.Equal(t, 20, l.Check(2))
}

func TestLedger_ReserveBatchRollbackFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	l, repo := newLedger(t, map[int64]int{1: 50, 2: 25})
	// first reserve succeeds, the rollback write fails
	repo.failAt = 2

	err := l.ReserveBatch(ctx, []Line{{ProductID: 1, Qty: 5}, {ProductID: 2, Qty: 9999}})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestLedger_ReleaseBatchAndCommit(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, map[int64]int{1: 50, 2: 25})
	lines := []Line{{ProductID: 1, Qty: 2}, {ProductID: 2, Qty: 1}}

	require.NoError(t, l.ReserveBatch(ctx, lines))
	require.NoError(t, l.ReleaseBatch(ctx, lines))
	assert.Equal(t, 50, l.Check(1))
	assert.Equal(t, 25, l.Check(2))

	require.NoError(t, l.ReserveBatch(ctx, lines))
	l.Commit(lines)
	assert.Equal(t, 0, l.Outstanding(1))
	assert.Equal(t, 48, l.Check(1))

	err := l.ReleaseBatch(ctx, []Line{{ProductID: 1, Qty: 0}, {ProductID: 2, Qty: -1}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestLedger_OverReleasePermissive(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, map[int64]int{1: 10})

	require.NoError(t, l.Release(ctx, 1, 5))
	assert.Equal(t, 15, l.Check(1))
	assert.Equal(t, 1, l.OverReleases())
}

func TestLedger_OverReleaseStrict(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t, map[int64]int{1: 10}, WithStrictRelease(true))

	assert.ErrorIs(t, l.Release(ctx, 1, 5), domain.ErrOverRelease)
	assert.Equal(t, 10, l.Check(1))

	require.NoError(t, l.Reserve(ctx, 1, 4))
	require.NoError(t, l.Release(ctx, 1, 4))
	assert.Equal(t, 10, l.Check(1))
	assert.Equal(t, 0, l.OverReleases())
}

func TestLedger_LowStock(t *testing.T) {
	l, _ := newLedger(t, map[int64]int{1: 50, 2: 5, 3: 0})
	assert.Equal(t, []domain.StockLevel{{ProductID: 2, Quantity: 5}, {ProductID: 3, Quantity: 0}}, l.LowStock(5))
	assert.Equal(t, []domain.StockLevel{{ProductID: 1, Quantity: 50}, {ProductID: 2, Quantity: 5}, {ProductID: 3, Quantity: 0}}, l.Levels())
}

func TestLedger_WithRecordStore(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewJSONFileStore(t.TempDir())
	require.NoError(t, err)
	repo := repository.NewStoreStockRepository(s)
	require.NoError(t, repo.Save(ctx, []domain.StockLevel{{ProductID: 1, Quantity: 50}}))

	l, err := NewLedger(ctx, repo)
	require.NoError(t, err)
	require.NoError(t, l.Reserve(ctx, 1, 2))

	reloaded, err := NewLedger(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, 48, reloaded.Check(1))
}

// stock never goes negative, whatever sequence of operations runs
func TestLedger_PropertyNonNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		repo := &memStock{levels: []domain.StockLevel{{ProductID: 1, Quantity: 10}, {ProductID: 2, Quantity: 3}}}
		l, err := NewLedger(ctx, repo, WithStrictRelease(rapid.Bool().Draw(t, "strict")))
		if err != nil {
			t.Fatal(err)
		}
		ops := rapid.IntRange(1, 40).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			pid := rapid.Int64Range(1, 3).Draw(t, "pid")
			qty := rapid.IntRange(-2, 15).Draw(t, "qty")
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				_ = l.Reserve(ctx, pid, qty)
			case 1:
				_ = l.Release(ctx, pid, qty)
			case 2:
				_ = l.SetLevel(ctx, pid, qty)
			case 3:
				_ = l.ReserveBatch(ctx, []Line{{ProductID: pid, Qty: qty}, {ProductID: 3 - pid%2, Qty: qty}})
			}
			for _, lv := range l.Levels() {
				if lv.Quantity < 0 {
					t.Fatalf("product %d went negative: %d", lv.ProductID, lv.Quantity)
				}
			}
		}
	})
}

// a failed batch leaves every level exactly as it was
func TestLedger_PropertyBatchAtomicity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		n := rapid.IntRange(1, 6).Draw(t, "n")
		repo := &memStock{}
		for i := 1; i <= n; i++ {
			repo.levels = append(repo.levels, domain.StockLevel{ProductID: int64(i), Quantity: rapid.IntRange(0, 20).Draw(t, "stock")})
		}
		l, err := NewLedger(ctx, repo)
		if err != nil {
			t.Fatal(err)
		}
		before := l.Levels()

		lines := make([]Line, rapid.IntRange(1, 8).Draw(t, "lines"))
		for i := range lines {
			lines[i] = Line{
				ProductID: rapid.Int64Range(1, int64(n)).Draw(t, "pid"),
				Qty:       rapid.IntRange(1, 25).Draw(t, "qty"),
			}
		}
		if err := l.ReserveBatch(ctx, lines); err != nil {
			if !errors.Is(err, domain.ErrInsufficientStock) {
				t.Fatalf("unexpected error %v", err)
			}
			after := l.Levels()
			for i := range before {
				if before[i] != after[i] {
					t.Fatalf("level changed after failed batch: %v -> %v", before[i], after[i])
				}
			}
			if l.OverReleases() != 0 {
				t.Fatalf("rollback counted as over-release")
			}
		}
	})
}

// permissive mode: a release always adds and is counted when it exceeds the reservations
func TestLedger_PropertyOverReleaseDocumented(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		start := rapid.IntRange(0, 50).Draw(t, "start")
		l, err := NewLedger(ctx, &memStock{levels: []domain.StockLevel{{ProductID: 1, Quantity: start}}})
		if err != nil {
			t.Fatal(err)
		}
		reserved := rapid.IntRange(0, start).Draw(t, "reserved")
		if reserved > 0 {
			if err := l.Reserve(ctx, 1, reserved); err != nil {
				t.Fatal(err)
			}
		}
		release := rapid.IntRange(1, 60).Draw(t, "release")
		if err := l.Release(ctx, 1, release); err != nil {
			t.Fatal(err)
		}
		if got := l.Check(1); got != start-reserved+release {
			t.Fatalf("level %d, want %d", got, start-reserved+release)
		}
		wantOver := 0
		if release > reserved {
			wantOver = 1
		}
		if l.OverReleases() != wantOver {
			t.Fatalf("over releases %d, want %d", l.OverReleases(), wantOver)
		}
	})
}
