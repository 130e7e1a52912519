package payment

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/repository"
	"github.com/talkincode/ocss/internal/store"
)

func newPayments(t *testing.T) repository.PaymentRepository {
	s, err := store.NewJSONFileStore(t.TempDir())
	require.NoError(t, err)
	return repository.NewStorePaymentRepository(s)
}

type decliningProcessor struct {
	err error
}

func (decliningProcessor) Method() string { return domain.PaymentMethodCard }

func (d decliningProcessor) Process(context.Context, int64, decimal.Decimal) (domain.PaymentStatus, error) {
	return domain.PaymentDeclined, d.err
}

func TestGateway_PayApproves(t *testing.T) {
	ctx := context.Background()
	payments := newPayments(t)
	g := NewGateway(payments)

	tests := []struct {
		method  string
		stored  string
		message string
	}{
		{"card", "card", "Card payment processed"},
		{"WALLET", "wallet", "Wallet payment processed"},
		{" Card ", "card", "Card payment processed"},
	}
	for i, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			r, err := g.Pay(ctx, tt.method, int64(i+1), decimal.RequireFromString("11.20"))
			require.NoError(t, err)
			assert.Equal(t, tt.stored, r.Payment.Method)
			assert.Equal(t, domain.PaymentApproved, r.Payment.Status)
			assert.Equal(t, tt.message, r.Message)
			assert.NotZero(t, r.Payment.ID)
		})
	}

	all, err := payments.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, []string{"card", "wallet"}, g.Methods())
}

func TestGateway_UnsupportedMethodWritesNothing(t *testing.T) {
	ctx := context.Background()
	payments := newPayments(t)
	g := NewGateway(payments)

	_, err := g.Pay(ctx, "bitcoin", 1, decimal.NewFromInt(5))
	assert.ErrorIs(t, err, domain.ErrUnsupportedMethod)
	assert.False(t, g.Supports("bitcoin"))

	all, err := payments.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGateway_DeclineIsRecorded(t *testing.T) {
	ctx := context.Background()
	payments := newPayments(t)

	for _, perr := range []error{nil, errors.New("card expired")} {
		g := NewGateway(payments, decliningProcessor{err: perr})
		_, err := g.Pay(ctx, "card", 9, decimal.NewFromInt(5))
		assert.ErrorIs(t, err, domain.ErrPaymentFailed)
	}

	recorded, err := payments.ListByOrder(ctx, 9)
	require.NoError(t, err)
	require.Len(t, recorded, 2)
	for _, p := range recorded {
		assert.Equal(t, domain.PaymentDeclined, p.Status)
	}
}

func TestGateway_RegisterReplaces(t *testing.T) {
	g := NewGateway(newPayments(t))
	g.Register(decliningProcessor{})
	_, err := g.Pay(context.Background(), "card", 1, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrPaymentFailed)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Wallet", Title("wallet"))
	assert.Equal(t, "Card", Title("CARD"))
}
