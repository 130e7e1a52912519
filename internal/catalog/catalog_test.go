package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/inventory"
	"github.com/talkincode/ocss/internal/repository"
	"github.com/talkincode/ocss/internal/store"
)

func newCatalog(t *testing.T) *Catalog {
	s, err := store.NewJSONFileStore(t.TempDir())
	require.NoError(t, err)
	repos := repository.New(s)
	ledger, err := inventory.NewLedger(context.Background(), repos.Stock)
	require.NoError(t, err)
	return NewCatalog(repos.Products, ledger)
}

func TestCatalog_AddAndBrowse(t *testing.T) {
	ctx := context.Background()
	c := newCatalog(t)

	require.NoError(t, c.AddProduct(ctx, &domain.Product{Name: "Milk 1L", Price: decimal.RequireFromString("3.50"), Category: "Dairy"}, 50))
	require.NoError(t, c.AddProduct(ctx, &domain.Product{Name: "Bread Loaf", Price: decimal.RequireFromString("4.20"), Category: "Bakery"}, 25))
	require.NoError(t, c.AddProduct(ctx, &domain.Product{Name: "Eggs (12)", Price: decimal.RequireFromString("6.80"), Category: "Dairy"}, 30))

	all, err := c.Browse(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 50, all[0].Stock)

	dairy, err := c.Browse(ctx, "dairy")
	require.NoError(t, err)
	require.Len(t, dairy, 2)
	assert.Equal(t, "Eggs (12)", dairy[1].Name)
	assert.Equal(t, 30, dairy[1].Stock)

	cats, err := c.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bakery", "Dairy"}, cats)
}

func TestCatalog_AddProductValidation(t *testing.T) {
	ctx := context.Background()
	c := newCatalog(t)

	tests := []struct {
		name  string
		p     domain.Product
		stock int
	}{
		{"empty name", domain.Product{Name: " ", Price: decimal.NewFromInt(1)}, 1},
		{"negative price", domain.Product{Name: "x", Price: decimal.NewFromInt(-1)}, 1},
		{"negative stock", domain.Product{Name: "x", Price: decimal.NewFromInt(1)}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.p
			assert.ErrorIs(t, c.AddProduct(ctx, &p, tt.stock), domain.ErrInvalidArgument)
		})
	}

	_, err := c.Get(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
