package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/repository"
	"go.uber.org/zap"
)

// StockView is the read side of the stock ledger used for browsing
type StockView interface {
	Check(productID int64) int
}

// StockSetter is implemented by the ledger for initial stock
type StockSetter interface {
	StockView
	SetLevel(ctx context.Context, productID int64, qty int) error
}

// Item is a product together with its live stock level
type Item struct {
	domain.Product
	Stock int `json:"stock"`
}

// Catalog lists and registers products
type Catalog struct {
	products repository.ProductRepository
	stock    StockSetter
}

func NewCatalog(products repository.ProductRepository, stock StockSetter) *Catalog {
	return &Catalog{products: products, stock: stock}
}

// Browse returns the products of category (all when empty), with stock
func (c *Catalog) Browse(ctx context.Context, category string) ([]Item, error) {
	products, err := c.products.List(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(products))
	for _, p := range products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		items = append(items, Item{Product: *p, Stock: c.stock.Check(p.ID)})
	}
	return items, nil
}

// Get returns the product or ErrNotFound
func (c *Catalog) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return c.products.GetByID(ctx, id)
}

// Categories returns the distinct categories, sorted
func (c *Catalog) Categories(ctx context.Context) ([]string, error) {
	products, err := c.products.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var out []string
	for _, p := range products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out, nil
}

// AddProduct registers a product and its initial stock level
func (c *Catalog) AddProduct(ctx context.Context, p *domain.Product, stock int) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.Wrap(domain.ErrInvalidArgument, "product name is empty")
	}
	if p.Price.LessThan(decimal.Zero) {
		return errors.Wrapf(domain.ErrInvalidArgument, "negative price %s", p.Price)
	}
	if stock < 0 {
		return errors.Wrapf(domain.ErrInvalidArgument, "negative stock %d", stock)
	}
	if err := c.products.Create(ctx, p); err != nil {
		return err
	}
	if err := c.stock.SetLevel(ctx, p.ID, stock); err != nil {
		return err
	}
	zap.L().Info("product added",
		zap.Int64("product_id", p.ID),
		zap.String("name", p.Name),
		zap.String("price", p.Price.StringFixed(2)),
		zap.Int("stock", stock))
	return nil
}
