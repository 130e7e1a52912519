package cart

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/inventory"
	"github.com/talkincode/ocss/internal/repository"
	"go.uber.org/zap"
)

// ProductLookup finds products by id
type ProductLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

// Reserver is the part of the stock ledger a cart delegates to
type Reserver interface {
	Check(productID int64) int
	ReserveBatch(ctx context.Context, lines []inventory.Line) error
	ReleaseBatch(ctx context.Context, lines []inventory.Line) error
}

// Cart is a customer's in-progress selection. Every mutation is written
// through to the repository; if the write fails the items are left as they
// were before the call.
type Cart struct {
	data     domain.Cart
	repo     repository.CartRepository
	products ProductLookup
	stock    Reserver
}

// Open returns the customer's cart, creating it on first access. Lines
// whose product no longer exists are dropped.
func Open(ctx context.Context, customerID int64, repo repository.CartRepository, products ProductLookup, stock Reserver) (*Cart, error) {
	data, err := repo.GetByCustomer(ctx, customerID)
	if err != nil {
		return nil, errors.Wrapf(err, "load cart of customer %d", customerID)
	}
	if data == nil {
		data = &domain.Cart{CustomerID: customerID, Items: []domain.CartItem{}}
		if err := repo.Create(ctx, data); err != nil {
			return nil, errors.Wrapf(err, "create cart of customer %d", customerID)
		}
	}
	c := &Cart{data: *data, repo: repo, products: products, stock: stock}

	kept := make([]domain.CartItem, 0, len(c.data.Items))
	for _, it := range c.data.Items {
		_, err := products.GetByID(ctx, it.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			zap.L().Warn("dropping cart line of removed product",
				zap.Int64("cart_id", c.data.ID),
				zap.Int64("product_id", it.ProductID))
			continue
		}
		if err != nil {
			return nil, err
		}
		kept = append(kept, it)
	}
	if len(kept) != len(c.data.Items) {
		if err := c.persist(ctx, kept); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Cart) ID() int64         { return c.data.ID }
func (c *Cart) CustomerID() int64 { return c.data.CustomerID }
func (c *Cart) IsEmpty() bool     { return len(c.data.Items) == 0 }

// Items returns a copy of the line items
func (c *Cart) Items() []domain.CartItem {
	return c.data.CloneItems()
}

// persist writes items and adopts them only when the write succeeded
func (c *Cart) persist(ctx context.Context, items []domain.CartItem) error {
	if err := c.repo.SaveItems(ctx, c.data.ID, items); err != nil {
		return errors.Wrapf(err, "save cart %d", c.data.ID)
	}
	c.data.Items = items
	return nil
}

func (c *Cart) indexOf(productID int64) int {
	for i, it := range c.data.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem adds qty units of the product. An existing line is merged; a new
// line captures the current product price.
func (c *Cart) AddItem(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return errors.Wrapf(domain.ErrInvalidArgument, "quantity %d", qty)
	}
	p, err := c.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	items := c.data.CloneItems()
	if i := c.indexOf(productID); i >= 0 {
		items[i].Qty += qty
		items[i].Recalculate()
		return c.persist(ctx, items)
	}
	item := domain.CartItem{ProductID: p.ID, Name: p.Name, Price: p.Price, Qty: qty}
	item.Recalculate()
	return c.persist(ctx, append(items, item))
}

// UpdateQuantity overwrites the quantity of a line; 0 removes it
func (c *Cart) UpdateQuantity(ctx context.Context, productID int64, qty int) error {
	if qty < 0 {
		return errors.Wrapf(domain.ErrInvalidArgument, "quantity %d", qty)
	}
	i := c.indexOf(productID)
	if i < 0 {
		return errors.Wrapf(domain.ErrNotFound, "product %d not in cart", productID)
	}
	items := c.data.CloneItems()
	if qty == 0 {
		items = append(items[:i], items[i+1:]...)
		return c.persist(ctx, items)
	}
	items[i].Qty = qty
	items[i].Recalculate()
	return c.persist(ctx, items)
}

// Remove drops the line of the product
func (c *Cart) Remove(ctx context.Context, productID int64) error {
	return c.UpdateQuantity(ctx, productID, 0)
}

// Clear empties the cart; the cart itself is kept
func (c *Cart) Clear(ctx context.Context) error {
	return c.persist(ctx, []domain.CartItem{})
}

func (c *Cart) Total() decimal.Decimal {
	return c.data.Total()
}

// Snapshot freezes the current lines into order items and their total
func (c *Cart) Snapshot() ([]domain.OrderItem, decimal.Decimal) {
	items := make([]domain.OrderItem, 0, len(c.data.Items))
	for _, it := range c.data.Items {
		items = append(items, domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Qty,
			Price:     it.Price,
			Subtotal:  it.Subtotal,
		})
	}
	return items, c.data.Total()
}

// Lines returns the stock lines of the cart
func (c *Cart) Lines() []inventory.Line {
	lines := make([]inventory.Line, 0, len(c.data.Items))
	for _, it := range c.data.Items {
		lines = append(lines, inventory.Line{ProductID: it.ProductID, Qty: it.Qty})
	}
	return lines
}

// ReserveAll reserves every line; on failure nothing stays reserved
func (c *Cart) ReserveAll(ctx context.Context) error {
	return c.stock.ReserveBatch(ctx, c.Lines())
}

// ReleaseAll returns every line to stock
func (c *Cart) ReleaseAll(ctx context.Context) error {
	return c.stock.ReleaseBatch(ctx, c.Lines())
}
