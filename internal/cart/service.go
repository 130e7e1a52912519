package cart

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/repository"
	"go.uber.org/zap"
)

// DefaultMaxAdd limits the units added in a single call
const DefaultMaxAdd = 50

// View is a read-only rendering of a cart
type View struct {
	CartID int64             `json:"cart_id"`
	Items  []domain.CartItem `json:"items"`
	Total  decimal.Decimal   `json:"total"`
}

// Service applies the shop rules on top of the cart handle
type Service struct {
	carts    repository.CartRepository
	products ProductLookup
	stock    Reserver
	maxAdd   int
}

// NewService creates the service; a non-positive maxAdd uses DefaultMaxAdd
func NewService(carts repository.CartRepository, products ProductLookup, stock Reserver, maxAdd int) *Service {
	if maxAdd <= 0 {
		maxAdd = DefaultMaxAdd
	}
	return &Service{carts: carts, products: products, stock: stock, maxAdd: maxAdd}
}

// Cart opens the customer's cart
func (s *Service) Cart(ctx context.Context, customerID int64) (*Cart, error) {
	return Open(ctx, customerID, s.carts, s.products, s.stock)
}

// AddItem validates the request against stock and limits and adds it
func (s *Service) AddItem(ctx context.Context, customerID, productID int64, qty int) (*domain.CartItem, error) {
	if qty <= 0 {
		return nil, errors.Wrap(domain.ErrInvalidArgument, "quantity must be positive")
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if avail := s.stock.Check(productID); avail < qty {
		return nil, errors.Wrapf(domain.ErrInsufficientStock, "only %d units of %s available", avail, p.Name)
	}
	if qty > s.maxAdd {
		return nil, errors.Wrapf(domain.ErrInvalidArgument, "cannot add more than %d items", s.maxAdd)
	}
	c, err := s.Cart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := c.AddItem(ctx, productID, qty); err != nil {
		return nil, err
	}
	zap.L().Debug("cart item added",
		zap.Int64("customer_id", customerID),
		zap.Int64("product_id", productID),
		zap.Int("qty", qty))
	for _, it := range c.Items() {
		if it.ProductID == productID {
			return &it, nil
		}
	}
	return nil, errors.Wrapf(domain.ErrNotFound, "product %d", productID)
}

// View returns the items and total of the customer's cart
func (s *Service) View(ctx context.Context, customerID int64) (*View, error) {
	c, err := s.Cart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &View{CartID: c.ID(), Items: c.Items(), Total: c.Total()}, nil
}

// Update sets the quantity of a product in the cart; zero removes it
func (s *Service) Update(ctx context.Context, customerID, productID int64, qty int) error {
	c, err := s.Cart(ctx, customerID)
	if err != nil {
		return err
	}
	return c.UpdateQuantity(ctx, productID, qty)
}

// Remove drops a product from the cart
func (s *Service) Remove(ctx context.Context, customerID, productID int64) error {
	c, err := s.Cart(ctx, customerID)
	if err != nil {
		return err
	}
	return c.Remove(ctx, productID)
}

// Clear empties the cart
func (s *Service) Clear(ctx context.Context, customerID int64) error {
	c, err := s.Cart(ctx, customerID)
	if err != nil {
		return err
	}
	return c.Clear(ctx)
}
