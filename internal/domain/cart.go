package domain

import "github.com/shopspring/decimal"

// CartItem is one line of a cart. Price is the unit price captured when the
// product was first added.
type CartItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Qty       int             `json:"qty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Recalculate refreshes Subtotal from Price and Qty
func (i *CartItem) Recalculate() {
	i.Subtotal = i.Price.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// Cart is the persisted shape of a customer's cart; one per customer.
type Cart struct {
	ID         int64      `json:"id"`
	CustomerID int64      `json:"customer_id"`
	Items      []CartItem `json:"items"`
}

// Total sums all subtotals
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal)
	}
	return total
}

// CloneItems returns an independent copy of the line items
func (c *Cart) CloneItems() []CartItem {
	out := make([]CartItem, len(c.Items))
	copy(out, c.Items)
	return out
}
