package domain

import "github.com/shopspring/decimal"

// Product represents a sellable catalog item
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"` // unit price in main currency units
	Category    string          `json:"category"`
}

// Defaults applied when a stored product record misses optional fields
const (
	DefaultProductDescription = "No description available"
	DefaultProductCategory    = "Uncategorized"
)

// StockLevel is one row of the inventory collection
type StockLevel struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}
