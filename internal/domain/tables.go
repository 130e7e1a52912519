package domain

// Entity names of the record collections
const (
	EntityCustomers = "customers"
	EntityAccounts  = "accounts"
	EntityProducts  = "products"
	EntityInventory = "inventory"
	EntityOrders    = "orders"
	EntityInvoices  = "invoices"
	EntityPayments  = "payments"
	EntityShipments = "shipments"
	EntityCarts     = "carts"
	EntityStaff     = "staff"
)

// Tables lists every collection a record store must provide
var Tables = []string{
	// Identity
	EntityCustomers,
	EntityAccounts,
	EntityStaff,
	// Catalog
	EntityProducts,
	EntityInventory,
	// Sales
	EntityCarts,
	EntityOrders,
	EntityInvoices,
	EntityPayments,
	EntityShipments,
}

// IsEntity reports whether name is a known collection
func IsEntity(name string) bool {
	for _, t := range Tables {
		if t == name {
			return true
		}
	}
	return false
}
