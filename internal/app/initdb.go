package app

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/talkincode/ocss/internal/account"
	"github.com/talkincode/ocss/internal/domain"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type seedProduct struct {
	name        string
	description string
	price       string
	category    string
	stock       int
}

var seedProducts = []seedProduct{
	{"Milk 1L", "Fresh milk bottle", "3.50", "Dairy", 50},
	{"Bread Loaf", "Whole grain loaf", "4.20", "Bakery", 25},
	{"Eggs (12)", "Dozen free-range eggs", "6.80", "Dairy", 30},
}

// InitSystem clears the session and seeds the sample data. Existing
// products, customers and staff are kept; the sample stock levels are reset.
func (a *Application) InitSystem(ctx context.Context) error {
	if err := a.accounts.Logout(); err != nil {
		return err
	}
	var err error
	err = multierr.Append(err, a.checkProducts(ctx))
	err = multierr.Append(err, a.checkCustomers(ctx))
	err = multierr.Append(err, a.checkStaff(ctx))
	if err != nil {
		return err
	}
	zap.L().Info("system initialized with sample data")
	return nil
}

func (a *Application) checkProducts(ctx context.Context) error {
	products, err := a.repos.Products.List(ctx)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		for _, sp := range seedProducts {
			p := &domain.Product{
				Name:        sp.name,
				Description: sp.description,
				Price:       decimal.RequireFromString(sp.price),
				Category:    sp.category,
			}
			if err := a.catalog.AddProduct(ctx, p, sp.stock); err != nil {
				return err
			}
		}
		return nil
	}
	for i, sp := range seedProducts {
		if i >= len(products) {
			break
		}
		if err := a.ledger.SetLevel(ctx, products[i].ID, sp.stock); err != nil {
			return err
		}
	}
	return nil
}

func (a *Application) checkCustomers(ctx context.Context) error {
	customers, err := a.repos.Customers.List(ctx)
	if err != nil || len(customers) > 0 {
		return err
	}
	c, _, err := a.accounts.RegisterCustomer(ctx, account.Registration{
		Name:     "John Doe",
		Email:    "john@example.com",
		Address:  "123 Main St, Melbourne",
		Username: "customer1",
		Password: "Password123!",
	})
	if err != nil {
		zap.L().Error("failed to create sample customer", zap.Error(err))
		return err
	}
	zap.L().Info("initialized sample customer", zap.Int64("customer_id", c.ID))
	return nil
}

func (a *Application) checkStaff(ctx context.Context) error {
	_, err := a.repos.Staff.GetByUsername(ctx, "staff1")
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	st, _, err := a.accounts.CreateStaff(ctx, "staff1", "Admin User", "Admin123!")
	if err != nil {
		zap.L().Error("failed to create sample staff", zap.Error(err))
		return err
	}
	zap.L().Info("initialized sample staff", zap.Int64("staff_id", st.ID))
	return nil
}
