package app

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/talkincode/ocss/config"
	"github.com/talkincode/ocss/internal/account"
	"github.com/talkincode/ocss/internal/cart"
	"github.com/talkincode/ocss/internal/catalog"
	"github.com/talkincode/ocss/internal/checkout"
	"github.com/talkincode/ocss/internal/fulfillment"
	"github.com/talkincode/ocss/internal/inventory"
	"github.com/talkincode/ocss/internal/payment"
	"github.com/talkincode/ocss/internal/report"
	"github.com/talkincode/ocss/internal/repository"
	"github.com/talkincode/ocss/internal/store"
)

// StoreProvider provides record store access
type StoreProvider interface {
	Store() store.RecordStore
	Repos() *repository.Repositories
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// ShopProvider provides the order lifecycle services
type ShopProvider interface {
	Ledger() *inventory.Ledger
	Catalog() *catalog.Catalog
	Carts() *cart.Service
	Payments() *payment.Gateway
	Checkout() *checkout.Orchestrator
	Fulfillment() *fulfillment.Service
	Reports() *report.Service
	Accounts() *account.Service
}

// AppContext combines all provider interfaces for full application context
// Commands should depend on specific providers or this combined interface
type AppContext interface {
	StoreProvider
	ConfigProvider
	SchedulerProvider
	ShopProvider

	// InitSystem seeds the sample catalog and accounts
	InitSystem(ctx context.Context) error
	// RunJobNow runs a background job immediately by name
	RunJobNow(name string) error
	Release()
}
