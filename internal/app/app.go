package app

import (
	"context"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/ocss/config"
	"github.com/talkincode/ocss/internal/account"
	"github.com/talkincode/ocss/internal/cart"
	"github.com/talkincode/ocss/internal/catalog"
	"github.com/talkincode/ocss/internal/checkout"
	"github.com/talkincode/ocss/internal/events"
	"github.com/talkincode/ocss/internal/fulfillment"
	"github.com/talkincode/ocss/internal/inventory"
	"github.com/talkincode/ocss/internal/payment"
	"github.com/talkincode/ocss/internal/report"
	"github.com/talkincode/ocss/internal/repository"
	"github.com/talkincode/ocss/internal/store"
	"github.com/talkincode/ocss/pkg/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Application struct {
	appConfig   *config.AppConfig
	store       store.RecordStore
	repos       *repository.Repositories
	ledger      *inventory.Ledger
	bus         *events.Bus
	catalog     *catalog.Catalog
	carts       *cart.Service
	gateway     *payment.Gateway
	checkout    *checkout.Orchestrator
	fulfillment *fulfillment.Service
	reports     *report.Service
	accounts    *account.Service
	sched       *cron.Cron
}

// Ensure Application implements all interfaces
var (
	_ StoreProvider     = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ ShopProvider      = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) Store() store.RecordStore {
	return a.store
}

func (a *Application) Repos() *repository.Repositories {
	return a.repos
}

func (a *Application) Ledger() *inventory.Ledger {
	return a.ledger
}

func (a *Application) Bus() *events.Bus {
	return a.bus
}

func (a *Application) Catalog() *catalog.Catalog {
	return a.catalog
}

func (a *Application) Carts() *cart.Service {
	return a.carts
}

func (a *Application) Payments() *payment.Gateway {
	return a.gateway
}

func (a *Application) Checkout() *checkout.Orchestrator {
	return a.checkout
}

func (a *Application) Fulfillment() *fulfillment.Service {
	return a.fulfillment
}

func (a *Application) Reports() *report.Service {
	return a.reports
}

func (a *Application) Accounts() *account.Service {
	return a.accounts
}

// Scheduler returns the cron scheduler, nil until background jobs start
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func initLogger(cfg *config.AppConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	if !cfg.System.Debug {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.OutputPaths = []string{"stderr"}

	if !cfg.Logger.FileEnable {
		return zapConfig.Build(zap.AddCaller())
	}
	lumberJackLogger := &lumberjack.Logger{
		Filename:   cfg.Logger.Filename,
		MaxSize:    64,
		MaxBackups: 7,
		MaxAge:     7,
		Compress:   false,
	}
	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(lumberJackLogger),
			zapConfig.Level,
		),
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(os.Stderr),
			zapConfig.Level,
		),
	)
	return zap.New(core, zap.AddCaller()), nil
}

// Init sets up logging, metrics, the record store and every service
func (a *Application) Init(ctx context.Context) error {
	cfg := a.appConfig
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}
	if err := cfg.InitDirs(); err != nil {
		return errors.Wrap(err, "init workdir")
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return errors.Wrap(err, "init logger")
	}
	zap.ReplaceGlobals(logger)

	if err := metrics.InitMetrics(cfg.System.Workdir); err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	a.store, err = store.Open(cfg.Storage, cfg.System.Workdir)
	if err != nil {
		return err
	}
	zap.S().Infof("Record store opened, type: %s", cfg.Storage.Type)
	a.repos = repository.New(a.store)

	a.ledger, err = inventory.NewLedger(ctx, a.repos.Stock, inventory.WithStrictRelease(cfg.Shop.StrictRelease))
	if err != nil {
		return err
	}
	return a.initServices()
}

func (a *Application) initServices() error {
	cfg := a.appConfig
	a.bus = events.NewBus()
	a.catalog = catalog.NewCatalog(a.repos.Products, a.ledger)
	a.carts = cart.NewService(a.repos.Carts, a.repos.Products, a.ledger, cfg.Shop.MaxCartAdd)
	a.gateway = payment.NewGateway(a.repos.Payments)
	a.checkout = checkout.NewOrchestrator(a.carts, a.repos.Orders, a.repos.Invoices, a.gateway, a.ledger, a.bus)
	var err error
	a.fulfillment, err = fulfillment.NewService(a.repos, a.ledger, a.bus, nil)
	if err != nil {
		return err
	}
	a.reports = report.NewService(a.repos.Orders)
	a.accounts = account.NewService(a.repos, account.NewSessionFile(cfg.GetSessionFile()), cfg.Shop.MinPasswordLength)
	return a.initEvents()
}

// StartBackgroundJobs runs the cron jobs until ctx is done
func (a *Application) StartBackgroundJobs(ctx context.Context) error {
	if err := a.initJob(); err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		<-a.sched.Stop().Done()
	}()
	return nil
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	a.bus.Wait()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			zap.L().Warn("close record store", zap.Error(err))
		}
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
