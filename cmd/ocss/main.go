package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/talkincode/ocss/config"
	"github.com/talkincode/ocss/internal/account"
	"github.com/talkincode/ocss/internal/app"
	"github.com/talkincode/ocss/internal/domain"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "ocss",
		Short:         "online convenience store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file")
	rootCmd.AddCommand(
		initCommand(),
		serveCommand(),
		jobCommand(),
		loginCommand(),
		logoutCommand(),
		whoamiCommand(),
		registerCommand(),
		productsCommand(),
		cartCommand(),
		checkoutCommand(),
		invoiceCommand(),
		orderStatusCommand(),
		ordersCommand(),
		shipCommand(),
		stockCommand(),
		addProductCommand(),
		reportCommand(),
		exportOrdersCommand(),
		metricsCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp runs fn against an initialised application
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	a := app.NewApplication(cfg)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.Init(ctx); err != nil {
		return err
	}
	defer a.Release()
	return fn(ctx, a)
}

func requireCustomer(a *app.Application) (*account.Session, error) {
	s := a.Accounts().Current()
	if s == nil || s.CustomerID == 0 {
		return nil, errors.New("please log in as a customer first")
	}
	return s, nil
}

func requireStaff(a *app.Application) (*account.Session, error) {
	s := a.Accounts().Current()
	if !s.IsStaff() {
		return nil, errors.New("please log in as staff first")
	}
	return s, nil
}

func idArg(arg, name string) (int64, error) {
	id, err := cast.ToInt64E(arg)
	if err != nil || id <= 0 {
		return 0, errors.Wrapf(domain.ErrInvalidArgument, "%s %q", name, arg)
	}
	return id, nil
}

func qtyArg(arg string) (int, error) {
	qty, err := cast.ToIntE(arg)
	if err != nil {
		return 0, errors.Wrapf(domain.ErrInvalidArgument, "quantity %q", arg)
	}
	return qty, nil
}

func initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "seed the sample catalog, stock and accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.InitSystem(ctx); err != nil {
					return err
				}
				fmt.Println("System initialized with sample data")
				return nil
			})
		},
	}
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the background jobs until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				if err := a.StartBackgroundJobs(ctx); err != nil {
					return err
				}
				fmt.Println("Background jobs running, press Ctrl+C to stop")
				<-ctx.Done()
				return nil
			})
		},
	}
}

func jobCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "job [name]",
		Short:     "run a background job now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{app.JobLowStock, app.JobOrphanOrders, app.JobSalesSnapshot},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.RunJobNow(args[0]); err != nil {
					return err
				}
				st, _ := app.LastJobStatus(args[0])
				fmt.Println(st.LastMessage)
				return nil
			})
		},
	}
}
