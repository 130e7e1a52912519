package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/talkincode/ocss/internal/app"
	"github.com/talkincode/ocss/internal/domain"
	"github.com/talkincode/ocss/internal/report"
	"github.com/talkincode/ocss/pkg/metrics"
)

func withStaff(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	return withApp(cmd, func(ctx context.Context, a *app.Application) error {
		if _, err := requireStaff(a); err != nil {
			return err
		}
		return fn(ctx, a)
	})
}

func ordersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "list orders not yet shipped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStaff(cmd, func(ctx context.Context, a *app.Application) error {
				pending, err := a.Fulfillment().PendingOrders(ctx)
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					fmt.Println("No pending orders")
					return nil
				}
				for _, s := range pending {
					fmt.Printf("Order #%d  %-8s %8s\n", s.OrderID, s.Status, s.Total.StringFixed(2))
				}
				return nil
			})
		},
	}
}

func shipCommand() *cobra.Command {
	var tracking string
	cmd := &cobra.Command{
		Use:   "ship [order_id]",
		Short: "ship a paid order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStaff(cmd, func(ctx context.Context, a *app.Application) error {
				id, err := idArg(args[0], "order id")
				if err != nil {
					return err
				}
				sh, err := a.Fulfillment().ShipOrder(ctx, id, tracking)
				if err != nil {
					return err
				}
				fmt.Printf("Order #%d shipped, tracking %s\n", id, sh.TrackingNumber)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tracking, "tracking", "", "tracking number, generated when empty")
	return cmd
}

func stockCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stock [product_id] [qty]",
		Short: "set the stock level of a product",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStaff(cmd, func(ctx context.Context, a *app.Application) error {
				pid, err := idArg(args[0], "product id")
				if err != nil {
					return err
				}
				qty, err := qtyArg(args[1])
				if err != nil {
					return err
				}
				if err := a.Fulfillment().UpdateStock(ctx, pid, qty); err != nil {
					return err
				}
				fmt.Printf("Stock of product #%d set to %d\n", pid, qty)
				return nil
			})
		},
	}
}

func addProductCommand() *cobra.Command {
	var (
		p     domain.Product
		price string
		stock int
	)
	cmd := &cobra.Command{
		Use:   "add-product [name]",
		Short: "add a product to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStaff(cmd, func(ctx context.Context, a *app.Application) error {
				var err error
				p.Name = args[0]
				if p.Price, err = decimal.NewFromString(price); err != nil {
					return errors.Wrapf(domain.ErrInvalidArgument, "price %q", price)
				}
				if err := a.Catalog().AddProduct(ctx, &p, stock); err != nil {
					return err
				}
				fmt.Printf("Product #%d added\n", p.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&p.Description, "description", "", "description")
	cmd.Flags().StringVar(&p.Category, "category", "", "category")
	cmd.Flags().StringVar(&price, "price", "0", "unit price")
	cmd.Flags().IntVar(&stock, "stock", 0, "initial stock")
	return cmd
}

func reportCommand() *cobra.Command {
	var since, until string
	var asCSV bool
	cmd := &cobra.Command{
		Use:   "report [daily|monthly|all]",
		Short: "sales report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStaff(cmd, func(ctx context.Context, a *app.Application) error {
				var st report.Strategy
				if since != "" || until != "" {
					b, err := report.ParseRange(since, until)
					if err != nil {
						return err
					}
					st = b
				} else {
					period := ""
					if len(args) > 0 {
						period = args[0]
					}
					st = report.StrategyFor(period)
				}
				rows, err := a.Reports().Run(ctx, st)
				if err != nil {
					return err
				}
				if asCSV {
					return report.WriteCSV(os.Stdout, rows)
				}
				for _, r := range rows {
					fmt.Printf("%-22s %s\n", r.Metric, r.Value)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "range start, any common date format")
	cmd.Flags().StringVar(&until, "until", "", "range end (exclusive)")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV")
	return cmd
}

func exportOrdersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export-orders",
		Short: "write every order as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStaff(cmd, func(ctx context.Context, a *app.Application) error {
				return a.Reports().ExportOrders(ctx, os.Stdout)
			})
		},
	}
}

func metricsCommand() *cobra.Command {
	var since time.Duration
	cmd := &cobra.Command{
		Use:       "metrics [name]",
		Short:     "show current metric values, or the samples of one metric",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: metrics.Names,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStaff(cmd, func(ctx context.Context, a *app.Application) error {
				if len(args) == 0 {
					for _, name := range metrics.Names {
						fmt.Printf("%-24s %d\n", name, metrics.Value(name))
					}
					return nil
				}
				if since <= 0 {
					return errors.Wrapf(domain.ErrInvalidArgument, "since %s", since)
				}
				end := time.Now().Add(time.Second)
				points, err := metrics.Query(args[0], end.Add(-since), end)
				if err != nil {
					return err
				}
				if len(points) == 0 {
					fmt.Printf("No samples of %s in the last %s\n", args[0], since)
					return nil
				}
				for _, p := range points {
					fmt.Printf("%s  %d\n", p.Time.Format("2006-01-02 15:04:05"), p.Value)
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to list samples")
	return cmd
}
