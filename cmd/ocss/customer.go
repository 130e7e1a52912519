package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/talkincode/ocss/internal/account"
	"github.com/talkincode/ocss/internal/app"
	"github.com/talkincode/ocss/internal/domain"
)

func loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login [username] [password]",
		Short: "log in and keep the session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				s, err := a.Accounts().Login(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Printf("Logged in as %s\n", s.UserType)
				return nil
			})
		},
	}
}

func logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "end the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.Accounts().Logout(); err != nil {
					return err
				}
				fmt.Println("Logged out successfully")
				return nil
			})
		},
	}
}

func whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "show the logged in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				s := a.Accounts().Current()
				if s == nil {
					fmt.Println("Not logged in")
					return nil
				}
				fmt.Printf("%s (%s) since %s\n", s.Username, s.UserType, s.LoginAt.Format("2006-01-02 15:04"))
				return nil
			})
		},
	}
}

func registerCommand() *cobra.Command {
	var r account.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "create a customer account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				c, _, err := a.Accounts().RegisterCustomer(ctx, r)
				if err != nil {
					return err
				}
				fmt.Printf("Customer #%d registered\n", c.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&r.Name, "name", "", "full name")
	cmd.Flags().StringVar(&r.Email, "email", "", "email address")
	cmd.Flags().StringVar(&r.Address, "address", "", "delivery address")
	cmd.Flags().StringVar(&r.Username, "username", "", "login name")
	cmd.Flags().StringVar(&r.Password, "password", "", "login password")
	return cmd
}

func productsCommand() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "products",
		Short: "browse products with live stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				items, err := a.Catalog().Browse(ctx, category)
				if err != nil {
					return err
				}
				for _, it := range items {
					fmt.Printf("%3d  %-20s %-8s %8s  stock %d\n", it.ID, it.Name, it.Category, it.Price.StringFixed(2), it.Stock)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only this category")
	return cmd
}

func cartCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "cart", Short: "manage the shopping cart"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add [product_id] [qty]",
			Short: "add a product",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCustomer(cmd, func(ctx context.Context, a *app.Application, customerID int64) error {
					pid, err := idArg(args[0], "product id")
					if err != nil {
						return err
					}
					qty, err := qtyArg(args[1])
					if err != nil {
						return err
					}
					item, err := a.Carts().AddItem(ctx, customerID, pid, qty)
					if err != nil {
						return err
					}
					fmt.Printf("%s x%d in cart\n", item.Name, item.Qty)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "view",
			Short: "show the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCustomer(cmd, func(ctx context.Context, a *app.Application, customerID int64) error {
					v, err := a.Carts().View(ctx, customerID)
					if err != nil {
						return err
					}
					if len(v.Items) == 0 {
						fmt.Println("Cart is empty")
						return nil
					}
					for _, it := range v.Items {
						fmt.Printf("%3d  %-20s x%-3d %8s\n", it.ProductID, it.Name, it.Qty, it.Subtotal.StringFixed(2))
					}
					fmt.Printf("Total: %s\n", v.Total.StringFixed(2))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "update [product_id] [qty]",
			Short: "set the quantity of a product, 0 removes it",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCustomer(cmd, func(ctx context.Context, a *app.Application, customerID int64) error {
					pid, err := idArg(args[0], "product id")
					if err != nil {
						return err
					}
					qty, err := qtyArg(args[1])
					if err != nil {
						return err
					}
					return a.Carts().Update(ctx, customerID, pid, qty)
				})
			},
		},
		&cobra.Command{
			Use:   "remove [product_id]",
			Short: "remove a product",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCustomer(cmd, func(ctx context.Context, a *app.Application, customerID int64) error {
					pid, err := idArg(args[0], "product id")
					if err != nil {
						return err
					}
					return a.Carts().Remove(ctx, customerID, pid)
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "empty the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCustomer(cmd, func(ctx context.Context, a *app.Application, customerID int64) error {
					return a.Carts().Clear(ctx, customerID)
				})
			},
		},
	)
	return cmd
}

func withCustomer(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application, customerID int64) error) error {
	return withApp(cmd, func(ctx context.Context, a *app.Application) error {
		s, err := requireCustomer(a)
		if err != nil {
			return err
		}
		return fn(ctx, a, s.CustomerID)
	})
}

func checkoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout [card|wallet]",
		Short: "pay for the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCustomer(cmd, func(ctx context.Context, a *app.Application, customerID int64) error {
				res := a.Checkout().Checkout(ctx, customerID, args[0])
				if !res.Succeeded {
					return errors.Errorf("checkout failed (%s): %s", res.Reason, res.Message)
				}
				fmt.Println(res.Message)
				fmt.Printf("Invoice #%d, total %s\n", res.InvoiceID, res.Total.StringFixed(2))
				return nil
			})
		},
	}
}

func invoiceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "invoice [order_id]",
		Short: "show the invoice of an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				id, err := idArg(args[0], "order id")
				if err != nil {
					return err
				}
				s := a.Accounts().Current()
				if s == nil {
					return errors.New("please log in first")
				}
				if !s.IsStaff() {
					o, err := a.Repos().Orders.GetByID(ctx, id)
					if err != nil {
						return err
					}
					if o.CustomerID != s.CustomerID {
						return errors.Wrapf(domain.ErrNotFound, "order %d", id)
					}
				}
				d, err := a.Fulfillment().InvoiceDetails(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("Invoice #%d for order #%d (%s)\n", d.InvoiceID, d.OrderID, d.Status)
				for _, it := range d.Items {
					fmt.Printf("  %-20s x%-3d %8s\n", it.Product, it.Quantity, it.Subtotal.StringFixed(2))
				}
				fmt.Printf("Total: %s  Paid: %v  Method: %s\n", d.Total.StringFixed(2), d.Paid, d.PaymentMethod)
				return nil
			})
		},
	}
}

func orderStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "order-status [order_id]",
		Short: "show the status of an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				id, err := idArg(args[0], "order id")
				if err != nil {
					return err
				}
				status, err := a.Fulfillment().OrderStatus(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("Order #%d: %s\n", id, status)
				return nil
			})
		},
	}
}
