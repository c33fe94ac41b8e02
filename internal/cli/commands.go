package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-storefront/storefront"
)

func (a *app) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the storefront schema migrations",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, _ []string) (any, error) {
			version, err := storefront.Migrate(ctx, a.container.DB(), a.container.Logger())
			if err != nil {
				return nil, err
			}
			return map[string]int64{"version": version}, nil
		}),
	}
}

func (a *app) categoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List product categories",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, _ []string) (any, error) {
			return a.container.Storefront().GetCategories(ctx)
		}),
	}
}

func (a *app) productsCommand() *cobra.Command {
	var (
		params   storefront.SearchParams
		minPrice int64
		maxPrice int64
	)

	cmd := &cobra.Command{
		Use:   "products",
		Short: "Search the catalog",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run(func(ctx context.Context, _ []string) (any, error) {
		if cmd.Flags().Changed("min-price") {
			params.MinPrice = &minPrice
		}
		if cmd.Flags().Changed("max-price") {
			params.MaxPrice = &maxPrice
		}
		return a.container.Storefront().GetProducts(ctx, params)
	})

	flags := cmd.Flags()
	flags.StringVar(&params.CategoryID, "category", "", "only products of this category id")
	flags.StringVarP(&params.Query, "query", "q", "", "case insensitive text to look for in name and description")
	flags.Int64Var(&minPrice, "min-price", 0, "lowest price in minor units, inclusive")
	flags.Int64Var(&maxPrice, "max-price", 0, "highest price in minor units, inclusive")
	flags.StringVar(&params.SortBy, "sort", "", "sort column: created_at, name, price or stock")
	flags.BoolVar(&params.SortDesc, "desc", false, "sort descending")
	flags.IntVar(&params.Page, "page", 1, "page number, starting at 1")
	flags.IntVar(&params.Limit, "limit", storefront.DefaultPageSize, "page size")

	return cmd
}

func (a *app) productCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "product [id]",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, args []string) (any, error) {
			return a.container.Storefront().GetProductByID(ctx, args[0])
		}),
	}
}

func (a *app) cartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cart [user_id]",
		Short: "Show a user's cart and its total",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, args []string) (any, error) {
			items, err := a.container.Storefront().GetCartItems(ctx, args[0])
			if err != nil {
				return nil, err
			}
			return struct {
				Items []*storefront.CartItem `json:"items"`
				Total int64                  `json:"total"`
			}{items, storefront.CartTotal(items)}, nil
		}),
	}
}

func (a *app) ordersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "orders [user_id]",
		Short: "List a user's orders, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, args []string) (any, error) {
			return a.container.Storefront().GetOrders(ctx, args[0])
		}),
	}
}

func (a *app) summaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary [user_id]",
		Short: "Show a user's cart, orders and addresses",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, args []string) (any, error) {
			return a.container.Storefront().Summary(ctx, args[0])
		}),
	}
}
