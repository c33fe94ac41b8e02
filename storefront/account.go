package storefront

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Summary is the account overview of one user.
type Summary struct {
	UserID    string      `json:"user_id"`
	Cart      []*CartItem `json:"cart"`
	CartTotal int64       `json:"cart_total"`
	Orders    []*Order    `json:"orders"`
	Addresses []*Address  `json:"addresses"`
}

// Summary loads cart, orders and addresses concurrently. The first failure
// cancels the other loads and is returned.
func (s *Service) Summary(ctx context.Context, userID string) (*Summary, error) {
	if err := invalid(userOnly(userID), "invalid account lookup"); err != nil {
		return nil, err
	}

	summary := &Summary{UserID: userID}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		items, err := s.GetCartItems(ctx, userID)
		summary.Cart = items
		return err
	})
	g.Go(func() error {
		orders, err := s.GetOrders(ctx, userID)
		summary.Orders = orders
		return err
	})
	g.Go(func() error {
		addresses, err := s.GetAddresses(ctx, userID)
		summary.Addresses = addresses
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary.CartTotal = CartTotal(summary.Cart)
	return summary, nil
}
