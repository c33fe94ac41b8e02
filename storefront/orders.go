package storefront

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-storefront/query"
	"github.com/goliatone/go-storefront/repositorycache"
)

// NewOrderItem is one requested line of a new order.
type NewOrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (i NewOrderItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ProductID, validation.Required),
		validation.Field(&i.Quantity, validation.Required, validation.Min(1)),
	)
}

// NewOrder is the input of CreateOrder. Prices come from the catalog, never
// from the caller.
type NewOrder struct {
	UserID        string         `json:"user_id"`
	AddressID     string         `json:"address_id"`
	PaymentMethod string         `json:"payment_method"`
	Items         []NewOrderItem `json:"items"`
	// ClearCart empties the user's cart in the same transaction.
	ClearCart bool `json:"clear_cart"`
}

func (o NewOrder) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.UserID, validation.Required),
		validation.Field(&o.AddressID, validation.Required),
		validation.Field(&o.Items, validation.Required),
	)
}

func statusRule() validation.Rule {
	allowed := make([]any, len(OrderStatuses))
	for i, status := range OrderStatuses {
		allowed[i] = status
	}
	return validation.In(allowed...).Error("must be one of pending, processing, shipped, delivered, cancelled")
}

// GetOrders lists the user's orders, newest first, with address and items.
// Cached under OrdersKey(userID).
func (s *Service) GetOrders(ctx context.Context, userID string) ([]*Order, error) {
	if err := invalid(userOnly(userID), "invalid order lookup"); err != nil {
		return nil, err
	}

	ctx = repositorycache.WithCacheTags(ctx, s.productViews(), s.addresses.ListTag())
	ctx = repositorycache.WithCacheKey(ctx, OrdersKey(userID))
	orders, _, err := s.orders.List(ctx,
		repository.SelectBy("user_id", "=", userID),
		repository.SelectRelation("Address"),
		repository.SelectRelation("Items", orderBy("id", false)),
		repository.SelectRelation("Items.Product"),
		orderBy("created_at", true),
		orderBy("id", false),
		unpaged,
	)
	return orders, err
}

// GetOrderByID returns one order with address and items, cached under
// OrderKey(id).
func (s *Service) GetOrderByID(ctx context.Context, id string) (*Order, error) {
	ctx = repositorycache.WithCacheTags(ctx, s.productViews(), s.addresses.ListTag())
	ctx = repositorycache.WithCacheKey(ctx, OrderKey(id))
	return s.orders.GetByID(ctx, id,
		repository.SelectRelation("Address"),
		repository.SelectRelation("Items", orderBy("id", false)),
		repository.SelectRelation("Items.Product"),
	)
}

// CreateOrder places an order. The order, its items and the optional cart
// cleanup commit together; the total is computed from current prices.
func (s *Service) CreateOrder(ctx context.Context, in NewOrder) (*Order, error) {
	// Validate descends into every item
	if err := invalid(in.Validate(), "invalid order"); err != nil {
		return nil, err
	}

	var order *Order
	err := s.tx.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		address, err := s.addresses.GetByIDTx(ctx, tx, in.AddressID)
		if err != nil {
			return fmt.Errorf("load address: %w", err)
		}
		if address.UserID != in.UserID {
			return invalid(validation.Errors{"address_id": fmt.Errorf("does not belong to user %s", in.UserID)}, "invalid order")
		}

		prices, err := s.priceItems(ctx, tx, in.Items)
		if err != nil {
			return err
		}

		order = &Order{
			UserID:        in.UserID,
			AddressID:     in.AddressID,
			Status:        OrderPending,
			PaymentMethod: in.PaymentMethod,
			PaymentStatus: PaymentPending,
		}
		items := make([]*OrderItem, len(in.Items))
		for i, item := range in.Items {
			items[i] = &OrderItem{ProductID: item.ProductID, Quantity: item.Quantity, Price: prices[item.ProductID]}
			order.Total += prices[item.ProductID] * int64(item.Quantity)
		}

		if _, err := s.orders.CreateTx(ctx, tx, order); err != nil {
			return err
		}
		for _, item := range items {
			item.OrderID = order.ID
		}
		if order.Items, err = s.orderItems.CreateManyTx(ctx, tx, items); err != nil {
			return err
		}

		if in.ClearCart {
			if err := s.cartItems.DeleteWhereTx(ctx, tx, repository.DeleteBy("user_id", "=", in.UserID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	keys := []string{OrdersKey(in.UserID)}
	if in.ClearCart {
		keys = append(keys, CartKey(in.UserID))
	}
	s.dropKeys(ctx, keys...)

	return order, nil
}

// priceItems loads the unit price of every requested product.
func (s *Service) priceItems(ctx context.Context, tx bun.IDB, items []NewOrderItem) (map[string]int64, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products, _, err := s.products.ListTx(ctx, tx, repository.SelectColumnIn("id", ids), unpaged)
	if err != nil {
		return nil, err
	}

	prices := make(map[string]int64, len(products))
	for _, p := range products {
		prices[p.ID] = p.Price
	}

	var missing []goerrors.FieldError
	for i, item := range items {
		if _, ok := prices[item.ProductID]; !ok {
			missing = append(missing, goerrors.FieldError{
				Field:   fmt.Sprintf("items.%d.product_id", i),
				Message: "product does not exist",
				Value:   item.ProductID,
			})
		}
	}
	if len(missing) > 0 {
		return nil, query.Classify(goerrors.NewValidation("invalid order", missing...))
	}
	return prices, nil
}

// UpdateOrderStatus moves an order to status. The owning user is read back
// from the stored row, so the caller only needs the order id.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status OrderStatus) (*Order, error) {
	err := validation.Errors{
		"id":     validation.Validate(id, validation.Required),
		"status": validation.Validate(status, validation.Required, statusRule()),
	}.Filter()
	if err := invalid(err, "invalid order status"); err != nil {
		return nil, err
	}

	order, err := s.orders.Update(ctx, &Order{ID: id}, newChanges().set("status", status)...)
	if err != nil {
		return nil, err
	}

	s.dropKeys(ctx, OrderKey(id), OrdersKey(order.UserID))
	return order, nil
}
