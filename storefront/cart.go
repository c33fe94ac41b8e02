package storefront

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-storefront/query"
	"github.com/goliatone/go-storefront/repositorycache"
)

type cartLine struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (l cartLine) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.UserID, validation.Required),
		validation.Field(&l.ProductID, validation.Required),
		validation.Field(&l.Quantity, validation.Required, validation.Min(1)),
	)
}

func userOnly(userID string) error {
	return validation.Errors{"user_id": validation.Validate(userID, validation.Required)}.Filter()
}

// GetCartItems returns the user's cart lines with their products, oldest
// first, cached under CartKey(userID).
func (s *Service) GetCartItems(ctx context.Context, userID string) ([]*CartItem, error) {
	if err := invalid(userOnly(userID), "invalid cart"); err != nil {
		return nil, err
	}

	ctx = repositorycache.WithCacheTags(ctx, s.productViews())
	ctx = repositorycache.WithCacheKey(ctx, CartKey(userID))
	items, _, err := s.cartItems.List(ctx,
		repository.SelectBy("user_id", "=", userID),
		repository.SelectRelation("Product"),
		orderBy("created_at", false),
		orderBy("id", false),
		unpaged,
	)
	return items, err
}

// CartTotal sums the subtotals of items.
func CartTotal(items []*CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

// AddToCart adds quantity of a product to the user's cart, creating the line
// or increasing an existing one.
func (s *Service) AddToCart(ctx context.Context, userID, productID string, quantity int) (*CartItem, error) {
	line := cartLine{UserID: userID, ProductID: productID, Quantity: quantity}
	if err := invalid(line.Validate(), "invalid cart item"); err != nil {
		return nil, err
	}

	item, err := s.addToCart(ctx, line)
	if query.KindOf(err) == query.KindDuplicateEntry {
		// a concurrent add inserted the line first; it exists now
		item, err = s.addToCart(ctx, line)
	}
	if err != nil {
		return nil, err
	}

	s.dropKeys(ctx, CartKey(userID))
	return item, nil
}

func (s *Service) addToCart(ctx context.Context, line cartLine) (*CartItem, error) {
	var item *CartItem
	err := s.tx.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := s.findCartLine(ctx, tx, line.UserID, line.ProductID)
		switch {
		case err == nil:
			quantity := existing.Quantity + line.Quantity
			item, err = s.cartItems.UpdateTx(ctx, tx, existing, newChanges().set("quantity", quantity)...)
			return err
		case errors.Is(err, sql.ErrNoRows):
			item, err = s.cartItems.CreateTx(ctx, tx, &CartItem{
				UserID:    line.UserID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
			})
			return err
		default:
			return err
		}
	})
	return item, err
}

// UpdateCartItem sets the quantity of an existing cart line.
func (s *Service) UpdateCartItem(ctx context.Context, userID, productID string, quantity int) (*CartItem, error) {
	line := cartLine{UserID: userID, ProductID: productID, Quantity: quantity}
	if err := invalid(line.Validate(), "invalid cart item"); err != nil {
		return nil, err
	}

	var item *CartItem
	err := s.tx.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := s.findCartLine(ctx, tx, userID, productID)
		if err != nil {
			return err
		}
		item, err = s.cartItems.UpdateTx(ctx, tx, existing, newChanges().set("quantity", quantity)...)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dropKeys(ctx, CartKey(userID))
	return item, nil
}

// RemoveFromCart deletes one cart line. A missing line is NO_DATA.
func (s *Service) RemoveFromCart(ctx context.Context, userID, productID string) error {
	line := cartLine{UserID: userID, ProductID: productID, Quantity: 1}
	if err := invalid(line.Validate(), "invalid cart item"); err != nil {
		return err
	}

	err := s.tx.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := s.findCartLine(ctx, tx, userID, productID)
		if err != nil {
			return fmt.Errorf("cart item %s for user %s: %w", productID, userID, err)
		}
		return s.cartItems.DeleteTx(ctx, tx, existing)
	})
	if err != nil {
		return err
	}

	s.dropKeys(ctx, CartKey(userID))
	return nil
}

// ClearCart empties the user's cart. Clearing an empty cart is not an error.
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	if err := invalid(userOnly(userID), "invalid cart"); err != nil {
		return err
	}

	if err := s.cartItems.DeleteWhere(ctx, repository.DeleteBy("user_id", "=", userID)); err != nil {
		return err
	}

	s.dropKeys(ctx, CartKey(userID))
	return nil
}

func (s *Service) findCartLine(ctx context.Context, tx bun.IDB, userID, productID string) (*CartItem, error) {
	return s.cartItems.GetTx(ctx, tx,
		repository.SelectBy("user_id", "=", userID),
		repository.SelectBy("product_id", "=", productID),
	)
}
