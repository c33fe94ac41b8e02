package storefront

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every valid status in lifecycle order.
var OrderStatuses = []OrderStatus{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled}

// PaymentStatus tracks the payment of an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Timestamps is embedded by every model and kept current by the append hooks.
type Timestamps struct {
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

func (t *Timestamps) touch(query bun.Query) {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.UpdatedAt = now
	case *bun.UpdateQuery:
		t.UpdatedAt = now
	}
}

// Category groups products.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:category"`

	ID          string `bun:"id,pk" json:"id"`
	Name        string `bun:"name,notnull" json:"name"`
	Slug        string `bun:"slug,notnull" json:"slug"`
	Description string `bun:"description" json:"description,omitempty"`
	Timestamps
}

// Product is a catalog entry. Prices are in minor currency units.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:product"`

	ID          string    `bun:"id,pk" json:"id"`
	CategoryID  string    `bun:"category_id,nullzero" json:"category_id,omitempty"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description" json:"description,omitempty"`
	Price       int64     `bun:"price,notnull" json:"price"`
	Stock       int       `bun:"stock,notnull" json:"stock"`
	ImageURL    string    `bun:"image_url" json:"image_url,omitempty"`
	Category    *Category `bun:"rel:belongs-to,join:category_id=id" json:"category,omitempty"`
	Timestamps
}

// CartItem is one product line in a user's cart. A user holds at most one
// line per product.
type CartItem struct {
	bun.BaseModel `bun:"table:cart_items,alias:cart_item"`

	ID        string   `bun:"id,pk" json:"id"`
	UserID    string   `bun:"user_id,notnull" json:"user_id"`
	ProductID string   `bun:"product_id,notnull" json:"product_id"`
	Quantity  int      `bun:"quantity,notnull" json:"quantity"`
	Product   *Product `bun:"rel:belongs-to,join:product_id=id" json:"product,omitempty"`
	Timestamps
}

// Subtotal is quantity times the current product price. It is zero when
// the product was not loaded.
func (c *CartItem) Subtotal() int64 {
	if c.Product == nil {
		return 0
	}
	return c.Product.Price * int64(c.Quantity)
}

// Address is a shipping address owned by a user.
type Address struct {
	bun.BaseModel `bun:"table:addresses,alias:address"`

	ID         string `bun:"id,pk" json:"id"`
	UserID     string `bun:"user_id,notnull" json:"user_id"`
	FullName   string `bun:"full_name,notnull" json:"full_name"`
	Line1      string `bun:"line1,notnull" json:"line1"`
	Line2      string `bun:"line2" json:"line2,omitempty"`
	City       string `bun:"city,notnull" json:"city"`
	State      string `bun:"state" json:"state,omitempty"`
	PostalCode string `bun:"postal_code,notnull" json:"postal_code"`
	Country    string `bun:"country,notnull" json:"country"`
	Phone      string `bun:"phone" json:"phone,omitempty"`
	IsDefault  bool   `bun:"is_default,notnull" json:"is_default"`
	Timestamps
}

// Order is a placed order. Total is fixed at creation from the prices of
// the time.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:order"`

	ID            string        `bun:"id,pk" json:"id"`
	UserID        string        `bun:"user_id,notnull" json:"user_id"`
	AddressID     string        `bun:"address_id,notnull" json:"address_id"`
	Status        OrderStatus   `bun:"status,notnull" json:"status"`
	PaymentMethod string        `bun:"payment_method" json:"payment_method,omitempty"`
	PaymentStatus PaymentStatus `bun:"payment_status,notnull" json:"payment_status"`
	Total         int64         `bun:"total,notnull" json:"total"`
	Address       *Address      `bun:"rel:belongs-to,join:address_id=id" json:"address,omitempty"`
	Items         []*OrderItem  `bun:"rel:has-many,join:id=order_id" json:"items,omitempty"`
	Timestamps
}

// OrderItem is one product line of an order, priced when the order was
// placed.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:order_item"`

	ID        string   `bun:"id,pk" json:"id"`
	OrderID   string   `bun:"order_id,notnull" json:"order_id"`
	ProductID string   `bun:"product_id,notnull" json:"product_id"`
	Quantity  int      `bun:"quantity,notnull" json:"quantity"`
	Price     int64    `bun:"price,notnull" json:"price"`
	Product   *Product `bun:"rel:belongs-to,join:product_id=id" json:"product,omitempty"`
	Timestamps
}

var (
	_ bun.BeforeAppendModelHook = (*Category)(nil)
	_ bun.BeforeAppendModelHook = (*Product)(nil)
	_ bun.BeforeAppendModelHook = (*CartItem)(nil)
	_ bun.BeforeAppendModelHook = (*Address)(nil)
	_ bun.BeforeAppendModelHook = (*Order)(nil)
	_ bun.BeforeAppendModelHook = (*OrderItem)(nil)
)

func (m *Category) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	m.touch(query)
	return nil
}

func (m *Product) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	m.touch(query)
	return nil
}

func (m *CartItem) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	m.touch(query)
	return nil
}

func (m *Address) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	m.touch(query)
	return nil
}

func (m *Order) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	m.touch(query)
	return nil
}

func (m *OrderItem) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	m.touch(query)
	return nil
}
