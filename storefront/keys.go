package storefront

import "github.com/goliatone/go-storefront/cache"

var keys = cache.NewDefaultKeySerializer()

// Cache namespaces. Single record keys share the repository namespace so
// repository writes drop them directly.
const (
	nsProduct   = "product"
	nsProducts  = "products"
	nsCategory  = "category"
	nsCart      = "cart"
	nsCartItem  = "cart_item"
	nsOrder     = "order"
	nsOrders    = "orders"
	nsOrderItem = "order_item"
	nsAddress   = "address"
	nsAddresses = "addresses"
)

// ProductsKey is the key of a product listing, e.g. products:{"page":1,"limit":10}.
func ProductsKey(params SearchParams) string { return keys.SerializeKey(nsProducts, params) }

// ProductKey is "product:<id>".
func ProductKey(id string) string { return keys.SerializeKey(nsProduct, id) }

// CategoriesKey holds the full category list.
func CategoriesKey() string { return keys.SerializeKey(nsCategory, "all") }

// CartKey is "cart:<userID>".
func CartKey(userID string) string { return keys.SerializeKey(nsCart, userID) }

// OrdersKey is "orders:<userID>".
func OrdersKey(userID string) string { return keys.SerializeKey(nsOrders, userID) }

// OrderKey is "order:<id>".
func OrderKey(id string) string { return keys.SerializeKey(nsOrder, id) }

// AddressesKey is "addresses:<userID>".
func AddressesKey(userID string) string { return keys.SerializeKey(nsAddresses, userID) }

// AddressKey is "address:<id>".
func AddressKey(id string) string { return keys.SerializeKey(nsAddress, id) }
