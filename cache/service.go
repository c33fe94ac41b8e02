package cache

import (
	"context"
	"errors"
)

// ErrInvalidResultType is returned by Lookup when a cached value does not
// have the type the caller asked for.
var ErrInvalidResultType = errors.New("cache: cached value has unexpected type")

// KeySerializer builds a cache key from an entity namespace + arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(entity string, args ...any) string
}

// Store is the explicit cache object handed to the query executor. Its
// lifecycle belongs to whoever constructs it; there is no package level instance.
type Store interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any, tags ...string) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	InvalidateKeys(ctx context.Context, keys []string) error
	InvalidateTags(ctx context.Context, tags ...string) error
	Len() int
}

// Lookup is a type-safe wrapper around Store.Get.
func Lookup[T any](ctx context.Context, store Store, key string) (T, bool, error) {
	var zero T

	value, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}

	if value == nil {
		return zero, true, nil
	}

	typed, ok := value.(T)
	if !ok {
		return zero, false, ErrInvalidResultType
	}
	return typed, true, nil
}

// Nop store returns misses and ignores writes.
type Nop struct{}

var _ Store = (*Nop)(nil)

func (n *Nop) Get(ctx context.Context, key string) (any, bool, error) { return nil, false, nil }
func (n *Nop) Set(ctx context.Context, key string, value any, tags ...string) error {
	return nil
}
func (n *Nop) Delete(ctx context.Context, key string) error             { return nil }
func (n *Nop) DeleteByPrefix(ctx context.Context, prefix string) error  { return nil }
func (n *Nop) InvalidateKeys(ctx context.Context, keys []string) error  { return nil }
func (n *Nop) InvalidateTags(ctx context.Context, tags ...string) error { return nil }
func (n *Nop) Len() int                                                 { return 0 }
