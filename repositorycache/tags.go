package repositorycache

import (
	"context"

	"github.com/goliatone/go-storefront/query"
)

type cacheKeyContextKey struct{}

// WithCacheKey pins the cache key used by the next cached read made with ctx.
// Reads with criteria are only cached when a key is pinned, since criteria
// closures cannot be told apart by value.
func WithCacheKey(ctx context.Context, key string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, cacheKeyContextKey{}, key)
}

func cacheKeyFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	key, _ := ctx.Value(cacheKeyContextKey{}).(string)
	return key
}

// WithCacheTags attaches tags to ctx. Cached reads register them and
// successful writes invalidate them, which keeps cross entity views such as
// "cart:<user>" in step with the rows they were built from.
func WithCacheTags(ctx context.Context, tags ...string) context.Context {
	return query.WithCacheTags(ctx, tags...)
}
