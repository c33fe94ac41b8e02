package query

import "context"

type cacheTagsContextKey struct{}

// WithCacheTags attaches extra cache tags to ctx. Every cache write performed
// by Execute under ctx registers these tags alongside Options.Tags.
func WithCacheTags(ctx context.Context, tags ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(tags) == 0 {
		return ctx
	}

	combined := dedupeStrings(append(CacheTags(ctx), tags...))
	if len(combined) == 0 {
		return ctx
	}

	return context.WithValue(ctx, cacheTagsContextKey{}, combined)
}

// CacheTags returns a copy of the tags attached to ctx.
func CacheTags(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if tags, ok := ctx.Value(cacheTagsContextKey{}).([]string); ok {
		return append([]string(nil), tags...)
	}
	return nil
}

// dedupeStrings keeps the first occurrence of each non empty value.
func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
