// Package cache provides the cache store and key serialization used by the
// resilient query executor.
//
// # Overview
//
// This package exports two main interfaces and their default implementations:
//
//   - Store: an explicit, goroutine safe key/value cache with TTL expiry and tag
//     based invalidation. NewStore returns the sturdyc backed implementation, Nop
//     disables caching.
//   - KeySerializer: builds keys in the "<entity>:<id-or-serialized-filter>" form.
//
// There is no package level cache. The application creates a Store at startup,
// hands it to the executor, and drops it at shutdown.
//
// # Basic Usage
//
//	store, err := cache.NewStore(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	serializer := cache.NewDefaultKeySerializer()
//	key := serializer.SerializeKey("products", SearchParams{Page: 1}) // products:{"page":1,...}
//
//	_ = store.Set(ctx, key, page, "product:list")
//	cached, ok, err := cache.Lookup[Page](ctx, store, key)
//
// # Expiry
//
// Every entry carries the instant it was written. A read that finds an entry
// with now - timestamp > TTL deletes it and reports a miss. Writes always
// overwrite. Staleness up to the TTL is accepted; callers that mutate data are
// expected to invalidate the keys or tags that describe it.
//
// # Tags
//
// Set accepts tags that are recorded in a reverse index (tag -> keys).
// InvalidateTags drops every key registered under a tag. This is how writes
// that do not know the exact key of a cached view (for example an order status
// change that does not know the owning user) still invalidate it.
//
// # Key Serialization Strategy
//
//   - fmt.Stringer values (uuid.UUID, time.Time) use their String form
//   - Basic types: direct string representation
//   - Structs and maps: JSON, with a reflective fallback when JSON fails
//   - Slices/arrays: recursive serialization of elements
//   - Function pointers: %p formatting, stable only within a process
package cache
