// Package repositorycache provides a cached decorator for go-repository-bun
// repositories.
//
// # Overview
//
// CachedRepository implements repository.Repository[T] around a base
// repository and routes every call through a query.Executor, so reads and
// writes share the same retry policy and error classification. Reads are
// cached; writes invalidate. Errors pass through store.MapError first, so a
// missing record classifies as NO_DATA and a constraint failure keeps its
// SQLSTATE.
//
// # Basic Usage
//
//	base := repository.NewRepository(db, store.StringIDHandlers(newProduct, productID))
//	products := repositorycache.New(base, exec, repositorycache.WithNamespace("product"))
//
//	p, err := products.GetByID(ctx, "p1") // cached under "product:p1"
//
// # Keys
//
// Keys follow the "<namespace>:<id-or-filter>" convention. The namespace
// defaults to the snake_case name of the record type, so *CartItem becomes
// "cart_item".
//
//   - GetByID without criteria: "<ns>:<id>"
//   - Get, List, Count without criteria: "<ns>:first", "<ns>:list", "<ns>:count"
//   - GetByIdentifier without criteria: "<ns>:identifier:<value>"
//   - any read with criteria, and Raw: only cached when WithCacheKey pins a key
//
// Criteria are closures and two closures built by the same helper with
// different arguments look identical to a serializer, so they are never used
// to derive a key.
//
//	ctx = repositorycache.WithCacheKey(ctx, "cart:"+userID)
//	items, _, err := cartItems.List(ctx, repository.SelectBy("user_id", "=", userID))
//
// A pinned key applies to every read made with that context; derive it right
// before the call it is meant for.
//
// # Invalidation
//
// Entries are tagged: Get, List and Count register "<ns>:list", GetByID
// registers a per record tag. Successful writes drop:
//
//   - Create and CreateMany: the list tag
//   - Update, Upsert, GetOrCreate, Delete, ForceDelete and their bulk forms:
//     each record key, its record tag and the list tag
//   - DeleteMany, DeleteWhere: every key under "<ns>:"
//
// Tags attached with WithCacheTags are registered by reads and dropped by
// writes, which ties views spanning several namespaces to the rows they were
// built from. Invalidation failures are logged and never fail the write.
//
// # Transactions
//
// Tx reads bypass the cache. Tx writes invalidate as soon as the statement
// succeeds, before the transaction commits. Run transactions through a
// TxRunner to have those invalidations repeated after the commit; a read
// that cached uncommitted state in between is dropped then. TxRunner retries
// the whole transaction on transient failures.
package repositorycache
