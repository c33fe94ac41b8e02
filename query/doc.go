// Package query runs store operations through a read-through cache and an
// exponential backoff retry loop, and classifies every failure into one of a
// closed set of kinds.
//
// # Usage
//
//	exec, err := query.New(store, query.DefaultConfig(), query.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//
//	product, err := query.Execute(ctx, exec, func(ctx context.Context) (*Product, error) {
//		return repo.GetByID(ctx, id)
//	}, query.Options{Retry: true, Cache: true, Key: "product:" + id})
//
// # Classification
//
// Failures come back as *errors.Error values from github.com/goliatone/go-errors
// whose TextCode is one of the Kind constants:
//
//   - DUPLICATE_ENTRY: SQLSTATE 23505
//   - VALIDATION_ERROR: SQLSTATE class 22 or input validation
//   - STORE_ERROR: any other coded store failure
//   - NO_DATA: no error but no data, or sql.ErrNoRows
//   - GENERIC_ERROR: everything else
//
// The raw failure stays reachable through errors.Is and errors.As.
//
// # Retry
//
// Only STORE_ERROR and GENERIC_ERROR are retried. The wait before attempt n+1
// is BaseDelay * 2^(n-1) and is abandoned as soon as the context is done.
// Operations must be idempotent when Retry is requested.
//
// # Cache
//
// Caching needs both Options.Cache and a non empty Options.Key, and the
// executor's CacheEnabled switch. Writes to the underlying data do not touch
// the cache on their own; callers invalidate keys or tags after a mutation.
package query
