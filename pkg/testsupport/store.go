package testsupport

import (
	"context"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-storefront/cache"
	"github.com/goliatone/go-storefront/query"
	"github.com/goliatone/go-storefront/store"
)

// NewTestDB opens a private in-memory SQLite database and applies
// migrations. The database is closed when the test ends.
func NewTestDB(t testing.TB, migrations fs.FS) *bun.DB {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open(ctx, ":memory:", "")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if migrations != nil {
		if _, err := store.Migrate(ctx, db, migrations, nil); err != nil {
			t.Fatalf("failed to migrate test database: %v", err)
		}
	}

	return db
}

// Clock is a manually advanced clock for cache expiry tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NewExecutor builds a query executor over a fresh cache store driven by
// clock. Retries wait a millisecond so tests stay fast.
func NewExecutor(t testing.TB, clock *Clock, opts ...query.Option) *query.Executor {
	t.Helper()

	cacheCfg := cache.DefaultConfig()
	var storeOpts []cache.StoreOption
	if clock != nil {
		storeOpts = append(storeOpts, cache.WithClock(clock.Now))
	}

	cacheStore, err := cache.NewStore(cacheCfg, storeOpts...)
	if err != nil {
		t.Fatalf("failed to create cache store: %v", err)
	}

	cfg := query.DefaultConfig()
	cfg.BaseDelay = time.Millisecond
	cfg.OperationTimeout = 5 * time.Second

	exec, err := query.New(cacheStore, cfg, opts...)
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	return exec
}
