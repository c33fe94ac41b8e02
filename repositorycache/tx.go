package repositorycache

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-storefront/query"
	"github.com/goliatone/go-storefront/store"
)

var _ repository.TransactionManager = (*TxRunner)(nil)

// TxRunner runs transactions through the query executor. Invalidations made
// by CachedRepository writes inside a transaction happen right away and
// again once it commits, so a read that raced the transaction and cached
// uncommitted state does not outlive the commit.
type TxRunner struct {
	db     repository.TransactionManager
	exec   *query.Executor
	logger *slog.Logger
}

// NewTxRunner wraps db. Only WithLogger applies.
func NewTxRunner(db repository.TransactionManager, exec *query.Executor, opts ...Option) *TxRunner {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &TxRunner{db: db, exec: exec, logger: o.logger}
}

// RunInTx runs fn in a transaction. It is retried as a whole, so fn must be
// safe to run again after a rollback.
func (r *TxRunner) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	return query.Run(ctx, r.exec, func(ctx context.Context) error {
		drops := &pendingDrops{}
		if err := r.db.RunInTx(withPending(ctx, drops), opts, fn); err != nil {
			return store.MapError(err)
		}
		r.flush(ctx, drops)
		return nil
	}, writeOptions)
}

func (r *TxRunner) flush(ctx context.Context, drops *pendingDrops) {
	keys, tags, prefixes := drops.snapshot()
	if err := r.exec.Invalidate(ctx, keys...); err != nil {
		r.logger.WarnContext(ctx, "cache invalidation failed", "keys", keys, "error", err)
	}
	if err := r.exec.InvalidateTags(ctx, tags...); err != nil {
		r.logger.WarnContext(ctx, "cache invalidation failed", "tags", tags, "error", err)
	}
	for _, prefix := range prefixes {
		if err := r.exec.InvalidatePrefix(ctx, prefix); err != nil {
			r.logger.WarnContext(ctx, "cache invalidation failed", "prefix", prefix, "error", err)
		}
	}
}

type pendingContextKey struct{}

// pendingDrops collects what writes inside one transaction invalidated.
type pendingDrops struct {
	mu       sync.Mutex
	keys     []string
	tags     []string
	prefixes []string
}

func withPending(ctx context.Context, drops *pendingDrops) context.Context {
	return context.WithValue(ctx, pendingContextKey{}, drops)
}

// pendingFrom returns nil outside a TxRunner transaction. A nil
// *pendingDrops ignores additions.
func pendingFrom(ctx context.Context) *pendingDrops {
	drops, _ := ctx.Value(pendingContextKey{}).(*pendingDrops)
	return drops
}

func (p *pendingDrops) add(keys, tags []string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, keys...)
	p.tags = append(p.tags, tags...)
}

func (p *pendingDrops) addPrefix(prefix string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefixes = append(p.prefixes, prefix)
}

func (p *pendingDrops) snapshot() (keys, tags, prefixes []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keys, p.tags, p.prefixes
}
