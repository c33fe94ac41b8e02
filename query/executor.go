package query

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-storefront/cache"
	"github.com/goliatone/go-storefront/internal/metrics"
	"github.com/sethvargo/go-retry"
)

// ErrNoData is reported when an operation succeeds without returning data.
var ErrNoData = errors.New("query: operation returned no data")

// Operation is a deferred store call. It must be idempotent when Retry is
// requested, since a failed attempt may already have reached the store.
type Operation[T any] func(ctx context.Context) (T, error)

// Options control a single Execute call.
type Options struct {
	// Retry transient failures with exponential backoff
	Retry bool
	// Cache serves from and writes back to the cache under Key
	Cache bool
	// Key is required for caching; an empty key disables it
	Key string
	// Tags are registered with the cache entry for group invalidation
	Tags []string
}

// Config holds executor wide settings.
type Config struct {
	// Attempts is the total number of invocations, first included.
	Attempts int
	// BaseDelay is the wait before the first retry; it doubles each time.
	BaseDelay time.Duration
	// OperationTimeout bounds a single attempt. Zero disables it.
	OperationTimeout time.Duration
	// CacheEnabled is the global cache switch.
	CacheEnabled bool
}

// DefaultConfig returns 3 attempts, a 1s base delay, a 30s attempt timeout
// and caching enabled.
func DefaultConfig() Config {
	return Config{
		Attempts:         3,
		BaseDelay:        time.Second,
		OperationTimeout: 30 * time.Second,
		CacheEnabled:     true,
	}
}

// Validate checks the config values.
func (c Config) Validate() error {
	var fields []goerrors.FieldError

	if c.Attempts < 1 {
		fields = append(fields, goerrors.FieldError{Field: "Attempts", Message: "must be at least 1", Value: c.Attempts})
	}
	if c.BaseDelay <= 0 {
		fields = append(fields, goerrors.FieldError{Field: "BaseDelay", Message: "must be greater than 0", Value: c.BaseDelay})
	}
	if c.OperationTimeout < 0 {
		fields = append(fields, goerrors.FieldError{Field: "OperationTimeout", Message: "must be non-negative", Value: c.OperationTimeout})
	}

	if len(fields) > 0 {
		return goerrors.NewValidation("invalid query executor config", fields...)
	}
	return nil
}

// RetryHook observes every scheduled retry. attempt is the number of the
// attempt that just failed, delay the wait before the next one.
type RetryHook func(attempt int, delay time.Duration, err error)

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records cache and retry activity.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithRetryHook registers a callback invoked before every retry wait.
func WithRetryHook(hook RetryHook) Option {
	return func(e *Executor) {
		e.onRetry = hook
	}
}

// Executor runs store operations through the cache and retry pipeline.
type Executor struct {
	store   cache.Store
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	onRetry RetryHook
}

// New creates an Executor over store. A nil store behaves like cache.Nop.
func New(store cache.Store, cfg Config, opts ...Option) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if store == nil {
		store = &cache.Nop{}
	}

	e := &Executor{
		store:  store,
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Store returns the cache store the executor reads and writes.
func (e *Executor) Store() cache.Store {
	return e.store
}

// Config returns the executor configuration.
func (e *Executor) Config() Config {
	return e.cfg
}

// Invalidate drops the given cache keys.
func (e *Executor) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	e.metrics.ObserveInvalidation("keys")
	e.logger.DebugContext(ctx, "cache invalidate", "keys", keys)
	return e.store.InvalidateKeys(ctx, keys)
}

// InvalidatePrefix drops every cache key starting with prefix.
func (e *Executor) InvalidatePrefix(ctx context.Context, prefix string) error {
	if prefix == "" {
		return nil
	}
	e.metrics.ObserveInvalidation("prefix")
	e.logger.DebugContext(ctx, "cache invalidate", "prefix", prefix)
	return e.store.DeleteByPrefix(ctx, prefix)
}

// InvalidateTags drops every cache key registered under any of tags.
func (e *Executor) InvalidateTags(ctx context.Context, tags ...string) error {
	tags = dedupeStrings(tags)
	if len(tags) == 0 {
		return nil
	}
	e.metrics.ObserveInvalidation("tags")
	e.logger.DebugContext(ctx, "cache invalidate", "tags", tags)
	return e.store.InvalidateTags(ctx, tags...)
}

func (e *Executor) cacheActive(opts Options) bool {
	return e.cfg.CacheEnabled && opts.Cache && opts.Key != ""
}

// Execute runs op with the cache and retry behavior selected by opts.
//
// A fresh cache entry under opts.Key short circuits op. Otherwise op runs up
// to Config.Attempts times when opts.Retry is set, waiting BaseDelay, then
// 2*BaseDelay and so on between attempts. Every failure is classified before
// the retry decision; only STORE_ERROR and GENERIC_ERROR are retried. NO_DATA
// is terminal: a nil result or sql.ErrNoRows fails on the first attempt, so a
// lookup of a missing row costs one round trip rather than Attempts of them.
// A successful result is written back to the cache, overwriting any entry.
//
// No lock is held between lookup and write back: concurrent misses on the
// same key all run op and the last write wins.
func Execute[T any](ctx context.Context, e *Executor, op Operation[T], opts Options) (T, error) {
	var zero T

	useCache := e.cacheActive(opts)
	if useCache {
		cached, ok, err := cache.Lookup[T](ctx, e.store, opts.Key)
		switch {
		case err != nil:
			e.metrics.ObserveLookup(metrics.CacheError)
			e.logger.WarnContext(ctx, "cache lookup failed", "key", opts.Key, "error", err)
		case ok:
			e.metrics.ObserveLookup(metrics.CacheHit)
			e.logger.DebugContext(ctx, "cache hit", "key", opts.Key)
			return cached, nil
		default:
			e.metrics.ObserveLookup(metrics.CacheMiss)
		}
	} else if opts.Cache {
		e.metrics.ObserveLookup(metrics.CacheDisabled)
	}

	result, err := runAttempts(ctx, e, op, opts.Retry)
	if err != nil {
		e.reportFailure(ctx, opts, err)
		return zero, err
	}

	if useCache {
		tags := dedupeStrings(append(append([]string(nil), opts.Tags...), CacheTags(ctx)...))
		if err := e.store.Set(ctx, opts.Key, result, tags...); err != nil {
			e.logger.WarnContext(ctx, "cache write failed", "key", opts.Key, "error", err)
		}
	}

	return result, nil
}

// Run is Execute for operations that only report an error, such as deletes
// or transactions. Results are never cached.
func Run(ctx context.Context, e *Executor, fn func(ctx context.Context) error, opts Options) error {
	opts.Cache = false
	_, err := Execute(ctx, e, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, opts)
	return err
}

func runAttempts[T any](ctx context.Context, e *Executor, op Operation[T], retryEnabled bool) (T, error) {
	attempts := 1
	if retryEnabled {
		attempts = e.cfg.Attempts
	}

	var (
		attempt int
		lastErr error
	)

	call := func(ctx context.Context) (T, error) {
		attempt++
		e.metrics.ObserveAttempt()

		value, err := invoke(ctx, e.cfg.OperationTimeout, op)
		if err == nil {
			return value, nil
		}

		lastErr = Classify(err)
		if attempts > 1 && Retryable(lastErr) {
			return value, retry.RetryableError(lastErr)
		}
		return value, lastErr
	}

	if attempts <= 1 {
		return call(ctx)
	}

	limited := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(e.cfg.BaseDelay))
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		delay, stop := limited.Next()
		if stop {
			return delay, true
		}
		e.metrics.ObserveRetry()
		e.logger.WarnContext(ctx, "retrying query", "attempt", attempt, "delay", delay, "error", lastErr)
		if e.onRetry != nil {
			e.onRetry(attempt, delay, lastErr)
		}
		return delay, false
	})

	value, err := retry.DoValue(ctx, backoff, call)
	if err == nil {
		return value, nil
	}

	// the wait was aborted; keep both causes
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) && lastErr != nil && !errors.Is(lastErr, ctxErr) {
		return value, newClassified(errors.Join(ctxErr, lastErr), KindGeneric, "query aborted while waiting to retry", nil)
	}

	return value, Classify(err)
}

type outcome[T any] struct {
	value T
	err   error
}

// invoke runs one attempt and turns an absent result into ErrNoData. With a
// timeout the attempt is abandoned once it expires, even if op ignores ctx.
func invoke[T any](ctx context.Context, timeout time.Duration, op Operation[T]) (T, error) {
	if timeout <= 0 {
		return settle(op(ctx))
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		value, err := op(ctx)
		done <- outcome[T]{value: value, err: err}
	}()

	select {
	case out := <-done:
		return settle(out.value, out.err)
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func settle[T any](value T, err error) (T, error) {
	if err != nil {
		return value, err
	}
	if isAbsent(value) {
		return value, ErrNoData
	}
	return value, nil
}

// isAbsent reports nil pointers, slices, maps, interfaces, funcs and chans.
// Empty but non nil collections are data.
func isAbsent(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func (e *Executor) reportFailure(ctx context.Context, opts Options, err error) {
	kind := KindOf(err)
	e.metrics.ObserveFailure(kind.String())

	level := slog.LevelError
	switch kind {
	case KindNoData, KindValidation, KindDuplicateEntry:
		level = slog.LevelDebug
	}

	attrs := goerrors.ToSlogAttributes(err)
	if opts.Key != "" {
		attrs = append(attrs, slog.String("key", opts.Key))
	}
	e.logger.LogAttrs(ctx, level, "query failed: "+err.Error(), attrs...)
}
