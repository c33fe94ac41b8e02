package di

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-storefront/cache"
	"github.com/goliatone/go-storefront/internal/config"
	"github.com/goliatone/go-storefront/internal/metrics"
	"github.com/goliatone/go-storefront/query"
	"github.com/goliatone/go-storefront/store"
	"github.com/goliatone/go-storefront/storefront"
)

// Container provides dependency injection for the storefront runtime.
// It owns the cache store, the query executor, the store connection and the
// storefront service built on top of them. Close releases the connection.
type Container struct {
	config  config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	cache   cache.Store
	exec    *query.Executor
	db      *bun.DB
	service *storefront.Service
}

// Option configures a Container.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	migrate    bool
	cacheOpts  []cache.StoreOption
	queryOpts  []query.Option
}

// WithLogger sets the logger handed to the executor and the service.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRegisterer registers the executor metrics on reg. Without it no
// metrics are recorded.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithMigrations applies the storefront schema migrations on start.
func WithMigrations() Option {
	return func(o *options) {
		o.migrate = true
	}
}

// WithCacheOptions forwards options to the cache store, e.g. a test clock.
func WithCacheOptions(opts ...cache.StoreOption) Option {
	return func(o *options) {
		o.cacheOpts = append(o.cacheOpts, opts...)
	}
}

// WithQueryOptions forwards extra options to the query executor.
func WithQueryOptions(opts ...query.Option) Option {
	return func(o *options) {
		o.queryOpts = append(o.queryOpts, opts...)
	}
}

// NewContainer validates cfg and builds every component. The store is
// reached before NewContainer returns, so a bad URL fails here.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	var m *metrics.Metrics
	if o.registerer != nil {
		m = metrics.New(o.registerer)
	}

	cacheStore, err := newCacheStore(cfg, o.cacheOpts...)
	if err != nil {
		return nil, fmt.Errorf("cache store: %w", err)
	}

	queryOpts := append([]query.Option{query.WithLogger(o.logger), query.WithMetrics(m)}, o.queryOpts...)
	exec, err := query.New(cacheStore, cfg.QueryConfig(), queryOpts...)
	if err != nil {
		return nil, fmt.Errorf("query executor: %w", err)
	}

	db, err := store.Open(ctx, cfg.StoreURL, cfg.StoreKey)
	if err != nil {
		return nil, err
	}

	if o.migrate {
		version, err := storefront.Migrate(ctx, db, o.logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		o.logger.InfoContext(ctx, "schema ready", "version", version)
	}

	return &Container{
		config:  cfg,
		logger:  o.logger,
		metrics: m,
		cache:   cacheStore,
		exec:    exec,
		db:      db,
		service: storefront.New(db, exec, storefront.WithLogger(o.logger)),
	}, nil
}

// NewContainerFromEnv loads the configuration from the environment and an
// optional .env file, then builds the container.
func NewContainerFromEnv(ctx context.Context, opts ...Option) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewContainer(ctx, cfg, opts...)
}

// newCacheStore returns the in-memory store, or a Nop store when caching is
// switched off.
func newCacheStore(cfg config.Config, opts ...cache.StoreOption) (cache.Store, error) {
	if !cfg.EnableCache {
		return &cache.Nop{}, nil
	}
	return cache.NewStore(cfg.CacheConfig(), opts...)
}

// NewLogger returns a tint backed logger at the configured level.
func NewLogger(w io.Writer, cfg config.Config, color bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      cfg.SlogLevel(),
		TimeFormat: time.Kitchen,
		NoColor:    !color,
	}))
}

// Config returns the configuration the container was built with.
func (c *Container) Config() config.Config {
	return c.config
}

// Logger returns the shared logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Metrics returns the executor metrics, nil when no registerer was given.
func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

// Cache returns the singleton cache store.
func (c *Container) Cache() cache.Store {
	return c.cache
}

// Executor returns the singleton query executor.
func (c *Container) Executor() *query.Executor {
	return c.exec
}

// DB returns the store connection.
func (c *Container) DB() *bun.DB {
	return c.db
}

// Storefront returns the storefront service.
func (c *Container) Storefront() *storefront.Service {
	return c.service
}

// Close releases the store connection. Calling it twice is safe.
func (c *Container) Close() error {
	return c.db.Close()
}
