package storefront

import (
	"context"
	"errors"
	"io"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-storefront/query"
	"github.com/goliatone/go-storefront/repositorycache"
	"github.com/goliatone/go-storefront/store"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service exposes the storefront operations: catalog, cart, orders,
// addresses and the account summary. All store access goes through the
// query executor.
type Service struct {
	exec   *query.Executor
	tx     *repositorycache.TxRunner
	logger *slog.Logger

	categories *repositorycache.CachedRepository[*Category]
	products   *repositorycache.CachedRepository[*Product]
	cartItems  *repositorycache.CachedRepository[*CartItem]
	addresses  *repositorycache.CachedRepository[*Address]
	orders     *repositorycache.CachedRepository[*Order]
	orderItems *repositorycache.CachedRepository[*OrderItem]
}

// New builds a Service over db.
func New(db *bun.DB, exec *query.Executor, opts ...Option) *Service {
	s := &Service{
		exec:   exec,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	repoOpts := func(ns string) []repositorycache.Option {
		return []repositorycache.Option{
			repositorycache.WithNamespace(ns),
			repositorycache.WithLogger(s.logger),
		}
	}

	s.tx = repositorycache.NewTxRunner(db, exec, repositorycache.WithLogger(s.logger))

	s.categories = repositorycache.New(repository.NewRepository(db, store.StringIDHandlers(
		func() *Category { return &Category{} },
		func(m *Category) *string { return &m.ID },
	)), exec, repoOpts(nsCategory)...)

	s.products = repositorycache.New(repository.NewRepository(db, store.StringIDHandlers(
		func() *Product { return &Product{} },
		func(m *Product) *string { return &m.ID },
	)), exec, repoOpts(nsProduct)...)

	s.cartItems = repositorycache.New(repository.NewRepository(db, store.StringIDHandlers(
		func() *CartItem { return &CartItem{} },
		func(m *CartItem) *string { return &m.ID },
	)), exec, repoOpts(nsCartItem)...)

	s.addresses = repositorycache.New(repository.NewRepository(db, store.StringIDHandlers(
		func() *Address { return &Address{} },
		func(m *Address) *string { return &m.ID },
	)), exec, repoOpts(nsAddress)...)

	s.orders = repositorycache.New(repository.NewRepository(db, store.StringIDHandlers(
		func() *Order { return &Order{} },
		func(m *Order) *string { return &m.ID },
	)), exec, repoOpts(nsOrder)...)

	s.orderItems = repositorycache.New(repository.NewRepository(db, store.StringIDHandlers(
		func() *OrderItem { return &OrderItem{} },
		func(m *OrderItem) *string { return &m.ID },
	)), exec, repoOpts(nsOrderItem)...)

	return s
}

// Executor returns the query executor the service runs on.
func (s *Service) Executor() *query.Executor {
	return s.exec
}

// invalid turns ozzo validation errors into classified validation failures.
func invalid(err error, msg string) error {
	if err == nil {
		return nil
	}
	var fields validation.Errors
	if !errors.As(err, &fields) {
		// an internal validation error, not bad input
		return query.Classify(err)
	}
	return query.Classify(goerrors.FromOzzoValidation(err, msg))
}

// dropKeys invalidates derived views after a write. Failures are logged;
// the entries still expire with their TTL.
func (s *Service) dropKeys(ctx context.Context, keys ...string) {
	if err := s.exec.Invalidate(ctx, keys...); err != nil {
		s.logger.WarnContext(ctx, "cache invalidation failed", "keys", keys, "error", err)
	}
}

func (s *Service) dropTags(ctx context.Context, tags ...string) {
	if err := s.exec.InvalidateTags(ctx, tags...); err != nil {
		s.logger.WarnContext(ctx, "cache invalidation failed", "tags", tags, "error", err)
	}
}
