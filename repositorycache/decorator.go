package repositorycache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-storefront/cache"
	"github.com/goliatone/go-storefront/query"
	"github.com/goliatone/go-storefront/store"
)

var _ repository.Repository[any] = (*CachedRepository[any])(nil)

// listResult wraps the tuple result from List operations for caching
type listResult[T any] struct {
	Records []T `json:"records"`
	Total   int `json:"total"`
}

// Option configures a CachedRepository or a TxRunner.
type Option func(*options)

type options struct {
	namespace  string
	serializer cache.KeySerializer
	logger     *slog.Logger
}

// WithNamespace overrides the key namespace. It defaults to the snake_case
// name of the record type.
func WithNamespace(ns string) Option {
	return func(o *options) {
		if ns != "" {
			o.namespace = ns
		}
	}
}

// WithKeySerializer replaces the default key serializer.
func WithKeySerializer(s cache.KeySerializer) Option {
	return func(o *options) {
		if s != nil {
			o.serializer = s
		}
	}
}

// WithLogger sets the logger used to report failed invalidations.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func defaultOptions() options {
	return options{
		serializer: cache.NewDefaultKeySerializer(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// CachedRepository decorates a repository. Every call outside a transaction
// goes through the query executor: reads are retried and cached, writes are
// retried and then invalidate what they may have changed. Transactional
// reads pass through, transactional writes invalidate. Errors come back in
// the shapes query.Classify knows, see store.MapError.
type CachedRepository[T any] struct {
	base       repository.Repository[T]
	exec       *query.Executor
	namespace  string
	serializer cache.KeySerializer
	logger     *slog.Logger
}

// New wraps base with caching through exec.
func New[T any](base repository.Repository[T], exec *query.Executor, opts ...Option) *CachedRepository[T] {
	o := defaultOptions()
	o.namespace = namespaceOf[T]()
	for _, opt := range opts {
		opt(&o)
	}

	return &CachedRepository[T]{
		base:       base,
		exec:       exec,
		namespace:  o.namespace,
		serializer: o.serializer,
		logger:     o.logger,
	}
}

// Namespace returns the key namespace, e.g. "cart_item".
func (c *CachedRepository[T]) Namespace() string {
	return c.namespace
}

// IDKey returns the key GetByID caches a record under: "<ns>:<id>".
func (c *CachedRepository[T]) IDKey(id string) string {
	return c.serializer.SerializeKey(c.namespace, id)
}

// ListTag is registered by every Get, List and Count entry and dropped by
// every write.
func (c *CachedRepository[T]) ListTag() string {
	return c.serializer.SerializeKey(c.namespace, "list")
}

func (c *CachedRepository[T]) recordTag(id string) string {
	return c.serializer.SerializeKey(c.namespace, "record", id)
}

// readKey picks the cache key for a read: a pinned key wins, then the
// fallback when there are no criteria. An empty key disables caching.
func (c *CachedRepository[T]) readKey(ctx context.Context, criteria int, fallback string) string {
	if key := cacheKeyFromContext(ctx); key != "" {
		return key
	}
	if criteria > 0 {
		return ""
	}
	return fallback
}

func (c *CachedRepository[T]) readOptions(ctx context.Context, criteria int, fallback string, tags ...string) query.Options {
	key := c.readKey(ctx, criteria, fallback)
	return query.Options{
		Retry: true,
		Cache: key != "",
		Key:   key,
		Tags:  tags,
	}
}

var writeOptions = query.Options{Retry: true}

// Get retrieves a single record using the provided criteria, with caching
func (c *CachedRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	opts := c.readOptions(ctx, len(criteria), c.serializer.SerializeKey(c.namespace, "first"), c.ListTag())
	return query.Execute(ctx, c.exec, func(ctx context.Context) (T, error) {
		record, err := c.base.Get(ctx, criteria...)
		return record, store.MapError(err)
	}, opts)
}

// GetByID retrieves a record by ID with optional criteria, with caching
func (c *CachedRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	opts := c.readOptions(ctx, len(criteria), c.IDKey(id), c.recordTag(id))
	return query.Execute(ctx, c.exec, func(ctx context.Context) (T, error) {
		record, err := c.base.GetByID(ctx, id, criteria...)
		return record, store.MapError(err)
	}, opts)
}

// List retrieves a page of records and the total count, with caching
func (c *CachedRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	opts := c.readOptions(ctx, len(criteria), c.ListTag(), c.ListTag())
	res, err := query.Execute(ctx, c.exec, func(ctx context.Context) (*listResult[T], error) {
		records, total, err := c.base.List(ctx, criteria...)
		if err != nil {
			return nil, store.MapError(err)
		}
		return &listResult[T]{Records: records, Total: total}, nil
	}, opts)
	if err != nil {
		return nil, 0, err
	}
	return res.Records, res.Total, nil
}

// Count returns the number of records matching the criteria, with caching
func (c *CachedRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	opts := c.readOptions(ctx, len(criteria), c.serializer.SerializeKey(c.namespace, "count"), c.ListTag())
	return query.Execute(ctx, c.exec, func(ctx context.Context) (int, error) {
		n, err := c.base.Count(ctx, criteria...)
		return n, store.MapError(err)
	}, opts)
}

// GetByIdentifier retrieves a record by its identifier column, with caching
func (c *CachedRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	fallback := c.serializer.SerializeKey(c.namespace, "identifier", identifier)
	opts := c.readOptions(ctx, len(criteria), fallback, c.ListTag())
	return query.Execute(ctx, c.exec, func(ctx context.Context) (T, error) {
		record, err := c.base.GetByIdentifier(ctx, identifier, criteria...)
		return record, store.MapError(err)
	}, opts)
}

// Raw runs a raw query. The result is only cached under a pinned key.
func (c *CachedRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	opts := c.readOptions(ctx, 1, "", c.ListTag())
	return query.Execute(ctx, c.exec, func(ctx context.Context) ([]T, error) {
		records, err := c.base.Raw(ctx, sql, args...)
		return records, store.MapError(err)
	}, opts)
}

// Create inserts a record and drops the cached lists
func (c *CachedRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := query.Execute(ctx, c.exec, func(ctx context.Context) (T, error) {
		created, err := c.base.Create(ctx, record, criteria...)
		return created, store.MapError(err)
	}, writeOptions)
	if err == nil {
		c.invalidateAfterCreate(ctx)
	}
	return result, err
}

// CreateTx inserts a record within a transaction
func (c *CachedRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := c.base.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		return result, store.MapError(err)
	}
	c.invalidateAfterCreate(ctx)
	return result, nil
}

// CreateMany inserts records and drops the cached lists
func (c *CachedRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	if len(records) == 0 {
		return nil, nil
	}
	result, err := query.Execute(ctx, c.exec, func(ctx context.Context) ([]T, error) {
		created, err := c.base.CreateMany(ctx, records, criteria...)
		return created, store.MapError(err)
	}, writeOptions)
	if err == nil {
		c.invalidateAfterCreate(ctx)
	}
	return result, err
}

// CreateManyTx inserts records within a transaction
func (c *CachedRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := c.base.CreateManyTx(ctx, tx, records, criteria...)
	if err != nil {
		return result, store.MapError(err)
	}
	c.invalidateAfterCreate(ctx)
	return result, nil
}

// GetOrCreate returns the stored record or inserts it
func (c *CachedRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	result, err := query.Execute(ctx, c.exec, func(ctx context.Context) (T, error) {
		found, err := c.base.GetOrCreate(ctx, record)
		return found, store.MapError(err)
	}, writeOptions)
	if err == nil {
		c.invalidateRecord(ctx, extractID(result))
	}
	return result, err
}

// GetOrCreateTx returns the stored record or inserts it within a transaction
func (c *CachedRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	result, err := c.base.GetOrCreateTx(ctx, tx, record)
	if err != nil {
		return result, store.MapError(err)
	}
	c.invalidateRecord(ctx, extractID(result))
	return result, nil
}

// Update writes a record and drops its cached copy and the cached lists
func (c *CachedRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := query.Execute(ctx, c.exec, func(ctx context.Context) (T, error) {
		updated, err := c.base.Update(ctx, record, criteria...)
		return updated, store.MapError(err)
	}, writeOptions)
	if err == nil {
		c.invalidateRecord(ctx, extractID(result))
	}
	return result, err
}

// UpdateTx writes a record within a transaction
func (c *CachedRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.UpdateTx(ctx, tx, record, criteria...)
	if err != nil {
		return result, store.MapError(err)
	}
	c.invalidateRecord(ctx, extractID(result))
	return result, nil
}

// UpdateMany writes records and drops their cached copies
func (c *CachedRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	if len(records) == 0 {
		return nil, nil
	}
	result, err := query.Execute(ctx, c.exec, func(ctx context.Context) ([]T, error) {
		updated, err := c.base.UpdateMany(ctx, records, criteria...)
		return updated, store.MapError(err)
	}, writeOptions)
	if err == nil {
		c.invalidateRecords(ctx, result)
	}
	return result, err
}

// UpdateManyTx writes records within a transaction
func (c *CachedRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpdateManyTx(ctx, tx, records, criteria...)
	if err != nil {
		return result, store.MapError(err)
	}
	c.invalidateRecords(ctx, result)
	return result, nil
}

// Upsert updates the stored record or inserts it
func (c *CachedRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := query.Execute(ctx, c.exec, func(ctx context.Context) (T, error) {
		saved, err := c.base.Upsert(ctx, record, criteria...)
		return saved, store.MapError(err)
	}, writeOptions)
	if err == nil {
		c.invalidateRecord(ctx, extractID(result))
	}
	return result, err
}

// UpsertTx updates or inserts a record within a transaction
func (c *CachedRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.UpsertTx(ctx, tx, record, criteria...)
	if err != nil {
		return result, store.MapError(err)
	}
	c.invalidateRecord(ctx, extractID(result))
	return result, nil
}

// UpsertMany updates or inserts every record
func (c *CachedRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	if len(records) == 0 {
		return nil, nil
	}
	result, err := query.Execute(ctx, c.exec, func(ctx context.Context) ([]T, error) {
		saved, err := c.base.UpsertMany(ctx, records, criteria...)
		return saved, store.MapError(err)
	}, writeOptions)
	if err == nil {
		c.invalidateRecords(ctx, result)
	}
	return result, err
}

// UpsertManyTx updates or inserts every record within a transaction
func (c *CachedRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpsertManyTx(ctx, tx, records, criteria...)
	if err != nil {
		return result, store.MapError(err)
	}
	c.invalidateRecords(ctx, result)
	return result, nil
}

// Delete removes a record and drops its cached copy and the cached lists
func (c *CachedRepository[T]) Delete(ctx context.Context, record T) error {
	err := query.Run(ctx, c.exec, func(ctx context.Context) error {
		return store.MapError(c.base.Delete(ctx, record))
	}, writeOptions)
	if err == nil {
		c.invalidateRecord(ctx, extractID(record))
	}
	return err
}

// DeleteTx removes a record within a transaction
func (c *CachedRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	if err := c.base.DeleteTx(ctx, tx, record); err != nil {
		return store.MapError(err)
	}
	c.invalidateRecord(ctx, extractID(record))
	return nil
}

// DeleteMany removes every record matching criteria. The removed rows are
// unknown, so the whole namespace is dropped.
func (c *CachedRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := query.Run(ctx, c.exec, func(ctx context.Context) error {
		return store.MapError(c.base.DeleteMany(ctx, criteria...))
	}, writeOptions)
	if err == nil {
		c.invalidateNamespace(ctx)
	}
	return err
}

// DeleteManyTx removes every record matching criteria within a transaction
func (c *CachedRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	if err := c.base.DeleteManyTx(ctx, tx, criteria...); err != nil {
		return store.MapError(err)
	}
	c.invalidateNamespace(ctx)
	return nil
}

// DeleteWhere removes every record matching criteria
func (c *CachedRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := query.Run(ctx, c.exec, func(ctx context.Context) error {
		return store.MapError(c.base.DeleteWhere(ctx, criteria...))
	}, writeOptions)
	if err == nil {
		c.invalidateNamespace(ctx)
	}
	return err
}

// DeleteWhereTx removes every record matching criteria within a transaction
func (c *CachedRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	if err := c.base.DeleteWhereTx(ctx, tx, criteria...); err != nil {
		return store.MapError(err)
	}
	c.invalidateNamespace(ctx)
	return nil
}

// ForceDelete removes a record, soft deleted or not
func (c *CachedRepository[T]) ForceDelete(ctx context.Context, record T) error {
	err := query.Run(ctx, c.exec, func(ctx context.Context) error {
		return store.MapError(c.base.ForceDelete(ctx, record))
	}, writeOptions)
	if err == nil {
		c.invalidateRecord(ctx, extractID(record))
	}
	return err
}

// ForceDeleteTx removes a record within a transaction
func (c *CachedRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	if err := c.base.ForceDeleteTx(ctx, tx, record); err != nil {
		return store.MapError(err)
	}
	c.invalidateRecord(ctx, extractID(record))
	return nil
}

// GetTx bypasses the cache
func (c *CachedRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	record, err := c.base.GetTx(ctx, tx, criteria...)
	return record, store.MapError(err)
}

// GetByIDTx bypasses the cache
func (c *CachedRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	record, err := c.base.GetByIDTx(ctx, tx, id, criteria...)
	return record, store.MapError(err)
}

// ListTx bypasses the cache
func (c *CachedRepository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	records, total, err := c.base.ListTx(ctx, tx, criteria...)
	return records, total, store.MapError(err)
}

// CountTx bypasses the cache
func (c *CachedRepository[T]) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	n, err := c.base.CountTx(ctx, tx, criteria...)
	return n, store.MapError(err)
}

// GetByIdentifierTx bypasses the cache
func (c *CachedRepository[T]) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	record, err := c.base.GetByIdentifierTx(ctx, tx, identifier, criteria...)
	return record, store.MapError(err)
}

// RawTx bypasses the cache
func (c *CachedRepository[T]) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]T, error) {
	records, err := c.base.RawTx(ctx, tx, sql, args...)
	return records, store.MapError(err)
}

// Handlers returns the model handlers from the base repository
func (c *CachedRepository[T]) Handlers() repository.ModelHandlers[T] {
	return c.base.Handlers()
}

// extractID reads the ID field of a record. Cache keys use the stored key
// as is, which the UUID form from the handlers would not match for text
// keys.
func extractID(record any) string {
	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return ""
	}

	field := v.FieldByName("ID")
	if !field.IsValid() || !field.CanInterface() || field.IsZero() {
		return ""
	}
	return fmt.Sprint(field.Interface())
}

func (c *CachedRepository[T]) invalidateAfterCreate(ctx context.Context) {
	c.invalidate(ctx, nil, append(query.CacheTags(ctx), c.ListTag()))
}

func (c *CachedRepository[T]) invalidateRecord(ctx context.Context, id string) {
	var keys []string
	tags := append(query.CacheTags(ctx), c.ListTag())
	if id != "" {
		keys = append(keys, c.IDKey(id))
		tags = append(tags, c.recordTag(id))
	}
	c.invalidate(ctx, keys, tags)
}

func (c *CachedRepository[T]) invalidateRecords(ctx context.Context, records []T) {
	var keys []string
	tags := append(query.CacheTags(ctx), c.ListTag())
	for _, record := range records {
		if id := extractID(record); id != "" {
			keys = append(keys, c.IDKey(id))
			tags = append(tags, c.recordTag(id))
		}
	}
	c.invalidate(ctx, keys, tags)
}

func (c *CachedRepository[T]) invalidateNamespace(ctx context.Context) {
	c.invalidate(ctx, nil, query.CacheTags(ctx))
	prefix := c.namespace + cache.KeySeparator
	if err := c.exec.InvalidatePrefix(ctx, prefix); err != nil {
		c.logger.WarnContext(ctx, "cache invalidation failed", "namespace", c.namespace, "error", err)
	}
	pendingFrom(ctx).addPrefix(prefix)
}

// invalidate never fails the write; a stale entry expires with its TTL.
func (c *CachedRepository[T]) invalidate(ctx context.Context, keys, tags []string) {
	if err := c.exec.Invalidate(ctx, keys...); err != nil {
		c.logger.WarnContext(ctx, "cache invalidation failed", "keys", keys, "error", err)
	}
	if err := c.exec.InvalidateTags(ctx, tags...); err != nil {
		c.logger.WarnContext(ctx, "cache invalidation failed", "tags", tags, "error", err)
	}
	pendingFrom(ctx).add(keys, tags)
}
