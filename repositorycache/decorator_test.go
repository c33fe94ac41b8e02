package repositorycache

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-storefront/cache"
	"github.com/goliatone/go-storefront/query"
	"github.com/goliatone/go-storefront/store"
)

// TestUser represents a test entity
type TestUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// mockRepository tracks method calls and serves canned results. Methods the
// tests never reach fall through to the nil embedded interface.
type mockRepository[T any] struct {
	repository.Repository[T]

	mu    sync.Mutex
	calls map[string]int

	getResult     T
	getByIDResult T
	getByIDErrors []error
	listRecords   []T
	listTotal     int
	countResult   int
	writeResult   T
	writeError    error
	handlers      repository.ModelHandlers[T]
}

func newMockRepository[T any](handlers repository.ModelHandlers[T]) *mockRepository[T] {
	return &mockRepository[T]{calls: make(map[string]int), handlers: handlers}
}

func (m *mockRepository[T]) recordCall(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
	return m.calls[method]
}

func (m *mockRepository[T]) callCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *mockRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("Get")
	return m.getResult, nil
}

func (m *mockRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	n := m.recordCall("GetByID")
	if n <= len(m.getByIDErrors) && m.getByIDErrors[n-1] != nil {
		var zero T
		return zero, m.getByIDErrors[n-1]
	}
	return m.getByIDResult, nil
}

func (m *mockRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByIdentifier")
	return m.getResult, nil
}

func (m *mockRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	m.recordCall("List")
	return m.listRecords, m.listTotal, nil
}

func (m *mockRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	m.recordCall("Count")
	return m.countResult, nil
}

func (m *mockRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	m.recordCall("Raw")
	return m.listRecords, nil
}

func (m *mockRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	m.recordCall("Create")
	return record, m.writeError
}

func (m *mockRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	m.recordCall("CreateTx")
	return record, m.writeError
}

func (m *mockRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	m.recordCall("CreateMany")
	return records, m.writeError
}

func (m *mockRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	m.recordCall("Update")
	return m.writeResult, m.writeError
}

func (m *mockRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	m.recordCall("UpdateTx")
	return m.writeResult, m.writeError
}

func (m *mockRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	m.recordCall("UpdateMany")
	return records, m.writeError
}

func (m *mockRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	m.recordCall("Upsert")
	return record, m.writeError
}

func (m *mockRepository[T]) Delete(ctx context.Context, record T) error {
	m.recordCall("Delete")
	return m.writeError
}

func (m *mockRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	m.recordCall("DeleteTx")
	return m.writeError
}

func (m *mockRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	m.recordCall("DeleteWhere")
	return m.writeError
}

func (m *mockRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	m.recordCall("DeleteWhereTx")
	return m.writeError
}

func (m *mockRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetTx")
	return m.getResult, nil
}

func (m *mockRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByIDTx")
	return m.getByIDResult, nil
}

func (m *mockRepository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	m.recordCall("ListTx")
	return m.listRecords, m.listTotal, nil
}

func (m *mockRepository[T]) Handlers() repository.ModelHandlers[T] {
	return m.handlers
}

// mockTxManager hands fn a zero transaction; the mock repository never
// touches it.
type mockTxManager struct {
	mu     sync.Mutex
	calls  int
	errors []error
}

func (m *mockTxManager) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	m.mu.Lock()
	m.calls++
	n := m.calls
	m.mu.Unlock()

	if err := fn(ctx, bun.Tx{}); err != nil {
		return err
	}
	if n <= len(m.errors) {
		return m.errors[n-1]
	}
	return nil
}

func userHandlers() repository.ModelHandlers[*TestUser] {
	return store.StringIDHandlers(
		func() *TestUser { return &TestUser{} },
		func(u *TestUser) *string { return &u.ID },
	)
}

func newTestExecutor(t *testing.T) *query.Executor {
	t.Helper()

	cacheStore, err := cache.NewStore(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("cache store: %v", err)
	}

	cfg := query.DefaultConfig()
	cfg.BaseDelay = time.Millisecond
	cfg.OperationTimeout = 0

	exec, err := query.New(cacheStore, cfg)
	if err != nil {
		t.Fatalf("executor: %v", err)
	}
	return exec
}

func newCachedUsers(t *testing.T) (*CachedRepository[*TestUser], *mockRepository[*TestUser]) {
	t.Helper()
	base := newMockRepository(userHandlers())
	base.getByIDResult = &TestUser{ID: "u1", Name: "Ada"}
	base.getResult = &TestUser{ID: "u1", Name: "Ada"}
	base.listRecords = []*TestUser{{ID: "u1", Name: "Ada"}, {ID: "u2", Name: "Grace"}}
	base.listTotal = 2
	base.countResult = 2
	base.writeResult = &TestUser{ID: "u1", Name: "Ada L."}
	return New[*TestUser](base, newTestExecutor(t)), base
}

func bySomething() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery { return q }
}

func TestNamespace(t *testing.T) {
	repo, _ := newCachedUsers(t)

	if repo.Namespace() != "test_user" {
		t.Errorf("expected namespace test_user, got %s", repo.Namespace())
	}
	if repo.IDKey("u1") != "test_user:u1" {
		t.Errorf("unexpected id key %s", repo.IDKey("u1"))
	}
	if repo.ListTag() != "test_user:list" {
		t.Errorf("unexpected list tag %s", repo.ListTag())
	}

	custom := New[*TestUser](newMockRepository(userHandlers()), newTestExecutor(t), WithNamespace("user"))
	if custom.IDKey("u1") != "user:u1" {
		t.Errorf("unexpected id key %s", custom.IDKey("u1"))
	}
}

func TestCachedRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	repo, base := newCachedUsers(t)

	first, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if base.callCount("GetByID") != 1 {
		t.Errorf("expected 1 base call, got %d", base.callCount("GetByID"))
	}
	if first != second {
		t.Error("expected the cached record to be returned")
	}
}

func TestCachedRepository_CriteriaNeedPinnedKey(t *testing.T) {
	ctx := context.Background()
	repo, base := newCachedUsers(t)

	for i := 0; i < 2; i++ {
		if _, _, err := repo.List(ctx, bySomething()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if base.callCount("List") != 2 {
		t.Errorf("expected unpinned criteria to bypass the cache, got %d calls", base.callCount("List"))
	}

	pinned := WithCacheKey(ctx, "users:active")
	for i := 0; i < 2; i++ {
		records, total, err := repo.List(pinned, bySomething())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 2 || total != 2 {
			t.Errorf("unexpected page %v total %d", records, total)
		}
	}
	if base.callCount("List") != 3 {
		t.Errorf("expected the pinned key to be cached, got %d calls", base.callCount("List"))
	}

	for i := 0; i < 2; i++ {
		if _, err := repo.GetByID(WithCacheKey(ctx, "user:u1:full"), "u1", bySomething()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if base.callCount("GetByID") != 1 {
		t.Errorf("expected 1 base call, got %d", base.callCount("GetByID"))
	}
}

func TestCachedRepository_ReadsWithoutCriteria(t *testing.T) {
	ctx := context.Background()
	repo, base := newCachedUsers(t)

	for i := 0; i < 3; i++ {
		if _, _, err := repo.List(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := repo.Count(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := repo.Get(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	for _, method := range []string{"List", "Count", "Get"} {
		if base.callCount(method) != 1 {
			t.Errorf("expected 1 %s call, got %d", method, base.callCount(method))
		}
	}
}

func TestCachedRepository_CreateInvalidatesLists(t *testing.T) {
	ctx := context.Background()
	repo, base := newCachedUsers(t)

	_, _, _ = repo.List(ctx)
	_, _ = repo.GetByID(ctx, "u1")

	if _, err := repo.Create(ctx, &TestUser{ID: "u3", Name: "Hedy"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, _ = repo.List(ctx)
	_, _ = repo.GetByID(ctx, "u1")

	if base.callCount("List") != 2 {
		t.Errorf("expected list to be refetched, got %d calls", base.callCount("List"))
	}
	if base.callCount("GetByID") != 1 {
		t.Errorf("expected unrelated record to stay cached, got %d calls", base.callCount("GetByID"))
	}
}

func TestCachedRepository_UpdateInvalidatesRecord(t *testing.T) {
	ctx := context.Background()
	repo, base := newCachedUsers(t)

	_, _ = repo.GetByID(ctx, "u1")
	_, _ = repo.GetByID(WithCacheKey(ctx, "user:u1:full"), "u1", bySomething())
	_, _ = repo.Count(ctx)

	updated, err := repo.Update(ctx, &TestUser{ID: "u1", Name: "Ada L."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "Ada L." {
		t.Errorf("unexpected result %+v", updated)
	}

	_, _ = repo.GetByID(ctx, "u1")
	_, _ = repo.GetByID(WithCacheKey(ctx, "user:u1:full"), "u1", bySomething())
	_, _ = repo.Count(ctx)

	if base.callCount("GetByID") != 4 {
		t.Errorf("expected both record views to be refetched, got %d calls", base.callCount("GetByID"))
	}
	if base.callCount("Count") != 2 {
		t.Errorf("expected count to be refetched, got %d calls", base.callCount("Count"))
	}
}

func TestCachedRepository_DeleteInvalidatesRecord(t *testing.T) {
	ctx := context.Background()
	repo, base := newCachedUsers(t)

	_, _ = repo.GetByID(ctx, "u1")
	if err := repo.Delete(ctx, &TestUser{ID: "u1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = repo.GetByID(ctx, "u1")

	if base.callCount("GetByID") != 2 {
		t.Errorf("expected refetch after delete, got %d calls", base.callCount("GetByID"))
	}
}

func TestCachedRepository_FailedWriteKeepsCache(t *testing.T) {
	ctx := context.Background()
	repo, base := newCachedUsers(t)
	base.writeError = &query.StoreFailure{Code: "23505", Message: "duplicate"}

	_, _ = repo.GetByID(ctx, "u1")
	_, err := repo.Update(ctx, &TestUser{ID: "u1"})
	if query.KindOf(err) != query.KindDuplicateEntry {
		t.Fatalf("expected DUPLICATE_ENTRY, got %v", err)
	}
	if base.callCount("Update") != 1 {
		t.Errorf("duplicates must not be retried, got %d calls", base.callCount("Update"))
	}

	_, _ = repo.GetByID(ctx, "u1")
	if base.callCount("GetByID") != 1 {
		t.Errorf("expected cache to survive a failed write, got %d calls", base.callCount("GetByID"))
	}
}

func TestCachedRepository_DeleteWhereInvalidatesNamespace(t *testing.T) {
	ctx := context.Background()
	repo, base := newCachedUsers(t)

	_, _ = repo.GetByID(ctx, "u1")
	_, _, _ = repo.List(ctx)

	if err := repo.DeleteWhere(ctx, repository.DeleteBy("name", "=", "Ada")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _ = repo.GetByID(ctx, "u1")
	_, _, _ = repo.List(ctx)

	if base.callCount("GetByID") != 2 || base.callCount("List") != 2 {
		t.Errorf("expected a full refetch, got GetByID=%d List=%d", base.callCount("GetByID"), base.callCount("List"))
	}
}

func TestCachedRepository_ContextTags(t *testing.T) {
	ctx := context.Background()
	repo, base := newCachedUsers(t)
	other := New[*TestUser](newMockRepository(userHandlers()), repo.exec, WithNamespace("audit"))

	view := WithCacheTags(WithCacheKey(ctx, "dashboard:u1"), "dashboard:u1")
	_, _, _ = repo.List(view, bySomething())

	if _, err := other.Create(WithCacheTags(ctx, "dashboard:u1"), &TestUser{ID: "a1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, _ = repo.List(view, bySomething())
	if base.callCount("List") != 2 {
		t.Errorf("expected the tagged view to be invalidated by another namespace, got %d calls", base.callCount("List"))
	}
}

func TestCachedRepository_RetriesTransientReads(t *testing.T) {
	ctx := context.Background()
	repo, base := newCachedUsers(t)
	base.getByIDErrors = []error{errors.New("connection reset")}

	got, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "u1" {
		t.Errorf("unexpected record %+v", got)
	}
	if base.callCount("GetByID") != 2 {
		t.Errorf("expected 2 attempts, got %d", base.callCount("GetByID"))
	}
}

func TestCachedRepository_NoRowsIsNoData(t *testing.T) {
	ctx := context.Background()
	repo, base := newCachedUsers(t)
	base.getByIDErrors = []error{sql.ErrNoRows, sql.ErrNoRows}

	_, err := repo.GetByID(ctx, "missing")
	if query.KindOf(err) != query.KindNoData {
		t.Fatalf("expected NO_DATA, got %v", err)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		t.Error("expected the raw error to be kept")
	}
	if base.callCount("GetByID") != 1 {
		t.Errorf("expected no retry, got %d calls", base.callCount("GetByID"))
	}

	// failures are not cached
	if _, err := repo.GetByID(ctx, "missing"); query.KindOf(err) != query.KindNoData {
		t.Fatalf("expected NO_DATA, got %v", err)
	}
	if base.callCount("GetByID") != 2 {
		t.Errorf("expected a second store call, got %d", base.callCount("GetByID"))
	}
}

func TestCachedRepository_TxBypassesCache(t *testing.T) {
	ctx := context.Background()
	repo, base := newCachedUsers(t)
	runner := NewTxRunner(&mockTxManager{}, repo.exec)

	_, _ = repo.GetByID(ctx, "u1")

	err := runner.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i := 0; i < 2; i++ {
			if _, err := repo.GetByIDTx(ctx, tx, "u1"); err != nil {
				return err
			}
			if _, _, err := repo.ListTx(ctx, tx); err != nil {
				return err
			}
		}
		_, err := repo.UpdateTx(ctx, tx, &TestUser{ID: "u1"})
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if base.callCount("GetByIDTx") != 2 || base.callCount("ListTx") != 2 {
		t.Errorf("expected tx reads to reach the store, got GetByIDTx=%d ListTx=%d", base.callCount("GetByIDTx"), base.callCount("ListTx"))
	}

	_, _ = repo.GetByID(ctx, "u1")
	if base.callCount("GetByID") != 2 {
		t.Errorf("expected tx write to invalidate, got %d calls", base.callCount("GetByID"))
	}
}

func TestTxRunner_InvalidatesAgainAfterCommit(t *testing.T) {
	ctx := context.Background()
	repo, base := newCachedUsers(t)
	runner := NewTxRunner(&mockTxManager{}, repo.exec)

	_, _ = repo.GetByID(ctx, "u1")

	err := runner.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := repo.UpdateTx(ctx, tx, &TestUser{ID: "u1"}); err != nil {
			return err
		}
		// a concurrent reader caches the row before the commit lands
		_, err := repo.GetByID(context.Background(), "u1")
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.callCount("GetByID") != 2 {
		t.Fatalf("expected the racing read to reach the store, got %d calls", base.callCount("GetByID"))
	}

	_, _ = repo.GetByID(ctx, "u1")
	if base.callCount("GetByID") != 3 {
		t.Errorf("expected the commit to drop the racing entry, got %d calls", base.callCount("GetByID"))
	}
}

func TestTxRunner_RetriesTransientCommit(t *testing.T) {
	ctx := context.Background()
	repo, base := newCachedUsers(t)
	tm := &mockTxManager{errors: []error{errors.New("database is locked")}}
	runner := NewTxRunner(tm, repo.exec)

	err := runner.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := repo.CreateTx(ctx, tx, &TestUser{ID: "u9"})
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tm.calls != 2 || base.callCount("CreateTx") != 2 {
		t.Errorf("expected the whole transaction to run twice, got tx=%d CreateTx=%d", tm.calls, base.callCount("CreateTx"))
	}
}

func TestTxRunner_TerminalFailureIsNotRetried(t *testing.T) {
	ctx := context.Background()
	repo, base := newCachedUsers(t)
	base.writeError = &query.StoreFailure{Code: "23505", Message: "duplicate"}
	tm := &mockTxManager{}
	runner := NewTxRunner(tm, repo.exec)

	err := runner.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := repo.CreateTx(ctx, tx, &TestUser{ID: "u1"})
		return err
	})
	if query.KindOf(err) != query.KindDuplicateEntry {
		t.Fatalf("expected DUPLICATE_ENTRY, got %v", err)
	}
	if tm.calls != 1 {
		t.Errorf("expected a single attempt, got %d", tm.calls)
	}
}

func TestCachedRepository_MapsRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	repo, base := newCachedUsers(t)
	base.getByIDErrors = []error{repository.NewRecordNotFound()}

	_, err := repo.GetByID(ctx, "missing")
	if query.KindOf(err) != query.KindNoData {
		t.Fatalf("expected NO_DATA, got %v", err)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		t.Error("expected sql.ErrNoRows in the chain")
	}
	if base.callCount("GetByID") != 1 {
		t.Errorf("expected no retry, got %d calls", base.callCount("GetByID"))
	}
}

func TestCachedRepository_GetByIdentifierAndRaw(t *testing.T) {
	ctx := context.Background()
	repo, base := newCachedUsers(t)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetByIdentifier(ctx, "ada"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := repo.Raw(ctx, "SELECT * FROM test_users"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if base.callCount("GetByIdentifier") != 1 {
		t.Errorf("expected identifier reads to be cached, got %d calls", base.callCount("GetByIdentifier"))
	}
	if base.callCount("Raw") != 2 {
		t.Errorf("expected unpinned raw reads to bypass the cache, got %d calls", base.callCount("Raw"))
	}

	if _, err := repo.Upsert(ctx, &TestUser{ID: "u4"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = repo.GetByIdentifier(ctx, "ada")
	if base.callCount("GetByIdentifier") != 2 {
		t.Errorf("expected a write to drop identifier reads, got %d calls", base.callCount("GetByIdentifier"))
	}
}

func TestCachedRepository_BulkWrites(t *testing.T) {
	ctx := context.Background()
	repo, base := newCachedUsers(t)

	if got, err := repo.CreateMany(ctx, nil); err != nil || got != nil {
		t.Fatalf("expected an empty batch to be a no-op, got %v, %v", got, err)
	}
	if base.callCount("CreateMany") != 0 {
		t.Error("expected an empty batch not to reach the store")
	}

	_, _ = repo.GetByID(ctx, "u1")
	if _, err := repo.UpdateMany(ctx, []*TestUser{{ID: "u1"}, {ID: "u2"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = repo.GetByID(ctx, "u1")
	if base.callCount("GetByID") != 2 {
		t.Errorf("expected UpdateMany to drop each record, got %d calls", base.callCount("GetByID"))
	}
}

func TestExtractID(t *testing.T) {
	var nilUser *TestUser
	tests := []struct {
		name   string
		record any
		want   string
	}{
		{"pointer", &TestUser{ID: "u1"}, "u1"},
		{"value", TestUser{ID: "u2"}, "u2"},
		{"nil pointer", nilUser, ""},
		{"empty id", &TestUser{}, ""},
		{"no id field", &struct{ Name string }{Name: "x"}, ""},
		{"not a struct", 42, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractID(tt.record); got != tt.want {
				t.Errorf("extractID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToSnake(t *testing.T) {
	tests := map[string]string{
		"":           "",
		"CartItem":   "cart_item",
		"Product":    "product",
		"HTTPProxy":  "http_proxy",
		"Order2Go":   "order_2_go",
		"*Product":   "product",
		"List[T]":    "list",
		"Version2":   "version_2",
		"order-item": "order_item",
	}

	for in, want := range tests {
		if got := toSnake(in); got != want {
			t.Errorf("toSnake(%q) = %q, want %q", in, got, want)
		}
	}
}
