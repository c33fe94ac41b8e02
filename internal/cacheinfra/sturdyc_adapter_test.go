package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, ttl time.Duration, clock *fakeClock) *SturdycStore {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Capacity = 100
	cfg.NumShards = 4
	cfg.TTL = ttl

	store, err := NewSturdycStore(cfg, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}

	if cfg.NumShards != 256 {
		t.Errorf("expected NumShards to be 256, got %d", cfg.NumShards)
	}

	if cfg.TTL != 5*time.Minute {
		t.Errorf("expected TTL to be 5 minutes, got %v", cfg.TTL)
	}

	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}

	if cfg.EvictionInterval != 0 {
		t.Errorf("expected EvictionInterval to be 0, got %v", cfg.EvictionInterval)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantError bool
		field     string
	}{
		{
			name:      "valid default config",
			cfg:       DefaultConfig(),
			wantError: false,
		},
		{
			name: "invalid capacity - zero",
			cfg: Config{
				Capacity:           0,
				NumShards:          256,
				TTL:                5 * time.Minute,
				EvictionPercentage: 10,
			},
			wantError: true,
			field:     "Capacity",
		},
		{
			name: "invalid shards - negative",
			cfg: Config{
				Capacity:           100,
				NumShards:          -1,
				TTL:                5 * time.Minute,
				EvictionPercentage: 10,
			},
			wantError: true,
			field:     "NumShards",
		},
		{
			name: "invalid ttl - zero",
			cfg: Config{
				Capacity:           100,
				NumShards:          4,
				TTL:                0,
				EvictionPercentage: 10,
			},
			wantError: true,
			field:     "TTL",
		},
		{
			name: "invalid eviction percentage - over 100",
			cfg: Config{
				Capacity:           100,
				NumShards:          4,
				TTL:                time.Minute,
				EvictionPercentage: 101,
			},
			wantError: true,
			field:     "EvictionPercentage",
		},
		{
			name: "invalid eviction interval - negative",
			cfg: Config{
				Capacity:           100,
				NumShards:          4,
				TTL:                time.Minute,
				EvictionPercentage: 10,
				EvictionInterval:   -time.Second,
			},
			wantError: true,
			field:     "EvictionInterval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !tt.wantError {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, cfgErr.Field)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected message to mention %q, got %q", tt.field, err.Error())
			}
		})
	}
}

func TestConfig_Options(t *testing.T) {
	cfg := DefaultConfig()
	if got := len(cfg.options()); got != 0 {
		t.Errorf("expected no options for default config, got %d", got)
	}

	cfg.EvictionInterval = time.Second
	if got := len(cfg.options()); got != 1 {
		t.Errorf("expected one option with eviction interval, got %d", got)
	}
}

func TestNewSturdycStore_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 0

	store, err := NewSturdycStore(cfg)
	if err == nil {
		t.Fatal("expected error for invalid config")
	}
	if store != nil {
		t.Error("expected nil store for invalid config")
	}
}

func TestSturdycStore_GetSet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, time.Minute, newFakeClock())

	if _, ok, err := store.Get(ctx, "cart:u1"); err != nil || ok {
		t.Fatalf("expected miss on empty store, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "cart:u1", []string{"p1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, ok, err := store.Get(ctx, "cart:u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	items, isSlice := value.([]string)
	if !isSlice || len(items) != 1 || items[0] != "p1" {
		t.Errorf("unexpected cached value %#v", value)
	}
}

func TestSturdycStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestStore(t, time.Minute, clock)

	_ = store.Set(ctx, "order:o1", "pending")

	// the overwrite restarts the ttl window
	clock.Advance(50 * time.Second)
	_ = store.Set(ctx, "order:o1", "shipped")
	clock.Advance(50 * time.Second)

	value, ok, _ := store.Get(ctx, "order:o1")
	if !ok {
		t.Fatal("expected hit after overwrite")
	}
	if value != "shipped" {
		t.Errorf("expected latest value, got %v", value)
	}
}

func TestSturdycStore_Expiry(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		elapsed time.Duration
		wantHit bool
	}{
		{name: "fresh entry", elapsed: 0, wantHit: true},
		{name: "age equal to ttl is still fresh", elapsed: time.Minute, wantHit: true},
		{name: "age past ttl is a miss", elapsed: time.Minute + time.Millisecond, wantHit: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			store := newTestStore(t, time.Minute, clock)

			_ = store.Set(ctx, "products", "page")
			clock.Advance(tt.elapsed)

			_, ok, err := store.Get(ctx, "products")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantHit {
				t.Errorf("expected hit=%v, got %v", tt.wantHit, ok)
			}
		})
	}
}

func TestSturdycStore_ExpiredEntryIsRemoved(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestStore(t, time.Minute, clock)

	_ = store.Set(ctx, "products", "page")
	if store.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", store.Len())
	}

	clock.Advance(2 * time.Minute)
	if _, ok, _ := store.Get(ctx, "products"); ok {
		t.Fatal("expected miss for stale entry")
	}

	if store.Len() != 0 {
		t.Errorf("expected stale entry to be removed, got %d entries", store.Len())
	}
}

func TestSturdycStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, time.Minute, newFakeClock())

	_ = store.Set(ctx, "product:p1", "apple")
	if err := store.Delete(ctx, "product:p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok, _ := store.Get(ctx, "product:p1"); ok {
		t.Error("expected miss after delete")
	}

	if err := store.Delete(ctx, "product:missing"); err != nil {
		t.Errorf("deleting a missing key should not fail: %v", err)
	}
}

func TestSturdycStore_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, time.Minute, newFakeClock())

	keys := []string{
		`products:{"page":1}`,
		`products:{"page":2}`,
		"product:p1",
		"cart:u1",
	}
	for _, key := range keys {
		_ = store.Set(ctx, key, key)
	}

	if err := store.DeleteByPrefix(ctx, "products:"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var remaining []string
	for _, key := range keys {
		if _, ok, _ := store.Get(ctx, key); ok {
			remaining = append(remaining, key)
		}
	}
	sort.Strings(remaining)

	want := []string{"cart:u1", "product:p1"}
	if fmt.Sprint(remaining) != fmt.Sprint(want) {
		t.Errorf("expected %v to remain, got %v", want, remaining)
	}
}

func TestSturdycStore_InvalidateKeys(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, time.Minute, newFakeClock())

	_ = store.Set(ctx, "order:o1", 1)
	_ = store.Set(ctx, "order:o2", 2)
	_ = store.Set(ctx, "order:o3", 3)

	if err := store.InvalidateKeys(ctx, []string{"order:o1", "order:o3", "order:missing"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok, _ := store.Get(ctx, "order:o2"); !ok {
		t.Error("expected order:o2 to survive")
	}
	for _, key := range []string{"order:o1", "order:o3"} {
		if _, ok, _ := store.Get(ctx, key); ok {
			t.Errorf("expected %s to be invalidated", key)
		}
	}
}

func TestSturdycStore_InvalidateTags(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, time.Minute, newFakeClock())

	_ = store.Set(ctx, "orders:u1", "list-u1", "order:list", "user:u1")
	_ = store.Set(ctx, "orders:u2", "list-u2", "order:list", "user:u2")
	_ = store.Set(ctx, "cart:u1", "cart-u1", "user:u1")
	_ = store.Set(ctx, "product:p1", "apple", "")

	if err := store.InvalidateTags(ctx, "order:list"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, key := range []string{"orders:u1", "orders:u2"} {
		if _, ok, _ := store.Get(ctx, key); ok {
			t.Errorf("expected %s to be invalidated by tag", key)
		}
	}
	for _, key := range []string{"cart:u1", "product:p1"} {
		if _, ok, _ := store.Get(ctx, key); !ok {
			t.Errorf("expected %s to survive", key)
		}
	}

	// the tag is forgotten once invalidated; a second call is a no-op
	if err := store.InvalidateTags(ctx, "order:list", "unknown"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.InvalidateTags(ctx, "user:u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "cart:u1"); ok {
		t.Error("expected cart:u1 to be invalidated by user tag")
	}
}

func TestSturdycStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, time.Minute, newFakeClock())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				key := fmt.Sprintf("product:%d", j%5)
				_ = store.Set(ctx, key, worker, "product:list")
				_, _, _ = store.Get(ctx, key)
				if j%10 == 0 {
					_ = store.InvalidateTags(ctx, "product:list")
				}
			}
		}(i)
	}
	wg.Wait()

	if store.Len() > 5 {
		t.Errorf("expected at most 5 keys, got %d", store.Len())
	}
}

func TestSturdycStore_TagIndexStaysBounded(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()

	cfg := DefaultConfig()
	cfg.Capacity = 10
	cfg.NumShards = 2
	cfg.TTL = time.Minute

	store, err := NewSturdycStore(cfg, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	const n = 5000
	for i := range n {
		key := fmt.Sprintf("product:p%d", i)
		_ = store.Set(ctx, key, i, "tag:"+key)
	}
	if got := store.tagCount(); got > 2*cfg.Capacity+1 {
		t.Errorf("expected evicted keys to leave the tag index, %d tags remain", got)
	}

	clock.Advance(2 * time.Minute)
	for i := range n {
		if _, ok, _ := store.Get(ctx, fmt.Sprintf("product:p%d", i)); ok {
			t.Fatalf("expected product:p%d to be gone", i)
		}
	}

	if got := store.tagCount(); got != 0 {
		t.Errorf("expected an empty tag index, got %d tags", got)
	}
	if got := store.keyTags.Size(); got != 0 {
		t.Errorf("expected no tracked keys, got %d", got)
	}
}

func TestSturdycStore_RemovalPrunesTags(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, time.Minute, newFakeClock())

	_ = store.Set(ctx, "orders:u1", 1, "order:list", "user:u1")
	_ = store.Set(ctx, "orders:u2", 2, "order:list")
	_ = store.Set(ctx, "cart:u1", 3, "user:u1")

	_ = store.Delete(ctx, "cart:u1")
	_ = store.InvalidateKeys(ctx, []string{"orders:u2"})
	if got := store.tagCount(); got != 2 {
		t.Errorf("expected order:list and user:u1 to remain, got %d tags", got)
	}

	_ = store.DeleteByPrefix(ctx, "orders:")
	if got := store.tagCount(); got != 0 {
		t.Errorf("expected an empty tag index, got %d tags", got)
	}

	_ = store.Set(ctx, "orders:u1", 1, "order:list", "user:u1")
	_ = store.InvalidateTags(ctx, "order:list")
	if got := store.tagCount(); got != 0 {
		t.Errorf("expected user:u1 to go with its only key, got %d tags", got)
	}
}
