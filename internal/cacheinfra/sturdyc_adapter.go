package cacheinfra

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
)

// entry is what we actually keep in sturdyc. The timestamp lets us apply the
// TTL rule against our own clock instead of trusting sturdyc's sweep.
type entry struct {
	value     any
	timestamp time.Time
}

// Option configures a SturdycStore.
type Option func(*SturdycStore)

// WithClock overrides the clock used to stamp and expire entries.
func WithClock(now func() time.Time) Option {
	return func(s *SturdycStore) {
		if now != nil {
			s.now = now
		}
	}
}

// SturdycStore wraps a sturdyc client and keeps a tag index on the side.
// The index only holds keys the client may still hold: removals prune it and
// keys sturdyc evicted on its own are swept once the index outgrows twice
// the capacity.
type SturdycStore struct {
	client   *sturdyc.Client[entry]
	ttl      time.Duration
	capacity int
	now      func() time.Time

	// tag -> set of keys registered under it
	tags *xsync.MapOf[string, *xsync.MapOf[string, struct{}]]
	// key -> tags it was registered under
	keyTags *xsync.MapOf[string, []string]
}

// NewSturdycStore validates cfg and builds the sturdyc client behind the store.
func NewSturdycStore(cfg Config, opts ...Option) (*SturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.options()...,
	)

	s := &SturdycStore{
		client:   client,
		ttl:      cfg.TTL,
		capacity: cfg.Capacity,
		now:      time.Now,
		tags:     xsync.NewMapOf[string, *xsync.MapOf[string, struct{}]](),
		keyTags:  xsync.NewMapOf[string, []string](),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Get returns the value stored under key. Entries older than the TTL are
// removed and reported as a miss.
func (s *SturdycStore) Get(ctx context.Context, key string) (any, bool, error) {
	e, ok := s.client.Get(key)
	if !ok {
		// evicted by sturdyc, or never stored
		s.forget(key)
		return nil, false, nil
	}

	if s.now().Sub(e.timestamp) > s.ttl {
		s.remove(key)
		return nil, false, nil
	}

	return e.value, true, nil
}

// Set stores value under key, overwriting any previous entry, and registers
// the key under each of the given tags.
func (s *SturdycStore) Set(ctx context.Context, key string, value any, tags ...string) error {
	s.client.Set(key, entry{value: value, timestamp: s.now()})

	for _, tag := range tags {
		if tag == "" {
			continue
		}
		s.tags.Compute(tag, func(keys *xsync.MapOf[string, struct{}], loaded bool) (*xsync.MapOf[string, struct{}], bool) {
			if !loaded {
				keys = xsync.NewMapOf[string, struct{}]()
			}
			keys.Store(key, struct{}{})
			return keys, false
		})
		s.keyTags.Compute(key, func(known []string, _ bool) ([]string, bool) {
			if slices.Contains(known, tag) {
				return known, false
			}
			return append(slices.Clip(known), tag), false
		})
	}

	if s.keyTags.Size() > 2*s.capacity {
		s.sweepEvicted()
	}

	return nil
}

// Delete removes a single entry from the cache.
func (s *SturdycStore) Delete(ctx context.Context, key string) error {
	s.remove(key)
	return nil
}

// DeleteByPrefix removes all entries whose key starts with prefix.
func (s *SturdycStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.remove(key)
		}
	}
	return nil
}

// InvalidateKeys removes multiple entries from the cache.
func (s *SturdycStore) InvalidateKeys(ctx context.Context, keys []string) error {
	for _, key := range keys {
		s.remove(key)
	}
	return nil
}

// InvalidateTags removes every entry registered under any of the tags and
// forgets the tags themselves.
func (s *SturdycStore) InvalidateTags(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		keys, ok := s.tags.LoadAndDelete(tag)
		if !ok {
			continue
		}
		keys.Range(func(key string, _ struct{}) bool {
			s.remove(key)
			return true
		})
	}
	return nil
}

func (s *SturdycStore) remove(key string) {
	s.client.Delete(key)
	s.forget(key)
}

// forget drops key from every tag it was registered under. Tags left without
// keys are dropped too.
func (s *SturdycStore) forget(key string) {
	tags, ok := s.keyTags.LoadAndDelete(key)
	if !ok {
		return
	}
	for _, tag := range tags {
		s.tags.Compute(tag, func(keys *xsync.MapOf[string, struct{}], loaded bool) (*xsync.MapOf[string, struct{}], bool) {
			if !loaded {
				return keys, true
			}
			keys.Delete(key)
			return keys, keys.Size() == 0
		})
	}
}

func (s *SturdycStore) sweepEvicted() {
	live := make(map[string]struct{}, s.client.Size())
	for _, key := range s.client.ScanKeys() {
		live[key] = struct{}{}
	}
	s.keyTags.Range(func(key string, _ []string) bool {
		if _, ok := live[key]; !ok {
			s.forget(key)
		}
		return true
	})
}

func (s *SturdycStore) tagCount() int {
	return s.tags.Size()
}

// Len reports the number of entries currently held, expired or not.
func (s *SturdycStore) Len() int {
	return s.client.Size()
}
