package cache

import (
	"time"

	"github.com/goliatone/go-storefront/internal/cacheinfra"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// StoreOption configures the default store implementation.
type StoreOption = cacheinfra.Option

// WithClock overrides the clock used to timestamp and expire entries.
func WithClock(now func() time.Time) StoreOption {
	return cacheinfra.WithClock(now)
}

// NewStore constructs the default in-memory store using the provided configuration.
func NewStore(cfg Config, opts ...StoreOption) (Store, error) {
	store, err := cacheinfra.NewSturdycStore(cfg.toInternal(), opts...)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
