package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// Config sizes the sturdyc client. Capacity, NumShards, TTL and
// EvictionPercentage go straight to sturdyc.New.
type Config struct {
	// Capacity bounds the number of entries. sturdyc evicts
	// EvictionPercentage of them once it is reached.
	Capacity int
	// NumShards splits the keyspace to reduce lock contention.
	NumShards int
	// TTL is the freshness window. An entry is stale once
	// now - timestamp > TTL.
	TTL                time.Duration
	EvictionPercentage int
	// EvictionInterval is how often expired entries are swept. Zero keeps
	// the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig holds 10000 entries over 256 shards for five minutes.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

func (c Config) options() []sturdyc.Option {
	if c.EvictionInterval <= 0 {
		return nil
	}
	return []sturdyc.Option{sturdyc.WithEvictionInterval(c.EvictionInterval)}
}

// Validate returns a *ConfigError naming the first bad field.
func (c Config) Validate() error {
	checks := []struct {
		field string
		ok    bool
		msg   string
	}{
		{"Capacity", c.Capacity > 0, "must be greater than 0"},
		{"NumShards", c.NumShards > 0, "must be greater than 0"},
		{"TTL", c.TTL > 0, "must be greater than 0"},
		{"EvictionPercentage", c.EvictionPercentage >= 1 && c.EvictionPercentage <= 100, "must be between 1 and 100"},
		{"EvictionInterval", c.EvictionInterval >= 0, "must not be negative"},
	}
	for _, check := range checks {
		if !check.ok {
			return &ConfigError{Field: check.field, Message: check.msg}
		}
	}
	return nil
}

// ConfigError reports an invalid Config field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "cacheinfra: " + e.Field + " " + e.Message
}
