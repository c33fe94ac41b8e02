// Package config loads storefront settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"

	"github.com/goliatone/go-storefront/cache"
	"github.com/goliatone/go-storefront/query"
)

// Prefix is shared by every storefront environment variable.
const Prefix = "STOREFRONT_"

// Config is the process wide configuration.
type Config struct {
	StoreURL      string `env:"STORE_URL" json:"store_url"`
	StoreKey      string `env:"STORE_KEY" json:"store_key"`
	APITimeoutMS  int    `env:"API_TIMEOUT_MS" envDefault:"30000" json:"api_timeout_ms"`
	RetryAttempts int    `env:"RETRY_ATTEMPTS" envDefault:"3" json:"retry_attempts"`
	RetryDelayMS  int    `env:"RETRY_DELAY_MS" envDefault:"1000" json:"retry_delay_ms"`
	CacheTTLMS    int    `env:"CACHE_TTL_MS" envDefault:"300000" json:"cache_ttl_ms"`
	EnableCache   bool   `env:"ENABLE_CACHE" envDefault:"true" json:"enable_cache"`
	CacheCapacity int    `env:"CACHE_CAPACITY" envDefault:"10000" json:"cache_capacity"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info" json:"log_level"`
}

// Load reads env files, then the process environment. With no files given it
// reads ./.env when one exists. Files named explicitly must load.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse builds a Config from an explicit environment map. Keys carry the
// STOREFRONT_ prefix.
func Parse(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix, Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid or missing value at once.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.StoreURL, validation.Required),
		validation.Field(&c.StoreKey, validation.Required),
		validation.Field(&c.APITimeoutMS, validation.Min(0)),
		validation.Field(&c.RetryAttempts, validation.Required, validation.Min(1)),
		validation.Field(&c.RetryDelayMS, validation.Required, validation.Min(1)),
		validation.Field(&c.CacheTTLMS, validation.Required, validation.Min(1)),
		validation.Field(&c.CacheCapacity, validation.Required, validation.Min(1)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "environment validation failed")
	}
	return nil
}

// QueryConfig maps the settings onto the executor config.
func (c Config) QueryConfig() query.Config {
	return query.Config{
		Attempts:         c.RetryAttempts,
		BaseDelay:        time.Duration(c.RetryDelayMS) * time.Millisecond,
		OperationTimeout: time.Duration(c.APITimeoutMS) * time.Millisecond,
		CacheEnabled:     c.EnableCache,
	}
}

// CacheConfig maps the settings onto the cache store config.
func (c Config) CacheConfig() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.TTL = time.Duration(c.CacheTTLMS) * time.Millisecond
	cfg.Capacity = c.CacheCapacity
	return cfg
}

// SlogLevel parses LogLevel, falling back to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
