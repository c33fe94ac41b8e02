package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// Driver names registered by lib/pq and mattn/go-sqlite3.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// PoolConfig holds connection pool settings for Postgres.
type PoolConfig struct {
	MaxConns int
	MinConns int
}

// Open connects to the store at rawURL and returns a bun handle with the
// matching dialect.
//
//   - postgres:// and postgresql:// use lib/pq; key becomes the password
//     when the URL carries none.
//   - sqlite://path, file:... and :memory: use mattn/go-sqlite3 with foreign
//     keys enabled.
func Open(ctx context.Context, rawURL, key string, pool ...PoolConfig) (*bun.DB, error) {
	var (
		sqldb *sql.DB
		db    *bun.DB
		err   error
	)

	switch {
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		dsn, perr := withPassword(rawURL, key)
		if perr != nil {
			return nil, perr
		}
		sqldb, err = sql.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		configurePool(sqldb, pool...)
		db = bun.NewDB(sqldb, pgdialect.New())

	case strings.HasPrefix(rawURL, "sqlite://"), strings.HasPrefix(rawURL, "file:"), rawURL == ":memory:":
		sqldb, err = sql.Open(DriverSQLite, sqliteDSN(rawURL))
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// a single connection keeps in-memory databases alive and serializes writers
		sqldb.SetMaxOpenConns(1)
		sqldb.SetConnMaxLifetime(0)
		db = bun.NewDB(sqldb, sqlitedialect.New())

	default:
		return nil, fmt.Errorf("unsupported store url %q", redact(rawURL))
	}

	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func configurePool(db *sql.DB, pool ...PoolConfig) {
	cfg := PoolConfig{MaxConns: 10, MinConns: 2}
	if len(pool) > 0 {
		if pool[0].MaxConns > 0 {
			cfg.MaxConns = pool[0].MaxConns
		}
		if pool[0].MinConns > 0 {
			cfg.MinConns = pool[0].MinConns
		}
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)
}

func withPassword(rawURL, key string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}
	if key == "" || u.User == nil {
		return rawURL, nil
	}
	if _, set := u.User.Password(); set {
		return rawURL, nil
	}
	u.User = url.UserPassword(u.User.Username(), key)
	return u.String(), nil
}

func sqliteDSN(rawURL string) string {
	dsn := strings.TrimPrefix(rawURL, "sqlite://")
	if dsn == ":memory:" {
		dsn = "file::memory:"
	}
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	return u.Redacted()
}
