package store

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// Migrate applies every pending goose migration found at the root of
// migrations and returns the resulting schema version.
func Migrate(ctx context.Context, db *bun.DB, migrations fs.FS, logger *slog.Logger) (int64, error) {
	gooseDialect, err := gooseDialectOf(db)
	if err != nil {
		return 0, err
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// the provider does not own db; never Close it here
	provider, err := goose.NewProvider(gooseDialect, db.DB, migrations, goose.WithSlog(logger))
	if err != nil {
		return 0, fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to migrate db: %w", err)
	}

	for _, result := range results {
		logger.InfoContext(ctx, "migration applied", "migration", result.String())
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func gooseDialectOf(db *bun.DB) (goose.Dialect, error) {
	switch db.Dialect().Name() {
	case dialect.PG:
		return goose.DialectPostgres, nil
	case dialect.SQLite:
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("unsupported dialect %s", db.Dialect().Name())
	}
}
