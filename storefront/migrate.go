package storefront

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-storefront/store"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the storefront schema as goose SQL migrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrate brings the storefront schema up to date and returns its version.
func Migrate(ctx context.Context, db *bun.DB, logger *slog.Logger) (int64, error) {
	return store.Migrate(ctx, db, Migrations(), logger)
}
