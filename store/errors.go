package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/mattn/go-sqlite3"

	"github.com/goliatone/go-storefront/query"
)

// SQLSTATE codes SQLite failures are reported under.
const (
	codeUniqueViolation     = "23505"
	codeNotNullViolation    = "23502"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeStringTooLong       = "22001"
	codeDatatypeMismatch    = "22P02"
)

// repository text codes and the SQLSTATE each stands for. The repository
// drops the driver error when it maps a constraint failure, so the code is
// all that is left to go on.
var textCodeStates = map[string]string{
	"DUPLICATE_KEY":              codeUniqueViolation,
	"FOREIGN_KEY_VIOLATION":      codeForeignKeyViolation,
	"CHECK_CONSTRAINT_VIOLATION": codeCheckViolation,
	"CONSTRAINT_VIOLATION":       codeCheckViolation,
	"NOT_NULL_VIOLATION":         codeNotNullViolation,
}

// MapError puts repository failures into the shapes query.Classify knows.
// SQLite errors become query.StoreFailure values carrying the equivalent
// Postgres SQLSTATE, a missing record or an update that matched no row wraps
// sql.ErrNoRows, and mapped constraint failures get their SQLSTATE back.
// lib/pq errors already carry one and pass through, as does everything else.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var failure *query.StoreFailure
	if errors.As(err, &failure) {
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return fromSQLite(err, liteErr)
	}

	if repository.IsRecordNotFound(err) || repository.IsSQLExpectedCountViolation(err) {
		return fmt.Errorf("%w: %w", sql.ErrNoRows, err)
	}

	var mapped *goerrors.RetryableError
	if errors.As(err, &mapped) && mapped.BaseError != nil {
		if code, ok := textCodeStates[mapped.TextCode]; ok {
			return &query.StoreFailure{
				Code:    code,
				Message: mapped.Message,
				Details: mapped.Metadata,
				Err:     err,
			}
		}
	}

	return err
}

func fromSQLite(err error, liteErr sqlite3.Error) error {
	failure := &query.StoreFailure{
		Code:    sqliteCode(liteErr),
		Message: liteErr.Error(),
		Err:     err,
	}

	if column := constraintColumn(liteErr); column != "" {
		failure.Details = map[string]any{"column": column}
	}

	return failure
}

func sqliteCode(err sqlite3.Error) string {
	switch err.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return codeUniqueViolation
	case sqlite3.ErrConstraintNotNull:
		return codeNotNullViolation
	case sqlite3.ErrConstraintForeignKey:
		return codeForeignKeyViolation
	case sqlite3.ErrConstraintCheck:
		return codeCheckViolation
	}

	switch err.Code {
	case sqlite3.ErrTooBig:
		return codeStringTooLong
	case sqlite3.ErrMismatch:
		return codeDatatypeMismatch
	}

	return fmt.Sprintf("SQLITE_%d", int(err.ExtendedCode))
}

// constraintColumn pulls the first column out of messages such as
// "NOT NULL constraint failed: products.name".
func constraintColumn(err sqlite3.Error) string {
	switch err.ExtendedCode {
	case sqlite3.ErrConstraintNotNull, sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
	default:
		return ""
	}

	_, rest, found := strings.Cut(err.Error(), "constraint failed: ")
	if !found {
		return ""
	}

	first, _, _ := strings.Cut(rest, ",")
	first = strings.TrimSpace(first)
	if i := strings.LastIndex(first, "."); i >= 0 {
		first = first[i+1:]
	}
	return first
}
