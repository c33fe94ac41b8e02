package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/lib/pq"
)

// Kind tags a classified failure.
type Kind string

const (
	KindNone           Kind = ""
	KindDuplicateEntry Kind = "DUPLICATE_ENTRY"
	KindValidation     Kind = "VALIDATION_ERROR"
	KindStore          Kind = "STORE_ERROR"
	KindNoData         Kind = "NO_DATA"
	KindGeneric        Kind = "GENERIC_ERROR"
)

func (k Kind) String() string { return string(k) }

// SQLSTATE codes the classifier cares about.
const (
	CodeUniqueViolation = "23505"
	dataExceptionClass  = "22"
)

// MessageNoData is the message carried by NO_DATA failures.
const MessageNoData = "No data returned from the query"

// StoreFailure is the (code, message, details) envelope a store reports on
// failure. Stores that do not speak SQLSTATE natively translate their errors
// into this shape.
type StoreFailure struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (f *StoreFailure) Error() string {
	if f.Code == "" {
		return f.Message
	}
	return fmt.Sprintf("%s (code %s)", f.Message, f.Code)
}

func (f *StoreFailure) Unwrap() error { return f.Err }

// SQLState lets a StoreFailure be treated like any driver error.
func (f *StoreFailure) SQLState() string { return f.Code }

type sqlStater interface {
	SQLState() string
}

// Classify maps a raw failure onto exactly one Kind. The result is a
// *goerrors.Error whose Source is err, so errors.Is(result, err) holds.
// Classifying an already classified error returns it unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	if kindOfClassified(err) != KindNone {
		return err
	}

	if failure, ok := storeFailureOf(err); ok {
		return classifyStoreFailure(err, failure)
	}

	if errors.Is(err, ErrNoData) || errors.Is(err, sql.ErrNoRows) {
		return newClassified(err, KindNoData, MessageNoData, nil)
	}

	var foreign *goerrors.Error
	if errors.As(err, &foreign) {
		switch foreign.Category {
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			classified := newClassified(err, KindValidation, foreign.Message, nil)
			classified.ValidationErrors = foreign.ValidationErrors
			return classified
		case goerrors.CategoryNotFound:
			return newClassified(err, KindNoData, foreign.Message, nil)
		}
	}

	message := err.Error()
	if message == "" {
		message = "An unexpected error occurred"
	}
	return newClassified(err, KindGeneric, message, nil)
}

// KindOf reports the Kind err classifies to. KindNone only for nil.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	return kindOfClassified(Classify(err))
}

// ValidationField returns the offending field of a validation failure, when
// the store reported one.
func ValidationField(err error) (string, bool) {
	var classified *goerrors.Error
	if !errors.As(Classify(err), &classified) || Kind(classified.TextCode) != KindValidation {
		return "", false
	}

	if column, ok := classified.Metadata["column"].(string); ok && column != "" {
		return column, true
	}
	if len(classified.ValidationErrors) > 0 {
		return classified.ValidationErrors[0].Field, true
	}
	return "", false
}

// StoreCode returns the store error code carried by a classified failure.
func StoreCode(err error) (string, bool) {
	var classified *goerrors.Error
	if !errors.As(Classify(err), &classified) {
		return "", false
	}
	code, ok := classified.Metadata["code"].(string)
	return code, ok && code != ""
}

// Retryable reports whether a failure is worth another attempt. Validation,
// duplicate entries and missing data are terminal; a finished context is too.
// Missing data includes sql.ErrNoRows, which a later attempt would not change.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	switch KindOf(err) {
	case KindStore, KindGeneric:
		return true
	default:
		return false
	}
}

func kindOfClassified(err error) Kind {
	var classified *goerrors.Error
	if !errors.As(err, &classified) {
		return KindNone
	}

	switch kind := Kind(classified.TextCode); kind {
	case KindDuplicateEntry, KindValidation, KindStore, KindNoData, KindGeneric:
		return kind
	}
	return KindNone
}

func storeFailureOf(err error) (*StoreFailure, bool) {
	var failure *StoreFailure
	if errors.As(err, &failure) {
		return failure, true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		details := map[string]any{}
		setDetail(details, "detail", pqErr.Detail)
		setDetail(details, "hint", pqErr.Hint)
		setDetail(details, "column", pqErr.Column)
		setDetail(details, "constraint", pqErr.Constraint)
		setDetail(details, "table", pqErr.Table)
		return &StoreFailure{
			Code:    string(pqErr.Code),
			Message: pqErr.Message,
			Details: details,
			Err:     pqErr,
		}, true
	}

	var stater sqlStater
	if errors.As(err, &stater) && stater.SQLState() != "" {
		return &StoreFailure{
			Code:    stater.SQLState(),
			Message: err.Error(),
		}, true
	}

	return nil, false
}

func classifyStoreFailure(err error, failure *StoreFailure) *goerrors.Error {
	message := failure.Message
	if message == "" {
		message = err.Error()
	}

	meta := map[string]any{"code": failure.Code}
	if len(failure.Details) > 0 {
		meta["details"] = failure.Details
		if column, ok := failure.Details["column"].(string); ok && column != "" {
			meta["column"] = column
		}
	}

	switch {
	case failure.Code == CodeUniqueViolation:
		return newClassified(err, KindDuplicateEntry, "This item already exists", meta)
	case strings.HasPrefix(failure.Code, dataExceptionClass):
		return newClassified(err, KindValidation, message, meta)
	case failure.Code == "":
		return newClassified(err, KindGeneric, message, meta)
	default:
		return newClassified(err, KindStore, message, meta)
	}
}

func newClassified(source error, kind Kind, message string, meta map[string]any) *goerrors.Error {
	classified := goerrors.New(message, categoryOf(kind)).WithTextCode(string(kind))
	classified.Source = source
	if len(meta) > 0 {
		classified = classified.WithMetadata(meta)
	}
	return classified
}

func categoryOf(kind Kind) goerrors.Category {
	switch kind {
	case KindDuplicateEntry:
		return goerrors.CategoryConflict
	case KindValidation:
		return goerrors.CategoryValidation
	case KindStore:
		return goerrors.CategoryExternal
	case KindNoData:
		return goerrors.CategoryNotFound
	default:
		return goerrors.CategoryInternal
	}
}

func setDetail(details map[string]any, key, value string) {
	if value != "" {
		details[key] = value
	}
}
