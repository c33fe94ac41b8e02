package store

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// StringIDHandlers builds repository handlers for models keyed by a text
// column. The repository tracks ids as UUIDs: an empty key reads as
// uuid.Nil, so Create assigns a fresh one, and a key that is not a UUID maps
// to a stable name based UUID so it counts as already set.
//
// GetOrCreate and Upsert look records up by that UUID and only match rows
// whose key is a UUID.
func StringIDHandlers[T any](newRecord func() T, key func(T) *string) repository.ModelHandlers[T] {
	return repository.ModelHandlers[T]{
		NewRecord: newRecord,
		GetID: func(record T) uuid.UUID {
			return RecordUUID(*key(record))
		},
		SetID: func(record T, id uuid.UUID) {
			*key(record) = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
	}
}

// RecordUUID is the UUID a text key is tracked under.
func RecordUUID(key string) uuid.UUID {
	if key == "" {
		return uuid.Nil
	}
	if id, err := uuid.Parse(key); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key))
}
