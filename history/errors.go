package history

import "errors"

var (
	// ErrInvalidRecord signals malformed input: empty identifiers or an
	// unrepresentable timestamp. Callers should not retry.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrPersistence wraps any failure talking to or returned by the document store.
	ErrPersistence = errors.New("persistence error")
	// ErrDuplicateRecord is returned under DuplicateReject when a record with
	// the same entity and timestamp already exists.
	ErrDuplicateRecord = errors.New("duplicate record")
)
