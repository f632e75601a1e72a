package errors

import "errors"

var (
	ErrAggregateIDRequired    = errors.New("aggregate id is required")
	ErrAggregateTypeRequired  = errors.New("aggregate type is required")
	ErrEventTypeRequired      = errors.New("event type is required")
	ErrEventDataRequired      = errors.New("event data is required")
	ErrInvalidExpectedVersion = errors.New("expected version must not be negative")

	// ErrVersionConflict signals that the version computed for an append was
	// already taken for the same (aggregate id, aggregate type) pair, either
	// because the caller's expected version was stale or because a concurrent
	// append won the race. Callers may reload and retry.
	ErrVersionConflict = errors.New("aggregate version conflict")
)
