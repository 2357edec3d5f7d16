package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conditional update lost a race: the
	// entity's status no longer matched the expected value. Callers
	// treat this as "someone else got there first" and move on.
	ErrConflict = errors.New("conflict")

	// ErrInvalidTransition indicates a status change that is not an
	// edge of the chunk state machine.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedResponse indicates the classifier returned output
	// that could not be parsed into an annotation.
	ErrMalformedResponse = errors.New("malformed classifier response")

	// ErrUnsupportedType indicates an unknown connector type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrRateLimited indicates an API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrClassifierUnavailable indicates the classifier is not configured.
	// Annotation cannot run without it.
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	// Indexing cannot run without it.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrTranscriberUnavailable indicates no transcriber is configured.
	// Media files are skipped rather than failed.
	ErrTranscriberUnavailable = errors.New("transcriber unavailable")
)
