package sync

import "errors"

// Error taxonomy of the push engine. Per-entity failures are recorded in the
// errors bucket of the batch result; only ErrEmptyBatch fails a whole request.
var (
	// ErrEmptyBatch indicates a structurally invalid request with no
	// submissions; the only batch-level failure
	ErrEmptyBatch = errors.New("push batch is empty")

	// ErrMissingEntityID indicates a submission without an id
	ErrMissingEntityID = errors.New("submission missing id")

	// ErrMissingEntityType indicates a submission without an entity_type
	ErrMissingEntityType = errors.New("submission missing entity_type")

	// ErrNegativeVersion indicates a submission with a negative base version
	ErrNegativeVersion = errors.New("submission version must not be negative")

	// errVersionRace marks a lost CAS race between detection and apply.
	// Retried once, then reclassified as a conflict; never surfaced as an
	// error to the caller.
	errVersionRace = errors.New("version advanced during apply")
)
