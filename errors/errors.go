package errors

import "errors"

// Sentinel errors for the failure classes the pipeline distinguishes.
// Collaborator failures (index, scorer, embedder, generation backends) are
// never translated into one of these; they propagate wrapped with %w so
// callers can still identify the backend that failed.
var (
	// ErrEmptyInput indicates blank ticket or query text reached a stage
	// that requires non-blank input.
	ErrEmptyInput = errors.New("input must be non-empty")

	// ErrMalformedGeneration indicates the generation backend returned
	// output that is not parseable JSON.
	ErrMalformedGeneration = errors.New("generation output is not valid JSON")

	// ErrMissingAnswer indicates the generation backend returned JSON that
	// lacks the required answer field.
	ErrMissingAnswer = errors.New("generation output is missing the answer field")
)
