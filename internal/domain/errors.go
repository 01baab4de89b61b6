package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned when a document's extension maps to no
	// known extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmptyDocument is returned when extraction succeeds but yields no text.
	ErrEmptyDocument = errors.New("no text content extracted from document")

	// ErrIndexUnavailable is returned when a persisted vector index cannot be
	// restored.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrValidation is returned for malformed queries or requests.
	ErrValidation = errors.New("invalid request")
)

// ExtractionError reports a failed text extraction. No partial chunks exist
// for a document whose extraction failed.
type ExtractionError struct {
	Format string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s document: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// GenerationError reports a language-model failure. It is distinct from an
// empty retrieval result so callers can tell "nothing to say" from "the
// system broke".
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("answer generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
