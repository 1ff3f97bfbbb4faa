package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrJobInFlight indicates a file is already being processed.
	ErrJobInFlight = errors.New("file is already being processed")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Extraction, routing and answer generation degrade without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// Load Errors.

	// ErrUnsupportedFormat indicates no loader handles the file extension.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrCorruptDocument indicates text extraction produced no usable content.
	ErrCorruptDocument = errors.New("corrupt document")

	// ErrConversionFailure indicates a conversion tool is missing or failed.
	ErrConversionFailure = errors.New("conversion failure")

	// Index Errors.

	// ErrEmbeddingService indicates the embedding service failed.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrVectorStore indicates the vector store failed.
	ErrVectorStore = errors.New("vector store error")

	// Extraction and Retrieval Errors.

	// ErrExtractionSchemaViolation indicates extractor output outside the schema.
	// It is recovered locally by dropping the offending clause or field.
	ErrExtractionSchemaViolation = errors.New("extraction schema violation")

	// ErrRetrievalTimeout indicates retrieval did not finish in time.
	ErrRetrievalTimeout = errors.New("retrieval timeout")
)

// StageError records the ingestion stage at which a run failed.
type StageError struct {
	Stage IngestionStage
	Err   error
}

// NewStageError wraps err with the stage it occurred in.
func NewStageError(stage IngestionStage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage recorded in err, or StageFailed when none is.
func StageOf(err error) IngestionStage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return StageFailed
}

// Violation describes a piece of extractor output that was dropped.
type Violation struct {
	// Field is the clause type or key-terms field that was rejected.
	Field string

	// Reason explains why the value was dropped.
	Reason string
}

// Error implements the error interface so violations can be joined and
// matched against ErrExtractionSchemaViolation.
func (v Violation) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrExtractionSchemaViolation, v.Field, v.Reason)
}

// Unwrap returns ErrExtractionSchemaViolation.
func (v Violation) Unwrap() error {
	return ErrExtractionSchemaViolation
}
