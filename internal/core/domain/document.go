package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// LeaseStatus is the lifecycle status of a lease record.
type LeaseStatus string

// Lease statuses.
const (
	LeaseStatusPending    LeaseStatus = "pending"
	LeaseStatusProcessing LeaseStatus = "processing"
	LeaseStatusIndexed    LeaseStatus = "indexed"
	LeaseStatusFailed     LeaseStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s LeaseStatus) IsValid() bool {
	switch s {
	case LeaseStatusPending, LeaseStatusProcessing, LeaseStatusIndexed, LeaseStatusFailed:
		return true
	default:
		return false
	}
}

// Lease represents an ingested lease document.
// Its identity is the normalised file name.
type Lease struct {
	// ID is the normalised file name (see LeaseID).
	ID string

	// Name is the file name as it appeared on disk.
	Name string

	// SourcePath is the path the lease was loaded from.
	SourcePath string

	// Title is the document title, if the loader found one.
	Title string

	// DetectedAt is when the file was first seen.
	DetectedAt time.Time

	// Mode is the processing mode last applied.
	Mode IngestionMode

	// Fingerprint is the content hash of the normalised text.
	Fingerprint string

	// Status is the lifecycle status.
	Status LeaseStatus

	// FailedStage is set when Status is LeaseStatusFailed.
	FailedStage IngestionStage

	// LastError holds the failure message of the last run, if any.
	LastError string

	// ChunkCount is the number of chunks indexed by the last full run.
	ChunkCount int

	// PageCount is the number of pages in the normalised text.
	PageCount int

	// CreatedAt is when the record was first written.
	CreatedAt time.Time

	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time
}

// LeaseID derives a lease identifier from a file path.
// Two paths with the same base name (ignoring case and surrounding
// whitespace) refer to the same lease.
func LeaseID(path string) string {
	return strings.ToLower(strings.TrimSpace(filepath.Base(path)))
}

// Chunk represents a retrievable span of a lease's normalised text.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Lease.
	DocumentID string

	// Ordinal is the contiguous position within the lease, starting at 0.
	Ordinal int

	// Content is the chunk text. It always equals
	// text[StartOffset:EndOffset] of the normalised text it came from.
	Content string

	// StartOffset is the byte offset of the first character.
	StartOffset int

	// EndOffset is the byte offset one past the last character.
	EndOffset int

	// Page is the 1-based page the chunk starts on (0 if unknown).
	Page int

	// Section is the nearest preceding article or section heading.
	Section string

	// Embedding is the vector representation for semantic search.
	Embedding []float32
}

// Len returns the chunk length in bytes.
func (c Chunk) Len() int {
	return c.EndOffset - c.StartOffset
}
