package domain

import "time"

// IngestionMode selects which pipeline stages run.
type IngestionMode string

// Available ingestion modes.
const (
	// ModeFull runs load, chunk, embed and both extractors.
	ModeFull IngestionMode = "full"

	// ModeClauseOnly runs load and clause extraction, skipping vector indexing.
	ModeClauseOnly IngestionMode = "clause_only"
)

// IsValid returns true if the mode is recognised.
func (m IngestionMode) IsValid() bool {
	switch m {
	case ModeFull, ModeClauseOnly:
		return true
	default:
		return false
	}
}

// Covers reports whether a run in mode m produces everything a run in
// other would.
func (m IngestionMode) Covers(other IngestionMode) bool {
	return m == other || m == ModeFull
}

// String returns the string representation.
func (m IngestionMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m IngestionMode) Description() string {
	switch m {
	case ModeFull:
		return "Full (index + clauses + key terms)"
	case ModeClauseOnly:
		return "Clause only (no vector indexing)"
	default:
		return unknownDescription
	}
}

// IngestionStage is a state in the per-document ingestion state machine.
type IngestionStage string

// Ingestion stages, in pipeline order.
const (
	StageDetected   IngestionStage = "detected"
	StageAdmitted   IngestionStage = "admitted"
	StageLoading    IngestionStage = "loading"
	StageChunking   IngestionStage = "chunking"
	StageEmbedding  IngestionStage = "embedding"
	StageExtracting IngestionStage = "extracting"
	StageIndexed    IngestionStage = "indexed"
	StageFailed     IngestionStage = "failed"
)

// String returns the string representation.
func (s IngestionStage) String() string {
	return string(s)
}

// ProcessOptions tunes a single processing run.
type ProcessOptions struct {
	// Force rebuilds even when the fingerprint is unchanged.
	Force bool
}

// ProcessResult reports the outcome of one processing run.
type ProcessResult struct {
	Success         bool           `json:"success"`
	FileName        string         `json:"file_name"`
	Mode            IngestionMode  `json:"mode"`
	ChunksProcessed int            `json:"chunks_processed,omitempty"`
	VectorsUploaded int            `json:"vectors_uploaded,omitempty"`
	ClausesFound    int            `json:"clauses_found,omitempty"`
	ProcessingTime  float64        `json:"processing_time,omitempty"`
	Error           string         `json:"error,omitempty"`
	FailedStage     IngestionStage `json:"failed_stage,omitempty"`
	Skipped         bool           `json:"skipped,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
}

// IngestionLog is the persisted record of one processing run.
type IngestionLog struct {
	ID              int64
	DocumentName    string
	Status          string
	Mode            IngestionMode
	ChunksProcessed int
	VectorsUploaded int
	ProcessingTime  float64
	FailedStage     IngestionStage
	ErrorMessage    string
	CreatedAt       time.Time
}

// Portfolio summarises all leases with key terms.
type Portfolio struct {
	LeaseCount        int      `json:"lease_count"`
	Tenants           []string `json:"tenants"`
	TotalDeposit      float64  `json:"total_deposit"`
	AverageYearOneRPF float64  `json:"average_year_one_rent_psf"`
	LeasesWithRent    int      `json:"leases_with_rent"`
}
