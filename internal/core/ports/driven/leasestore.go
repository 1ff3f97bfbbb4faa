package driven

import (
	"context"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

// LeaseStore persists lease records.
type LeaseStore interface {
	// SaveLease inserts or updates a lease by ID.
	SaveLease(ctx context.Context, lease *domain.Lease) error

	// GetLease retrieves a lease by ID.
	// Returns domain.ErrNotFound if the lease does not exist.
	GetLease(ctx context.Context, id string) (*domain.Lease, error)

	// ListLeases returns all leases ordered by ID.
	ListLeases(ctx context.Context) ([]domain.Lease, error)

	// DeleteLease removes a lease and everything stored under it
	// (chunks, clause records, key terms, rent steps).
	// Returns domain.ErrNotFound if the lease does not exist.
	DeleteLease(ctx context.Context, id string) error
}

// ChunkStore persists chunks.
type ChunkStore interface {
	// SaveChunks stores chunks. Existing chunks with the same ID are replaced.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// GetChunks retrieves all chunks for a document in ordinal order.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunksByIDs retrieves chunks by ID. Missing IDs are absent from the map.
	GetChunksByIDs(ctx context.Context, ids []string) (map[string]domain.Chunk, error)

	// DeleteChunks removes all chunks for a document. Idempotent.
	DeleteChunks(ctx context.Context, documentID string) error
}

// ClauseStore persists extracted clause records.
type ClauseStore interface {
	// ReplaceClauses atomically replaces all clause records for a document.
	ReplaceClauses(ctx context.Context, documentID string, records []domain.ClauseRecord) error

	// GetClauses returns a document's clause records in taxonomy order.
	GetClauses(ctx context.Context, documentID string) ([]domain.ClauseRecord, error)

	// DeleteClauses removes all clause records for a document. Idempotent.
	DeleteClauses(ctx context.Context, documentID string) error
}

// KeyTermsStore persists key-terms records and their rent schedules.
type KeyTermsStore interface {
	// SaveKeyTerms replaces the key-terms record and rent steps for a document.
	SaveKeyTerms(ctx context.Context, record *domain.KeyTermsRecord) error

	// GetKeyTerms retrieves the record for a document.
	// Returns domain.ErrNotFound if none is stored.
	GetKeyTerms(ctx context.Context, documentID string) (*domain.KeyTermsRecord, error)

	// ListKeyTerms returns every stored record ordered by document ID.
	ListKeyTerms(ctx context.Context) ([]domain.KeyTermsRecord, error)

	// DeleteKeyTerms removes the record and rent steps for a document. Idempotent.
	DeleteKeyTerms(ctx context.Context, documentID string) error
}

// IngestionLogStore records processing runs.
type IngestionLogStore interface {
	// AppendLog stores a run record and assigns its ID.
	AppendLog(ctx context.Context, entry *domain.IngestionLog) error

	// ListLogs returns the most recent records first. A limit <= 0 returns all.
	ListLogs(ctx context.Context, limit int) ([]domain.IngestionLog, error)
}
