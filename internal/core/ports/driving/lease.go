package driving

import (
	"context"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

// LeaseService exposes indexed leases and their extracted data.
type LeaseService interface {
	// List returns all leases.
	List(ctx context.Context) ([]domain.Lease, error)

	// Get retrieves a lease by ID.
	Get(ctx context.Context, id string) (*domain.Lease, error)

	// Delete removes a lease and all derived data.
	Delete(ctx context.Context, id string) error

	// Compare groups clause records of the given leases by clause type.
	// Returns domain.ErrNotFound if any ID is unknown.
	Compare(ctx context.Context, ids []string) (domain.Comparison, error)

	// KeyTerms returns key-terms records for the given leases, extracting
	// on demand when none is stored.
	KeyTerms(ctx context.Context, ids []string) ([]domain.KeyTermsRecord, error)

	// Portfolio summarises all stored key terms.
	Portfolio(ctx context.Context) (*domain.Portfolio, error)

	// IngestionLogs returns recent processing runs, newest first.
	IngestionLogs(ctx context.Context, limit int) ([]domain.IngestionLog, error)
}
