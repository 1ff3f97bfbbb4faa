package driving

import (
	"context"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

// IngestionService processes lease files into the index.
type IngestionService interface {
	// Process runs the ingestion pipeline for one file.
	// Failures are reported in the result, never as a panic or process exit.
	Process(ctx context.Context, path string, mode domain.IngestionMode, opts domain.ProcessOptions) *domain.ProcessResult

	// OnFileDetected registers a newly detected file as pending and
	// notifies subscribers when it is admitted.
	OnFileDetected(ctx context.Context, event domain.FileEvent) domain.RegisterOutcome
}
