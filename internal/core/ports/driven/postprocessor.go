package driven

import (
	"context"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

// PostProcessor processes normalized text to produce chunks.
// PostProcessors are chained in a pipeline (e.g., chunking, orphan merging, section tagging).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes normalized text and the chunks produced so far.
	// If the processor creates chunks (e.g., chunker), it receives nil and returns new chunks.
	// If the processor modifies chunks (e.g., section tagging), it receives and returns chunks.
	Process(ctx context.Context, text *domain.NormalizedText, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the text through all processors in order.
	// Returns the final chunks after all processing.
	Process(ctx context.Context, text *domain.NormalizedText) ([]domain.Chunk, error)
}
