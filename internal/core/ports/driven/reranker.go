package driven

import (
	"context"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

// Reranker reorders first-stage retrieval candidates against the query.
// Implementations must be deterministic for identical input.
type Reranker interface {
	// Rerank scores candidates, sets RetrievedChunk.Score and returns them
	// best first. The input slice may be reordered in place.
	Rerank(ctx context.Context, query string, candidates []domain.RetrievedChunk) ([]domain.RetrievedChunk, error)
}
