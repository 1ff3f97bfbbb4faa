package driven

import (
	"context"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

// SearchEngine provides keyword search over chunk content.
// It complements the VectorIndex for exact terms such as article numbers,
// party names and amounts that embeddings tend to blur.
type SearchEngine interface {
	// Index adds or updates a chunk in the search index.
	Index(ctx context.Context, chunk domain.Chunk) error

	// DeleteDocument removes every chunk of a document from the index.
	DeleteDocument(ctx context.Context, documentID string) error

	// Search performs a keyword search and returns matching chunk IDs with scores,
	// best match first.
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)

	// Close releases resources.
	Close() error
}

// SearchHit represents a search result from the engine.
type SearchHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the relevance score (higher is better).
	Score float64
}
