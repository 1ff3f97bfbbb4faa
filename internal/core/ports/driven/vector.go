package driven

import "context"

// VectorIndex provides semantic similarity search over chunk embeddings.
// Vectors are grouped by document so a lease can be replaced or removed
// as a unit. Implementations wrap failures with domain.ErrVectorStore.
type VectorIndex interface {
	// Upsert replaces all vectors for a document with the given records.
	// Prior vectors for the document are deleted before insertion.
	Upsert(ctx context.Context, documentID string, records []VectorRecord) error

	// Delete removes every vector belonging to a document.
	// Deleting an unknown document is not an error.
	Delete(ctx context.Context, documentID string) error

	// Search finds the k nearest neighbours to the query vector,
	// ordered by non-increasing similarity.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// VectorRecord is a chunk embedding to be stored.
type VectorRecord struct {
	// ChunkID is the chunk the vector belongs to.
	ChunkID string

	// Vector is the embedding.
	Vector []float32
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// DocumentID is the lease owning the chunk.
	DocumentID string

	// Similarity is the cosine similarity score.
	Similarity float64
}
