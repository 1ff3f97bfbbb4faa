package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/leasequery/internal/adapters/driven/vector"
	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is a brute-force cosine index held in memory.
type VectorIndex struct {
	mu        sync.RWMutex
	dimension int
	docs      map[string][]driven.VectorRecord
}

// NewVectorIndex creates an empty index. A dimension of 0 accepts the
// size of the first vector stored.
func NewVectorIndex(dimension int) *VectorIndex {
	return &VectorIndex{
		dimension: dimension,
		docs:      make(map[string][]driven.VectorRecord),
	}
}

// Upsert replaces all vectors for a document.
func (v *VectorIndex) Upsert(_ context.Context, documentID string, records []driven.VectorRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range records {
		if v.dimension == 0 {
			v.dimension = len(r.Vector)
		}
		if len(r.Vector) != v.dimension {
			return fmt.Errorf("%w: %w: got %d, want %d",
				domain.ErrVectorStore, vector.ErrDimensionMismatch, len(r.Vector), v.dimension)
		}
	}
	delete(v.docs, documentID)
	if len(records) == 0 {
		return nil
	}
	stored := make([]driven.VectorRecord, len(records))
	copy(stored, records)
	v.docs[documentID] = stored
	return nil
}

// Delete removes every vector belonging to a document.
func (v *VectorIndex) Delete(_ context.Context, documentID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.docs, documentID)
	return nil
}

// Search finds the k nearest neighbours to the query vector.
func (v *VectorIndex) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}
	hits := make([]driven.VectorHit, 0)
	for docID, records := range v.docs {
		for _, r := range records {
			hits = append(hits, driven.VectorHit{
				ChunkID:    r.ChunkID,
				DocumentID: docID,
				Similarity: vector.Cosine(query, r.Vector),
			})
		}
	}
	return vector.TopK(hits, k), nil
}

// Count returns the number of stored vectors.
func (v *VectorIndex) Count(_ context.Context) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	n := 0
	for _, records := range v.docs {
		n += len(records)
	}
	return n, nil
}

// Close releases resources.
func (v *VectorIndex) Close() error {
	return nil
}
