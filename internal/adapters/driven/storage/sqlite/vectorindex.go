package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/leasequery/internal/adapters/driven/vector"
	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex stores embeddings as float32 blobs and searches them by
// brute-force cosine similarity. It shares the Store's connection.
type VectorIndex struct {
	store *Store

	mu        sync.Mutex
	dimension int
}

// Upsert replaces all vectors for a document.
func (v *VectorIndex) Upsert(ctx context.Context, documentID string, records []driven.VectorRecord) error {
	dim, err := v.checkDimension(ctx, records)
	if err != nil {
		return err
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", domain.ErrVectorStore, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunk_vectors WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("%w: clearing vectors: %v", domain.ErrVectorStore, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunk_vectors (chunk_id, document_id, dimension, embedding)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			document_id = excluded.document_id,
			dimension = excluded.dimension,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("%w: preparing statement: %v", domain.ErrVectorStore, err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ChunkID, documentID, dim, vector.Encode(r.Vector)); err != nil {
			return fmt.Errorf("%w: saving vector: %v", domain.ErrVectorStore, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", domain.ErrVectorStore, err)
	}
	return nil
}

// checkDimension validates records against the index dimension, learning
// it from stored rows or the first record when unset.
func (v *VectorIndex) checkDimension(ctx context.Context, records []driven.VectorRecord) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.dimension == 0 {
		var stored int
		err := v.store.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(dimension), 0) FROM chunk_vectors").Scan(&stored)
		if err != nil {
			return 0, fmt.Errorf("%w: reading dimension: %v", domain.ErrVectorStore, err)
		}
		v.dimension = stored
	}
	for _, r := range records {
		if v.dimension == 0 {
			v.dimension = len(r.Vector)
		}
		if len(r.Vector) != v.dimension {
			return 0, fmt.Errorf("%w: %w: got %d, want %d",
				domain.ErrVectorStore, vector.ErrDimensionMismatch, len(r.Vector), v.dimension)
		}
	}
	return v.dimension, nil
}

// Delete removes every vector belonging to a document.
func (v *VectorIndex) Delete(ctx context.Context, documentID string) error {
	if _, err := v.store.db.ExecContext(ctx, "DELETE FROM chunk_vectors WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("%w: deleting vectors: %v", domain.ErrVectorStore, err)
	}
	return nil
}

// Search finds the k nearest neighbours to the query vector.
func (v *VectorIndex) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}

	rows, err := v.store.db.QueryContext(ctx, "SELECT chunk_id, document_id, embedding FROM chunk_vectors")
	if err != nil {
		return nil, fmt.Errorf("%w: querying vectors: %v", domain.ErrVectorStore, err)
	}
	defer rows.Close()

	hits := make([]driven.VectorHit, 0)
	for rows.Next() {
		var (
			hit  driven.VectorHit
			blob []byte
		)
		if err := rows.Scan(&hit.ChunkID, &hit.DocumentID, &blob); err != nil {
			return nil, fmt.Errorf("%w: scanning vector: %v", domain.ErrVectorStore, err)
		}
		vec, err := vector.Decode(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %s: %v", domain.ErrVectorStore, hit.ChunkID, err)
		}
		if len(vec) != len(query) {
			return nil, fmt.Errorf("%w: %w: query has %d, index has %d",
				domain.ErrVectorStore, vector.ErrDimensionMismatch, len(query), len(vec))
		}
		hit.Similarity = vector.Cosine(query, vec)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: iterating vectors: %v", domain.ErrVectorStore, err)
	}
	return vector.TopK(hits, k), nil
}

// Count returns the number of stored vectors.
func (v *VectorIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := v.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunk_vectors").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting vectors: %v", domain.ErrVectorStore, err)
	}
	return n, nil
}

// Close is a no-op; the Store owns the connection.
func (v *VectorIndex) Close() error {
	return nil
}
