package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
)

func TestVectorIndex_UpsertReplacesDocument(t *testing.T) {
	idx := NewVectorIndex(2)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a.pdf", []driven.VectorRecord{
		{ChunkID: "a1", Vector: []float32{1, 0}},
		{ChunkID: "a2", Vector: []float32{0, 1}},
	}))
	require.NoError(t, idx.Upsert(ctx, "a.pdf", []driven.VectorRecord{
		{ChunkID: "a3", Vector: []float32{1, 1}},
	}))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestVectorIndex_Search(t *testing.T) {
	idx := NewVectorIndex(0)
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "a.pdf", []driven.VectorRecord{{ChunkID: "a1", Vector: []float32{1, 0}}}))
	require.NoError(t, idx.Upsert(ctx, "b.pdf", []driven.VectorRecord{{ChunkID: "b1", Vector: []float32{0.7, 0.7}}}))
	require.NoError(t, idx.Upsert(ctx, "c.pdf", []driven.VectorRecord{{ChunkID: "c1", Vector: []float32{0, 1}}}))

	hits, err := idx.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a1", hits[0].ChunkID)
	assert.Equal(t, "a.pdf", hits[0].DocumentID)
	assert.Equal(t, "b1", hits[1].ChunkID)
	assert.GreaterOrEqual(t, hits[0].Similarity, hits[1].Similarity)

	hits, err = idx.Search(ctx, []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestVectorIndex_DimensionMismatch(t *testing.T) {
	idx := NewVectorIndex(3)
	err := idx.Upsert(context.Background(), "a.pdf", []driven.VectorRecord{{ChunkID: "a1", Vector: []float32{1}}})
	assert.ErrorIs(t, err, domain.ErrVectorStore)
}

func TestVectorIndex_DeleteIdempotent(t *testing.T) {
	idx := NewVectorIndex(1)
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, "a.pdf", []driven.VectorRecord{{ChunkID: "a1", Vector: []float32{1}}}))

	require.NoError(t, idx.Delete(ctx, "a.pdf"))
	require.NoError(t, idx.Delete(ctx, "a.pdf"))

	n, _ := idx.Count(ctx)
	assert.Zero(t, n)
}
