package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

func indexChunks(t *testing.T, e *SearchEngine, chunks ...domain.Chunk) {
	t.Helper()
	for _, c := range chunks {
		require.NoError(t, e.Index(context.Background(), c))
	}
}

func TestSearchEngine_RanksMatches(t *testing.T) {
	store := setupTestStore(t)
	e := store.SearchEngine()
	ctx := context.Background()

	indexChunks(t, e,
		domain.Chunk{ID: "c1", DocumentID: "a.pdf", Content: "The Tenant shall pay a security deposit of $10,000."},
		domain.Chunk{ID: "c2", DocumentID: "a.pdf", Content: "Insurance must be maintained by the Tenant."},
		domain.Chunk{ID: "c3", DocumentID: "b.pdf", Content: "Security deposit: deposit is refundable. Deposit held in trust."},
	)

	hits, err := e.Search(ctx, "security deposit", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "c3", hits[0].ChunkID)
	assert.Equal(t, "c1", hits[1].ChunkID)
	assert.Greater(t, hits[0].Score, 0.0)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)

	limited, err := e.Search(ctx, "tenant", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSearchEngine_StemsAndIgnoresOperators(t *testing.T) {
	store := setupTestStore(t)
	e := store.SearchEngine()
	ctx := context.Background()

	indexChunks(t, e, domain.Chunk{ID: "c1", DocumentID: "a.pdf", Content: "Renewal options are granted."})

	hits, err := e.Search(ctx, `option* AND "renew" NOT (`, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ChunkID)

	empty, err := e.Search(ctx, "  ?! ", 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSearchEngine_ReindexAndDelete(t *testing.T) {
	store := setupTestStore(t)
	e := store.SearchEngine()
	ctx := context.Background()

	indexChunks(t, e, domain.Chunk{ID: "c1", DocumentID: "a.pdf", Content: "radius restriction"})
	indexChunks(t, e, domain.Chunk{ID: "c1", DocumentID: "a.pdf", Content: "exclusive use"})

	hits, err := e.Search(ctx, "radius", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = e.Search(ctx, "exclusive", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	require.NoError(t, e.DeleteDocument(ctx, "a.pdf"))
	hits, err = e.Search(ctx, "exclusive", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.NoError(t, e.Close())
}

func TestMatchExpression(t *testing.T) {
	assert.Equal(t, `"rent" OR "due" OR "2024"`, matchExpression("Rent due? rent 2024!"))
	assert.Equal(t, "", matchExpression("***"))
}
