package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/leasequery/internal/adapters/driven/vector"
	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
)

type fakePoint struct {
	vector  []float32
	payload map[string]any
}

// fakeQdrant implements the handful of REST endpoints the index uses.
type fakeQdrant struct {
	mu      sync.Mutex
	exists  bool
	size    int
	points  map[string]fakePoint
	apiKeys []string
	fail    bool
}

func newFakeQdrant(t *testing.T) (*fakeQdrant, *httptest.Server) {
	t.Helper()
	f := &fakeQdrant{points: make(map[string]fakePoint)}
	srv := httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeQdrant) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))

	if f.fail {
		http.Error(w, `{"status":{"error":"boom"}}`, http.StatusInternalServerError)
		return
	}

	var body map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	path := strings.TrimPrefix(r.URL.Path, "/collections/leases")
	switch {
	case r.URL.Path == "/collections" && r.Method == http.MethodGet:
		writeJSON(w, map[string]any{"result": map[string]any{"collections": []any{}}})
	case path == "" && r.Method == http.MethodGet:
		if !f.exists {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{"result": map[string]any{"config": map[string]any{
			"params": map[string]any{"vectors": map[string]any{"size": f.size, "distance": "Cosine"}},
		}}})
	case path == "" && r.Method == http.MethodPut:
		f.exists = true
		f.size = int(body["vectors"].(map[string]any)["size"].(float64))
		writeJSON(w, map[string]any{"result": true})
	case !f.exists:
		http.NotFound(w, r)
	case path == "/index":
		writeJSON(w, map[string]any{"result": map[string]any{}})
	case path == "/points" && r.Method == http.MethodPut:
		for _, raw := range body["points"].([]any) {
			p := raw.(map[string]any)
			var vec []float32
			for _, x := range p["vector"].([]any) {
				vec = append(vec, float32(x.(float64)))
			}
			f.points[p["id"].(string)] = fakePoint{vector: vec, payload: p["payload"].(map[string]any)}
		}
		writeJSON(w, map[string]any{"result": map[string]any{"status": "completed"}})
	case path == "/points/delete":
		must := body["filter"].(map[string]any)["must"].([]any)[0].(map[string]any)
		doc := must["match"].(map[string]any)["value"].(string)
		for id, p := range f.points {
			if p.payload["document_id"] == doc {
				delete(f.points, id)
			}
		}
		writeJSON(w, map[string]any{"result": map[string]any{"status": "completed"}})
	case path == "/points/count":
		writeJSON(w, map[string]any{"result": map[string]any{"count": len(f.points)}})
	case path == "/points/search":
		var query []float32
		for _, x := range body["vector"].([]any) {
			query = append(query, float32(x.(float64)))
		}
		type scored struct {
			ID      string         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		}
		var out []scored
		for id, p := range f.points {
			out = append(out, scored{ID: id, Score: vector.Cosine(query, p.vector), Payload: p.payload})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
		if limit := int(body["limit"].(float64)); len(out) > limit {
			out = out[:limit]
		}
		writeJSON(w, map[string]any{"result": out})
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestIndex_UpsertSearchCount(t *testing.T) {
	fake, srv := newFakeQdrant(t)
	idx := New(Config{URL: srv.URL + "/", Collection: "leases", APIKey: "secret"})
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a.pdf", []driven.VectorRecord{
		{ChunkID: "11111111-1111-1111-1111-111111111111", Vector: []float32{1, 0, 0}},
		{ChunkID: "22222222-2222-2222-2222-222222222222", Vector: []float32{0, 1, 0}},
	}))
	assert.True(t, fake.exists)
	assert.Equal(t, 3, fake.size)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := idx.Search(ctx, []float32{1, 0.1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", hits[0].ChunkID)
	assert.Equal(t, "a.pdf", hits[0].DocumentID)
	assert.Greater(t, hits[0].Similarity, 0.9)

	for _, k := range fake.apiKeys {
		assert.Equal(t, "secret", k)
	}
}

func TestIndex_UpsertReplacesDocument(t *testing.T) {
	_, srv := newFakeQdrant(t)
	idx := New(Config{URL: srv.URL, Collection: "leases"})
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a.pdf", []driven.VectorRecord{{ChunkID: "a1", Vector: []float32{1, 0}}, {ChunkID: "a2", Vector: []float32{0, 1}}}))
	require.NoError(t, idx.Upsert(ctx, "b.pdf", []driven.VectorRecord{{ChunkID: "b1", Vector: []float32{1, 1}}}))
	require.NoError(t, idx.Upsert(ctx, "a.pdf", []driven.VectorRecord{{ChunkID: "a3", Vector: []float32{1, 0}}}))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, idx.Delete(ctx, "a.pdf"))
	n, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndex_MissingCollection(t *testing.T) {
	_, srv := newFakeQdrant(t)
	idx := New(Config{URL: srv.URL, Collection: "leases"})
	ctx := context.Background()

	hits, err := idx.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.NoError(t, idx.Delete(ctx, "a.pdf"))
	assert.NoError(t, idx.Ping(ctx))
	assert.NoError(t, idx.Close())
}

func TestIndex_DimensionMismatch(t *testing.T) {
	_, srv := newFakeQdrant(t)
	idx := New(Config{URL: srv.URL, Collection: "leases", Dimension: 3})

	err := idx.Upsert(context.Background(), "a.pdf", []driven.VectorRecord{{ChunkID: "a1", Vector: []float32{1, 0}}})
	assert.ErrorIs(t, err, domain.ErrVectorStore)
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
}

func TestIndex_ServerError(t *testing.T) {
	fake, srv := newFakeQdrant(t)
	fake.fail = true
	idx := New(Config{URL: srv.URL, Collection: "leases"})
	ctx := context.Background()

	_, err := idx.Search(ctx, []float32{1}, 1)
	assert.ErrorIs(t, err, domain.ErrVectorStore)
	assert.Contains(t, err.Error(), "500")

	err = idx.Upsert(ctx, "a.pdf", []driven.VectorRecord{{ChunkID: "a1", Vector: []float32{1}}})
	assert.ErrorIs(t, err, domain.ErrVectorStore)

	assert.ErrorIs(t, idx.Ping(ctx), domain.ErrVectorStore)
}

func TestNew_Defaults(t *testing.T) {
	idx := New(Config{})
	assert.Equal(t, DefaultURL, idx.baseURL)
	assert.Equal(t, DefaultCollection, idx.collection)
	assert.Equal(t, "/collections/lease_chunks/points", idx.collectionPath("points"))
}
