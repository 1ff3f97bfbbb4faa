// Package qdrant implements the vector index over the Qdrant REST API.
// Points are keyed by chunk ID and carry a document_id payload so a lease's
// vectors can be replaced or removed with a filter.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/leasequery/internal/adapters/driven/vector"
	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

const (
	// DefaultURL is the local Qdrant REST endpoint.
	DefaultURL = "http://localhost:6333"

	// DefaultCollection holds lease chunks.
	DefaultCollection = "lease_chunks"

	defaultTimeout = 15 * time.Second

	payloadDocumentID = "document_id"
)

// errCollectionMissing marks a 404 on the collection.
var errCollectionMissing = errors.New("collection does not exist")

// Config configures the Qdrant index.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	// Dimension is the vector size. Zero takes the size of the first upsert.
	Dimension int
	Timeout   time.Duration
}

// Index is a Qdrant-backed vector index using cosine distance.
type Index struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client

	mu        sync.Mutex
	dimension int
	ready     bool
}

// New creates a Qdrant index. The collection is created on first write.
func New(cfg Config) *Index {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Index{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
}

// Upsert replaces all vectors for a document.
func (q *Index) Upsert(ctx context.Context, documentID string, records []driven.VectorRecord) error {
	if len(records) > 0 {
		if err := q.ensureCollection(ctx, len(records[0].Vector)); err != nil {
			return err
		}
	}
	for _, r := range records {
		if len(r.Vector) != q.dim() {
			return fmt.Errorf("%w: %w: got %d, want %d",
				domain.ErrVectorStore, vector.ErrDimensionMismatch, len(r.Vector), q.dim())
		}
	}

	if err := q.Delete(ctx, documentID); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}
	points := make([]point, len(records))
	for i, r := range records {
		points[i] = point{
			ID:     r.ChunkID,
			Vector: r.Vector,
			Payload: map[string]any{
				payloadDocumentID: documentID,
				"chunk_id":        r.ChunkID,
			},
		}
	}
	body := map[string]any{"points": points}
	if err := q.do(ctx, http.MethodPut, q.collectionPath("points")+"?wait=true", body, nil); err != nil {
		return fmt.Errorf("%w: upsert points: %w", domain.ErrVectorStore, err)
	}
	return nil
}

// Delete removes every vector belonging to a document.
func (q *Index) Delete(ctx context.Context, documentID string) error {
	body := map[string]any{"filter": documentFilter(documentID)}
	err := q.do(ctx, http.MethodPost, q.collectionPath("points/delete")+"?wait=true", body, nil)
	if err != nil && !errors.Is(err, errCollectionMissing) {
		return fmt.Errorf("%w: delete points: %w", domain.ErrVectorStore, err)
	}
	return nil
}

// Search finds the k nearest neighbours to the query vector.
func (q *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}
	req := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := q.do(ctx, http.MethodPost, q.collectionPath("points/search"), req, &resp)
	if errors.Is(err, errCollectionMissing) {
		return []driven.VectorHit{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", domain.ErrVectorStore, err)
	}

	hits := make([]driven.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit := driven.VectorHit{ChunkID: fmt.Sprint(r.ID), Similarity: r.Score}
		if v, ok := r.Payload["chunk_id"].(string); ok {
			hit.ChunkID = v
		}
		if v, ok := r.Payload[payloadDocumentID].(string); ok {
			hit.DocumentID = v
		}
		hits = append(hits, hit)
	}
	return vector.TopK(hits, k), nil
}

// Count returns the number of stored vectors.
func (q *Index) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := q.do(ctx, http.MethodPost, q.collectionPath("points/count"), map[string]any{"exact": true}, &resp)
	if errors.Is(err, errCollectionMissing) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: count: %w", domain.ErrVectorStore, err)
	}
	return resp.Result.Count, nil
}

// Ping checks the server is reachable.
func (q *Index) Ping(ctx context.Context) error {
	if err := q.do(ctx, http.MethodGet, "/collections", nil, nil); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStore, err)
	}
	return nil
}

// Close releases idle connections.
func (q *Index) Close() error {
	q.client.CloseIdleConnections()
	return nil
}

func (q *Index) dim() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dimension
}

// ensureCollection creates the collection with cosine distance if it does
// not exist, and learns its vector size if it does.
func (q *Index) ensureCollection(ctx context.Context, size int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ready {
		return nil
	}

	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	err := q.do(ctx, http.MethodGet, q.collectionPath(""), nil, &info)
	switch {
	case err == nil:
		if existing := info.Result.Config.Params.Vectors.Size; existing > 0 {
			q.dimension = existing
		}
	case errors.Is(err, errCollectionMissing):
		if q.dimension == 0 {
			q.dimension = size
		}
		body := map[string]any{
			"vectors": map[string]any{"size": q.dimension, "distance": "Cosine"},
		}
		if err := q.do(ctx, http.MethodPut, q.collectionPath(""), body, nil); err != nil {
			return fmt.Errorf("%w: create collection: %w", domain.ErrVectorStore, err)
		}
		body = map[string]any{"field_name": payloadDocumentID, "field_schema": "keyword"}
		if err := q.do(ctx, http.MethodPut, q.collectionPath("index")+"?wait=true", body, nil); err != nil {
			return fmt.Errorf("%w: create payload index: %w", domain.ErrVectorStore, err)
		}
	default:
		return fmt.Errorf("%w: get collection: %w", domain.ErrVectorStore, err)
	}
	q.ready = true
	return nil
}

func (q *Index) collectionPath(suffix string) string {
	p := "/collections/" + url.PathEscape(q.collection)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

func documentFilter(documentID string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": payloadDocumentID, "match": map[string]any{"value": documentID}},
		},
	}
}

// do sends a JSON request and decodes the response into out when non-nil.
func (q *Index) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errCollectionMissing
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("qdrant %s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
