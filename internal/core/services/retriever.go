package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/logger"
)

// rrfK is the Reciprocal Rank Fusion constant.
const rrfK = 60

// Retriever finds the chunks most relevant to a query in two stages:
// vector (optionally fused with keyword) candidate search, then reranking.
type Retriever struct {
	embedder driven.EmbeddingService
	vectors  driven.VectorIndex
	keywords driven.SearchEngine
	chunks   driven.ChunkStore
	leases   driven.LeaseStore
	reranker driven.Reranker
	timeout  time.Duration
}

// NewRetriever creates a retriever. keywords and reranker are optional;
// without a reranker, candidates keep their stage-one order.
func NewRetriever(
	embedder driven.EmbeddingService,
	vectors driven.VectorIndex,
	keywords driven.SearchEngine,
	chunks driven.ChunkStore,
	leases driven.LeaseStore,
	reranker driven.Reranker,
	timeout time.Duration,
) *Retriever {
	return &Retriever{
		embedder: embedder,
		vectors:  vectors,
		keywords: keywords,
		chunks:   chunks,
		leases:   leases,
		reranker: reranker,
		timeout:  timeout,
	}
}

// candidate is a stage-one result before hydration.
type candidate struct {
	chunkID    string
	score      float64
	similarity float64
}

// Retrieve returns up to kFinal chunks for query, best first.
// Returns domain.ErrRetrievalTimeout when the retrieval deadline passes.
func (r *Retriever) Retrieve(ctx context.Context, query string, kRetrieve, kFinal int) ([]domain.RetrievedChunk, error) {
	logger.Section("Retrieval")
	logger.Debug("Query: %q, k_retrieve=%d, k_final=%d", query, kRetrieve, kFinal)

	if kRetrieve <= 0 || kFinal <= 0 {
		return nil, fmt.Errorf("%w: k_retrieve and k_final must be positive", domain.ErrInvalidInput)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	// 1. CANDIDATES
	cands, err := r.stageOne(ctx, query, kRetrieve)
	if err != nil {
		return nil, r.classify(ctx, err)
	}
	logger.Debug("Stage one: %d candidates", len(cands))

	// 2. HYDRATE
	results, err := r.hydrate(ctx, cands)
	if err != nil {
		return nil, r.classify(ctx, err)
	}
	if len(results) == 0 {
		return results, nil
	}

	// 3. RERANK
	if r.reranker != nil {
		results, err = r.reranker.Rerank(ctx, query, results)
		if err != nil {
			return nil, r.classify(ctx, fmt.Errorf("rerank: %w", err))
		}
	} else {
		for i := range results {
			results[i].Score = results[i].VectorScore
		}
	}

	if len(results) > kFinal {
		results = results[:kFinal]
	}
	logger.Info("Retrieved %d chunks", len(results))
	return results, nil
}

// classify maps deadline failures to domain.ErrRetrievalTimeout.
func (r *Retriever) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrRetrievalTimeout, err)
	}
	return err
}

func (r *Retriever) stageOne(ctx context.Context, query string, k int) ([]candidate, error) {
	vectorReady := r.embedder != nil && r.vectors != nil
	switch {
	case vectorReady && r.keywords != nil:
		return r.hybrid(ctx, query, k)
	case vectorReady:
		return r.vectorSearch(ctx, query, k)
	case r.keywords != nil:
		logger.Debug("Vector search unavailable, using keyword search only")
		return r.keywordSearch(ctx, query, k)
	default:
		logger.Warn("Retrieval unavailable: no vector index or keyword engine configured")
		return nil, nil
	}
}

func (r *Retriever) hybrid(ctx context.Context, query string, k int) ([]candidate, error) {
	var keywordResults, vectorResults []candidate
	var keywordErr, vectorErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		keywordResults, keywordErr = r.keywordSearch(ctx, query, k)
	}()
	go func() {
		defer wg.Done()
		vectorResults, vectorErr = r.vectorSearch(ctx, query, k)
	}()
	wg.Wait()

	// Degrade to whichever side succeeded
	if keywordErr != nil && vectorErr != nil {
		return nil, fmt.Errorf("hybrid search: keyword=%w, vector=%w", keywordErr, vectorErr)
	}
	if keywordErr != nil {
		logger.Warn("Keyword search failed, using vector results only: %v", keywordErr)
		return vectorResults, nil
	}
	if vectorErr != nil {
		logger.Warn("Vector search failed, using keyword results only: %v", vectorErr)
		return keywordResults, nil
	}

	merged := reciprocalRankFusion(vectorResults, keywordResults, rrfK)
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}

func (r *Retriever) vectorSearch(ctx context.Context, query string, k int) ([]candidate, error) {
	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := r.vectors.Search(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	out := make([]candidate, len(hits))
	for i, h := range hits {
		out[i] = candidate{chunkID: h.ChunkID, score: h.Similarity, similarity: h.Similarity}
	}
	return out, nil
}

func (r *Retriever) keywordSearch(ctx context.Context, query string, k int) ([]candidate, error) {
	hits, err := r.keywords.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	out := make([]candidate, len(hits))
	for i, h := range hits {
		out[i] = candidate{chunkID: h.ChunkID, score: h.Score}
	}
	return out, nil
}

// reciprocalRankFusion merges ranked lists. Vector similarity is carried
// over from the first list so rerankers can use it as a prior.
// Ties are broken by chunk ID.
func reciprocalRankFusion(vectorList, keywordList []candidate, k int) []candidate {
	scores := make(map[string]float64)
	similarity := make(map[string]float64)

	for rank, c := range vectorList {
		scores[c.chunkID] += 1.0 / float64(k+rank+1)
		similarity[c.chunkID] = c.similarity
	}
	for rank, c := range keywordList {
		scores[c.chunkID] += 1.0 / float64(k+rank+1)
	}

	results := make([]candidate, 0, len(scores))
	for id, s := range scores {
		results = append(results, candidate{chunkID: id, score: s, similarity: similarity[id]})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].chunkID < results[j].chunkID
	})
	return results
}

// hydrate loads chunks and their leases. Candidates whose chunk or lease
// was deleted since indexing are skipped.
func (r *Retriever) hydrate(ctx context.Context, cands []candidate) ([]domain.RetrievedChunk, error) {
	if len(cands) == 0 {
		return []domain.RetrievedChunk{}, nil
	}
	if r.chunks == nil || r.leases == nil {
		return nil, errors.New("hydrate: chunk or lease store unavailable")
	}

	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.chunkID
	}
	chunks, err := r.chunks.GetChunksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate chunks: %w", err)
	}

	leases := make(map[string]*domain.Lease)
	results := make([]domain.RetrievedChunk, 0, len(cands))
	for _, c := range cands {
		chunk, ok := chunks[c.chunkID]
		if !ok {
			continue
		}
		lease, cached := leases[chunk.DocumentID]
		if !cached {
			lease, err = r.leases.GetLease(ctx, chunk.DocumentID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("hydrate lease %s: %w", chunk.DocumentID, err)
			}
			leases[chunk.DocumentID] = lease
		}
		if lease == nil {
			continue
		}
		score := c.similarity
		if score == 0 {
			score = c.score
		}
		results = append(results, domain.RetrievedChunk{
			Chunk:       chunk,
			Lease:       *lease,
			VectorScore: score,
			Rank:        len(results) + 1,
		})
	}
	return results, nil
}
