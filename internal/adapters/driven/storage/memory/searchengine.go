package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
)

// Ensure SearchEngine implements the interface.
var _ driven.SearchEngine = (*SearchEngine)(nil)

// SearchEngine is a term-overlap keyword index held in memory.
// A chunk scores the fraction of distinct query terms it contains.
type SearchEngine struct {
	mu     sync.RWMutex
	chunks map[string]indexedChunk
}

type indexedChunk struct {
	documentID string
	terms      map[string]int
}

// NewSearchEngine creates an empty keyword index.
func NewSearchEngine() *SearchEngine {
	return &SearchEngine{chunks: make(map[string]indexedChunk)}
}

// Index adds or updates a chunk.
func (e *SearchEngine) Index(_ context.Context, chunk domain.Chunk) error {
	terms := make(map[string]int)
	for _, t := range Tokenize(chunk.Content) {
		terms[t]++
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.chunks[chunk.ID] = indexedChunk{documentID: chunk.DocumentID, terms: terms}
	return nil
}

// DeleteDocument removes every chunk of a document.
func (e *SearchEngine) DeleteDocument(_ context.Context, documentID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, c := range e.chunks {
		if c.documentID == documentID {
			delete(e.chunks, id)
		}
	}
	return nil
}

// Search returns chunks containing query terms, best first.
func (e *SearchEngine) Search(_ context.Context, query string, limit int) ([]driven.SearchHit, error) {
	qterms := uniqueTerms(Tokenize(query))
	if len(qterms) == 0 || limit <= 0 {
		return []driven.SearchHit{}, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	hits := make([]driven.SearchHit, 0)
	for id, c := range e.chunks {
		matched := 0
		freq := 0
		for _, t := range qterms {
			if n := c.terms[t]; n > 0 {
				matched++
				freq += n
			}
		}
		if matched == 0 {
			continue
		}
		// Frequency only breaks ties between chunks with equal coverage.
		score := float64(matched)/float64(len(qterms)) + float64(freq)*1e-4
		hits = append(hits, driven.SearchHit{ChunkID: id, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Close releases resources.
func (e *SearchEngine) Close() error {
	return nil
}

// Tokenize lower-cases text and splits it into letter/digit runs,
// dropping single-character tokens and common stop words.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 || stopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

var stopWords = map[string]bool{
	"the": true, "and": true, "of": true, "to": true, "in": true, "a": true,
	"is": true, "for": true, "on": true, "by": true, "or": true, "be": true,
	"what": true, "which": true, "does": true, "do": true, "are": true,
	"with": true, "this": true, "that": true, "shall": true, "any": true,
}
