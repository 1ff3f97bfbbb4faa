// Package lexical provides a deterministic reranker that scores retrieval
// candidates by their lexical overlap with the query.
//
// A candidate's score combines:
//   - term coverage: the share of query terms present in the chunk
//   - phrase bonus: the share of adjacent query term pairs present in order
//   - numeric match: the share of numbers in the query found in the chunk
//   - vector prior: the stage-one similarity
//
// A chunk whose negation disagrees with the query's is penalised.
package lexical

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// Weights holds the score component weights. They should sum to 1.
type Weights struct {
	Coverage float64
	Phrase   float64
	Numeric  float64
	Prior    float64

	// NegationPenalty multiplies the score on a negation mismatch.
	NegationPenalty float64
}

// DefaultWeights returns the weights used by New.
func DefaultWeights() Weights {
	return Weights{
		Coverage:        0.45,
		Phrase:          0.15,
		Numeric:         0.10,
		Prior:           0.30,
		NegationPenalty: 0.85,
	}
}

// Reranker is a stateless lexical reranker.
type Reranker struct {
	weights Weights
}

// New creates a reranker with DefaultWeights.
func New() *Reranker {
	return &Reranker{weights: DefaultWeights()}
}

// NewWithWeights creates a reranker with custom weights.
func NewWithWeights(w Weights) *Reranker {
	return &Reranker{weights: w}
}

var (
	wordPattern   = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}$.,%'-]*`)
	numberPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "do": true, "does": true, "for": true, "from": true,
	"how": true, "i": true, "in": true, "is": true, "it": true, "of": true,
	"on": true, "or": true, "the": true, "this": true, "to": true, "what": true,
	"when": true, "where": true, "which": true, "who": true, "with": true,
	"there": true, "their": true, "any": true, "me": true, "tell": true,
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "without": true, "except": true,
	"cannot": true, "nor": true, "neither": true, "won't": true,
	"isn't": true, "doesn't": true, "don't": true,
}

// Rerank scores candidates and returns them best first.
// Ties are broken by stage-one rank, then chunk ID.
func (r *Reranker) Rerank(
	ctx context.Context,
	query string,
	candidates []domain.RetrievedChunk,
) ([]domain.RetrievedChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := analyse(query)
	for i := range candidates {
		candidates[i].Score = r.score(q, candidates[i])
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.Chunk.ID < b.Chunk.ID
	})
	return candidates, nil
}

type analysis struct {
	terms   []string
	pairs   []string
	numbers []string
	negated bool
}

func analyse(text string) analysis {
	var a analysis
	seen := make(map[string]bool)
	var ordered []string

	for _, raw := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		w := strings.TrimRight(raw, ".,'-")
		if negations[w] {
			a.negated = true
			continue
		}
		if w == "" || stopwords[w] {
			continue
		}
		ordered = append(ordered, w)
		if !seen[w] {
			seen[w] = true
			a.terms = append(a.terms, w)
		}
	}
	for i := 1; i < len(ordered); i++ {
		a.pairs = append(a.pairs, ordered[i-1]+" "+ordered[i])
	}
	for _, n := range numberPattern.FindAllString(text, -1) {
		a.numbers = append(a.numbers, strings.ReplaceAll(n, ",", ""))
	}
	return a
}

func (r *Reranker) score(q analysis, c domain.RetrievedChunk) float64 {
	content := strings.ToLower(c.Chunk.Section + "\n" + c.Chunk.Content)
	doc := analyse(content)
	docTerms := make(map[string]bool, len(doc.terms))
	for _, t := range doc.terms {
		docTerms[t] = true
	}
	joined := " " + strings.Join(flatten(content), " ") + " "

	coverage := fraction(q.terms, func(t string) bool { return docTerms[t] })
	phrase := fraction(q.pairs, func(p string) bool { return strings.Contains(joined, " "+p+" ") })

	w := r.weights
	coverageWeight := w.Coverage
	numeric := 0.0
	if len(q.numbers) > 0 {
		docNumbers := make(map[string]bool, len(doc.numbers))
		for _, n := range doc.numbers {
			docNumbers[n] = true
		}
		numeric = fraction(q.numbers, func(n string) bool { return docNumbers[n] })
	} else {
		coverageWeight += w.Numeric
	}

	s := coverageWeight*coverage + w.Phrase*phrase + w.Numeric*numeric + w.Prior*clamp(c.VectorScore)
	if len(q.terms) > 0 && q.negated != doc.negated {
		s *= w.NegationPenalty
	}
	return clamp(s)
}

// flatten returns the content's words in order, filtered the same way
// as query terms so adjacent query pairs line up.
func flatten(content string) []string {
	words := wordPattern.FindAllString(content, -1)
	out := words[:0]
	for _, w := range words {
		w = strings.TrimRight(w, ".,'-")
		if w != "" && !stopwords[w] && !negations[w] {
			out = append(out, w)
		}
	}
	return out
}

func fraction(items []string, match func(string) bool) float64 {
	if len(items) == 0 {
		return 0
	}
	hit := 0
	for _, it := range items {
		if match(it) {
			hit++
		}
	}
	return float64(hit) / float64(len(items))
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
