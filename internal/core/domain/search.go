package domain

// LowConfidenceThreshold is the ceiling for answers without grounding.
// Ungrounded answers always score strictly below it.
const LowConfidenceThreshold = 20

// NoAnswerMessage is returned when nothing relevant was retrieved.
const NoAnswerMessage = "I could not find an answer to that in the indexed lease documents."

// Route is the classified intent of a question.
type Route string

// Available routes.
const (
	// RouteRetrieval answers open-ended questions from retrieved chunks.
	// It is the default for ambiguous questions.
	RouteRetrieval Route = "retrieval"

	// RouteAnalytics answers from structured key-terms records, without retrieval.
	RouteAnalytics Route = "analytics"

	// RouteComparison compares clauses across leases.
	RouteComparison Route = "comparison"
)

// IsValid returns true if the route is recognised.
func (r Route) IsValid() bool {
	switch r {
	case RouteRetrieval, RouteAnalytics, RouteComparison:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (r Route) String() string {
	return string(r)
}

// ParseRoute maps a label to a Route, defaulting to RouteRetrieval.
func ParseRoute(label string) (Route, bool) {
	r := Route(label)
	if r.IsValid() {
		return r, true
	}
	return RouteRetrieval, false
}

// RetrievedChunk is one retrieval result.
type RetrievedChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Lease is the chunk's parent lease.
	Lease Lease

	// Score is the reranker relevance score in [0, 1].
	Score float64

	// VectorScore is the stage-one similarity (or fused score).
	VectorScore float64

	// Rank is the 1-based stage-one rank.
	Rank int
}

// Answer is the response to a question.
type Answer struct {
	// Answer is the composed answer text.
	Answer string `json:"answer"`

	// Route is the route that produced the answer.
	Route Route `json:"route"`

	// Confidence is an ordinal 0..100 grounding signal.
	Confidence int `json:"confidence"`

	// Sources are the distinct lease names backing the answer,
	// in first-relevance order.
	Sources []string `json:"sources"`
}

// Grounded reports whether the answer scored at or above the low threshold.
func (a Answer) Grounded() bool {
	return a.Confidence >= LowConfidenceThreshold
}

// NoAnswer returns the structured response for an ungrounded question.
func NoAnswer(route Route) *Answer {
	return &Answer{
		Answer:     NoAnswerMessage,
		Route:      route,
		Confidence: 0,
		Sources:    []string{},
	}
}
