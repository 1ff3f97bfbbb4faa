package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

// notInDocsCap bounds the confidence of answers that report missing information.
const notInDocsCap = 30

// notInDocsPhrase is the refusal the answer prompt asks the model to use.
const notInDocsPhrase = "do not contain this information"

var selfReportPattern = regexp.MustCompile(`(?i)\[?\s*confidence\s*:\s*(\d{1,3})\s*%?\s*\]?`)

// evidenceScore rates retrieval results on a 0..100 scale from the top
// reranker score, the mean of the top three and how strongly the results
// concentrate on the top lease.
func evidenceScore(results []domain.RetrievedChunk) float64 {
	if len(results) == 0 {
		return 0
	}
	top := clamp01(results[0].Score)

	n := min(3, len(results))
	var sum float64
	for _, r := range results[:n] {
		sum += clamp01(r.Score)
	}
	mean := sum / float64(n)

	topLease := results[0].Chunk.DocumentID
	same := 0
	for _, r := range results {
		if r.Chunk.DocumentID == topLease {
			same++
		}
	}
	share := float64(same) / float64(len(results))

	return 60*top + 25*mean + 15*share
}

// finalConfidence blends evidence with the model's self-reported
// confidence. The self-report can raise the score by at most 20 points
// above the evidence.
func finalConfidence(evidence float64, selfReport *int, notInDocs bool) int {
	score := evidence
	if selfReport != nil {
		reported := math.Min(float64(*selfReport), evidence+20)
		score = 0.5*evidence + 0.5*reported
	}
	c := clampConfidence(int(math.Round(score)))
	if notInDocs && c > notInDocsCap {
		c = notInDocsCap
	}
	return c
}

// splitSelfReport removes a [CONFIDENCE: N%] marker from the answer and
// returns the cleaned text and the reported value.
func splitSelfReport(answer string) (string, *int) {
	loc := selfReportPattern.FindAllStringSubmatchIndex(answer, -1)
	if len(loc) == 0 {
		return strings.TrimSpace(answer), nil
	}
	last := loc[len(loc)-1]
	n, err := strconv.Atoi(answer[last[2]:last[3]])
	cleaned := strings.TrimSpace(answer[:last[0]] + answer[last[1]:])
	if err != nil {
		return cleaned, nil
	}
	n = clampConfidence(n)
	return cleaned, &n
}

func clampConfidence(c int) int {
	return max(0, min(100, c))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
