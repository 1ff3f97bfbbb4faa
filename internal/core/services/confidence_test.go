package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

func retrieved(doc string, score float64) domain.RetrievedChunk {
	return domain.RetrievedChunk{
		Chunk: domain.Chunk{DocumentID: doc},
		Lease: domain.Lease{ID: doc, Name: doc},
		Score: score,
	}
}

func TestEvidenceScore(t *testing.T) {
	assert.Equal(t, 0.0, evidenceScore(nil))

	// One lease, perfect scores.
	all := []domain.RetrievedChunk{retrieved("a", 1), retrieved("a", 1), retrieved("a", 1)}
	assert.InDelta(t, 100, evidenceScore(all), 1e-9)

	// 60*0.8 + 25*mean(0.8,0.4,0.3) + 15*(2/4)
	mixed := []domain.RetrievedChunk{
		retrieved("a", 0.8), retrieved("b", 0.4), retrieved("a", 0.3), retrieved("c", 0.1),
	}
	assert.InDelta(t, 48+12.5+7.5, evidenceScore(mixed), 1e-9)
}

func TestEvidenceScore_ClampsScores(t *testing.T) {
	results := []domain.RetrievedChunk{retrieved("a", 7.5), retrieved("a", -2)}
	assert.InDelta(t, 60+12.5+15, evidenceScore(results), 1e-9)
}

func TestFinalConfidence(t *testing.T) {
	n := func(v int) *int { return &v }

	assert.Equal(t, 50, finalConfidence(50, nil, false))
	// Self-report is capped at evidence + 20.
	assert.Equal(t, 60, finalConfidence(50, n(95), false))
	assert.Equal(t, 45, finalConfidence(50, n(40), false))
	// "Not in the documents" answers are capped.
	assert.Equal(t, notInDocsCap, finalConfidence(90, n(90), true))
	assert.Equal(t, 10, finalConfidence(10, nil, true))
	assert.Equal(t, 100, finalConfidence(120, nil, false))
	assert.Equal(t, 0, finalConfidence(-5, nil, false))
}

func TestSplitSelfReport(t *testing.T) {
	text, n := splitSelfReport("The deposit is $5,000 [1].\n\n[CONFIDENCE: 85%]")
	require.NotNil(t, n)
	assert.Equal(t, 85, *n)
	assert.Equal(t, "The deposit is $5,000 [1].", text)

	text, n = splitSelfReport("confidence: 140")
	require.NotNil(t, n)
	assert.Equal(t, 100, *n)
	assert.Empty(t, text)

	text, n = splitSelfReport("No marker here.")
	assert.Nil(t, n)
	assert.Equal(t, "No marker here.", text)
}
