package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestTopK(t *testing.T) {
	hits := []driven.VectorHit{
		{ChunkID: "c", Similarity: 0.5},
		{ChunkID: "a", Similarity: 0.9},
		{ChunkID: "d", Similarity: 0.5},
		{ChunkID: "b", Similarity: 0.7},
	}

	got := TopK(hits, 3)

	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ChunkID)
	assert.Equal(t, "b", got[1].ChunkID)
	assert.Equal(t, "c", got[2].ChunkID)
}

func TestTopK_KLargerThanHits(t *testing.T) {
	got := TopK([]driven.VectorHit{{ChunkID: "a", Similarity: 1}}, 10)
	assert.Len(t, got, 1)
}

func TestEncodeDecode(t *testing.T) {
	in := []float32{0.25, -1.5, 3.0e-7, 0}

	out, err := Decode(Encode(in))

	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Len(t, Encode(in), 16)
}

func TestDecode_BadLength(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	assert.Error(t, err)
}
