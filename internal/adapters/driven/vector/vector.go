// Package vector holds helpers shared by the vector index backends:
// cosine similarity, top-k selection and the little-endian float32
// encoding used to persist embeddings.
package vector

import (
	"encoding/binary"
	"errors"
	"math"
	"sort"

	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
)

// ErrDimensionMismatch is returned when vectors of different sizes are compared or stored.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Cosine returns the cosine similarity of a and b.
// Zero vectors and vectors of different length score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TopK sorts hits by non-increasing similarity and truncates to k.
// Ties are broken by chunk ID so results are deterministic.
func TopK(hits []driven.VectorHit, k int) []driven.VectorHit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if k >= 0 && k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

// Encode serialises a vector as little-endian float32 values.
func Encode(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode parses a blob written by Encode.
func Decode(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, errors.New("vector blob length is not a multiple of 4")
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
