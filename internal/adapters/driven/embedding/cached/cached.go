// Package cached wraps an embedding service with an in-memory cache of
// single-text embeddings. Repeated questions skip the provider round trip.
package cached

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default cache lifetimes.
const (
	DefaultTTL             = 30 * time.Minute
	DefaultCleanupInterval = 10 * time.Minute
)

// EmbeddingService caches Embed results keyed by model and text.
// EmbedBatch is used for ingestion and passes through uncached.
type EmbeddingService struct {
	inner driven.EmbeddingService
	cache *gocache.Cache
}

// New wraps inner with a cache. Zero durations select the defaults.
func New(inner driven.EmbeddingService, ttl, cleanup time.Duration) *EmbeddingService {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if cleanup == 0 {
		cleanup = DefaultCleanupInterval
	}
	return &EmbeddingService{
		inner: inner,
		cache: gocache.New(ttl, cleanup),
	}
}

// Embed returns the cached vector for text or asks the wrapped service.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	key := s.key(text)
	if v, found := s.cache.Get(key); found {
		return copyVector(v.([]float32)), nil
	}

	vec, err := s.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, copyVector(vec))
	return vec, nil
}

// EmbedBatch delegates to the wrapped service.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return s.inner.EmbedBatch(ctx, texts)
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping delegates to the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Len returns the number of cached entries.
func (s *EmbeddingService) Len() int {
	return s.cache.ItemCount()
}

// Close flushes the cache and closes the wrapped service.
func (s *EmbeddingService) Close() error {
	s.cache.Flush()
	return s.inner.Close()
}

func (s *EmbeddingService) key(text string) string {
	sum := sha256.Sum256([]byte(s.inner.ModelName() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func copyVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
