package ai

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
)

// Ensure the rate-limited wrappers implement the interfaces.
var (
	_ driven.EmbeddingService = (*RateLimitedEmbedding)(nil)
	_ driven.LLMService       = (*RateLimitedLLM)(nil)
)

// newLimiter builds a token bucket allowing rps sustained calls with a
// burst of at least one.
func newLimiter(rps float64) *rate.Limiter {
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// RateLimitedEmbedding throttles calls to a wrapped embedding service.
// Each Embed or EmbedBatch call consumes one token.
type RateLimitedEmbedding struct {
	inner   driven.EmbeddingService
	limiter *rate.Limiter
}

// NewRateLimitedEmbedding wraps inner. A non-positive rps returns inner unchanged.
func NewRateLimitedEmbedding(inner driven.EmbeddingService, rps float64) driven.EmbeddingService {
	if inner == nil || rps <= 0 {
		return inner
	}
	return &RateLimitedEmbedding{inner: inner, limiter: newLimiter(rps)}
}

// Embed waits for a token, then embeds text.
func (r *RateLimitedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", domain.ErrEmbeddingService, err)
	}
	return r.inner.Embed(ctx, text)
}

// EmbedBatch waits for a token, then embeds the batch.
func (r *RateLimitedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", domain.ErrEmbeddingService, err)
	}
	return r.inner.EmbedBatch(ctx, texts)
}

// Dimensions returns the wrapped service's vector size.
func (r *RateLimitedEmbedding) Dimensions() int { return r.inner.Dimensions() }

// ModelName returns the wrapped service's model.
func (r *RateLimitedEmbedding) ModelName() string { return r.inner.ModelName() }

// Ping is not throttled.
func (r *RateLimitedEmbedding) Ping(ctx context.Context) error { return r.inner.Ping(ctx) }

// Close closes the wrapped service.
func (r *RateLimitedEmbedding) Close() error { return r.inner.Close() }

// RateLimitedLLM throttles calls to a wrapped LLM service.
type RateLimitedLLM struct {
	inner   driven.LLMService
	limiter *rate.Limiter
}

// NewRateLimitedLLM wraps inner. A non-positive rps returns inner unchanged.
func NewRateLimitedLLM(inner driven.LLMService, rps float64) driven.LLMService {
	if inner == nil || rps <= 0 {
		return inner
	}
	return &RateLimitedLLM{inner: inner, limiter: newLimiter(rps)}
}

// Generate waits for a token, then generates.
func (r *RateLimitedLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm rate limit wait: %w", err)
	}
	return r.inner.Generate(ctx, prompt, opts)
}

// Chat waits for a token, then chats.
func (r *RateLimitedLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm rate limit wait: %w", err)
	}
	return r.inner.Chat(ctx, messages, opts)
}

// ModelName returns the wrapped service's model.
func (r *RateLimitedLLM) ModelName() string { return r.inner.ModelName() }

// Ping is not throttled.
func (r *RateLimitedLLM) Ping(ctx context.Context) error { return r.inner.Ping(ctx) }

// Close closes the wrapped service.
func (r *RateLimitedLLM) Close() error { return r.inner.Close() }
