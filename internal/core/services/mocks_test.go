package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockLLMService implements driven.LLMService for testing.
// respond decides the reply to each chat call.
type mockLLMService struct {
	mu      sync.Mutex
	respond func(messages []driven.ChatMessage, opts driven.ChatOptions) (string, error)
	calls   []string
}

// reply returns a mock that always answers with text.
func reply(text string) *mockLLMService {
	return &mockLLMService{respond: func([]driven.ChatMessage, driven.ChatOptions) (string, error) {
		return text, nil
	}}
}

// failing returns a mock whose every call fails with err.
func failing(err error) *mockLLMService {
	return &mockLLMService{respond: func([]driven.ChatMessage, driven.ChatOptions) (string, error) {
		return "", err
	}}
}

func (m *mockLLMService) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	return m.Chat(ctx, []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}, driven.ChatOptions{})
}

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, messages[len(messages)-1].Content)
	m.mu.Unlock()
	return m.respond(messages, opts)
}

func (m *mockLLMService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockLLMService) ModelName() string {
	return "mock-llm"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return nil
}

func (m *mockLLMService) Close() error {
	return nil
}

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Vectors are derived from the text so similar texts score alike.
type mockEmbeddingService struct {
	embedErr error
	batches  int
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return fakeVector(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batches++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return len(fakeVocabulary) + 1
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

var fakeVocabulary = []string{"rent", "deposit", "insurance", "term", "assign", "repair", "default", "use", "lease"}

// fakeVector counts vocabulary words, with a constant component so no
// vector is zero.
func fakeVector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(fakeVocabulary)+1)
	for i, w := range fakeVocabulary {
		v[i] = float32(strings.Count(lower, w))
	}
	v[len(fakeVocabulary)] = 0.1
	return v
}

// mockVectorIndex implements driven.VectorIndex with scripted failures.
type mockVectorIndex struct {
	hits      []driven.VectorHit
	searchErr error
	upsertErr error
}

func (m *mockVectorIndex) Upsert(_ context.Context, _ string, _ []driven.VectorRecord) error {
	return m.upsertErr
}

func (m *mockVectorIndex) Delete(_ context.Context, _ string) error {
	return nil
}

func (m *mockVectorIndex) Search(_ context.Context, _ []float32, k int) ([]driven.VectorHit, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.hits[:min(k, len(m.hits))], nil
}

func (m *mockVectorIndex) Count(_ context.Context) (int, error) {
	return len(m.hits), nil
}

func (m *mockVectorIndex) Close() error {
	return nil
}

// mockSearchEngine implements driven.SearchEngine with scripted results.
type mockSearchEngine struct {
	hits      []driven.SearchHit
	searchErr error
}

func (m *mockSearchEngine) Index(_ context.Context, _ domain.Chunk) error {
	return nil
}

func (m *mockSearchEngine) DeleteDocument(_ context.Context, _ string) error {
	return nil
}

func (m *mockSearchEngine) Search(_ context.Context, _ string, limit int) ([]driven.SearchHit, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.hits[:min(limit, len(m.hits))], nil
}

func (m *mockSearchEngine) Close() error {
	return nil
}

// mockLoaderRegistry implements driven.LoaderRegistry over in-memory texts.
type mockLoaderRegistry struct {
	mu    sync.Mutex
	texts map[string]string
	err   error
}

func newMockLoaders() *mockLoaderRegistry {
	return &mockLoaderRegistry{texts: make(map[string]string)}
}

func (m *mockLoaderRegistry) set(path, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts[path] = text
}

func (m *mockLoaderRegistry) Load(_ context.Context, path string) (*domain.NormalizedText, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	text, ok := m.texts[path]
	if !ok {
		return nil, domain.ErrUnsupportedFormat
	}
	return &domain.NormalizedText{
		Text:        text,
		Pages:       []domain.PageSpan{{Number: 1, Start: 0, End: len(text)}},
		Fingerprint: "fp-" + text,
		Format:      strings.TrimPrefix(filepath.Ext(path), "."),
	}, nil
}

func (m *mockLoaderRegistry) Register(_ driven.Loader) {}

func (m *mockLoaderRegistry) Supports(path string) bool {
	_, ok := m.texts[path]
	return ok
}

func (m *mockLoaderRegistry) SupportedExtensions() []string {
	return []string{".pdf", ".docx"}
}

var chunkSeq atomic.Int64

// paragraphPipeline implements driven.PostProcessorPipeline by cutting
// the text at blank lines.
type paragraphPipeline struct {
	err error
}

func (p *paragraphPipeline) Process(_ context.Context, text *domain.NormalizedText) ([]domain.Chunk, error) {
	if p.err != nil {
		return nil, p.err
	}
	var chunks []domain.Chunk
	offset := 0
	for _, para := range strings.Split(text.Text, "\n\n") {
		if strings.TrimSpace(para) != "" {
			chunks = append(chunks, domain.Chunk{
				ID:          fmt.Sprintf("chunk-%d", chunkSeq.Add(1)),
				Ordinal:     len(chunks),
				Content:     para,
				StartOffset: offset,
				EndOffset:   offset + len(para),
				Page:        1,
			})
		}
		offset += len(para) + 2
	}
	return chunks, nil
}

// mockPromptStore implements driven.PromptStore.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("prompt not found")
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// mockAIValidator implements driven.AIConfigValidator.
type mockAIValidator struct {
	embeddingErr error
	llmErr       error
	lastLLM      *domain.LLMSettings
}

func (m *mockAIValidator) ValidateEmbedding(_ context.Context, _ *domain.EmbeddingSettings) error {
	return m.embeddingErr
}

func (m *mockAIValidator) ValidateLLM(_ context.Context, s *domain.LLMSettings) error {
	m.lastLLM = s
	return m.llmErr
}
