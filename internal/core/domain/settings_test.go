package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAIProvider_IsValid tests all valid and invalid providers
func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider AIProvider
		expected bool
	}{
		{name: "ollama is valid", provider: AIProviderOllama, expected: true},
		{name: "openai is valid", provider: AIProviderOpenAI, expected: true},
		{name: "anthropic is valid", provider: AIProviderAnthropic, expected: true},
		{name: "empty string is invalid", provider: AIProvider(""), expected: false},
		{name: "gemini is invalid", provider: AIProvider("gemini"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

// TestAIProvider_RequiresAPIKey tests API key requirements
func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())
	assert.True(t, AIProviderOllama.IsLocal())
}

// TestEmbeddingSettings_IsConfigured tests embedding configuration checks
func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{"unconfigured", EmbeddingSettings{}, false},
		{"ollama without key", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk-test"}, true},
		{"anthropic has no embeddings", EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

// TestLLMSettings_IsConfigured tests LLM configuration checks
func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.False(t, LLMSettings{}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderAnthropic}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
}

// TestVectorBackend_IsValid tests vector backend validation
func TestVectorBackend_IsValid(t *testing.T) {
	for _, b := range []VectorBackend{VectorBackendSQLite, VectorBackendMemory, VectorBackendQdrant} {
		assert.True(t, b.IsValid(), b)
		assert.NotEqual(t, unknownDescription, b.Description())
	}
	assert.False(t, VectorBackend("pinecone").IsValid())
	assert.Equal(t, unknownDescription, VectorBackend("pinecone").Description())
}

// TestDefaultAppSettings tests default values
func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.False(t, s.Embedding.IsConfigured())
	assert.False(t, s.LLM.IsConfigured())
	assert.Equal(t, VectorBackendSQLite, s.Vector.Backend)
	assert.Equal(t, 800, s.Chunking.Size)
	assert.Equal(t, 100, s.Chunking.Overlap)
	assert.Equal(t, 40, s.Retrieval.KRetrieve)
	assert.Equal(t, 10, s.Retrieval.KFinal)
	assert.Equal(t, 30*time.Second, s.Retrieval.Timeout)
	assert.Equal(t, 50, s.Ingestion.EmbedBatchSize)
}

// TestDefaultModels tests that every provider has a default model
func TestDefaultModels(t *testing.T) {
	for _, p := range AllEmbeddingProviders() {
		model, ok := DefaultEmbeddingModels()[p]
		require.True(t, ok, p)
		_, known := EmbeddingDimensions()[model]
		assert.True(t, known, model)
	}
	for _, p := range AllLLMProviders() {
		assert.NotEmpty(t, DefaultLLMModels()[p], p)
	}
}

// TestPipelineConfigFor tests pipeline config derivation
func TestPipelineConfigFor(t *testing.T) {
	cfg := PipelineConfigFor(ChunkingSettings{Size: 500, Overlap: 50, MinSize: 40})

	assert.Equal(t, []string{"chunker", "orphans", "sections"}, cfg.Processors)
	assert.Equal(t, 500, cfg.GetProcessorConfig("chunker")["chunk_size"])
	assert.Equal(t, 50, cfg.GetProcessorConfig("chunker")["overlap"])
	assert.Equal(t, 40, cfg.GetProcessorConfig("orphans")["min_size"])
	assert.Nil(t, cfg.GetProcessorConfig("sections"))

	var empty PipelineConfig
	assert.Nil(t, empty.GetProcessorConfig("chunker"))
}
