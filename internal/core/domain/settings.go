package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend selects the vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendSQLite stores vectors beside the lease records.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendMemory keeps vectors in process memory only.
	VectorBackendMemory VectorBackend = "memory"

	// VectorBackendQdrant uses a Qdrant server over REST.
	VectorBackendQdrant VectorBackend = "qdrant"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendSQLite, VectorBackendMemory, VectorBackendQdrant:
		return true
	default:
		return false
	}
}

// Description returns a human-readable description of the backend.
func (b VectorBackend) Description() string {
	switch b {
	case VectorBackendSQLite:
		return "SQLite (local, persistent)"
	case VectorBackendMemory:
		return "Memory (local, ephemeral)"
	case VectorBackendQdrant:
		return "Qdrant (remote)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// RequestsPerSecond throttles embedding calls. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// RequestsPerSecond throttles LLM calls. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorSettings holds vector index configuration.
type VectorSettings struct {
	// Backend selects the vector index implementation.
	Backend VectorBackend

	// QdrantURL is the Qdrant REST endpoint.
	QdrantURL string

	// QdrantAPIKey is sent as the api-key header when set.
	QdrantAPIKey string

	// QdrantCollection is the collection holding lease chunks.
	QdrantCollection string
}

// ChunkingSettings configures the chunk pipeline.
type ChunkingSettings struct {
	// Size is the target chunk size in bytes.
	Size int

	// Overlap is the number of bytes shared with the previous chunk.
	Overlap int

	// MinSize is the length below which a trailing chunk is merged
	// into its predecessor.
	MinSize int
}

// RetrievalSettings configures query-time retrieval.
type RetrievalSettings struct {
	// KRetrieve is the stage-one candidate count.
	KRetrieve int

	// KFinal is the number of chunks kept after reranking.
	KFinal int

	// Timeout bounds a single retrieval.
	Timeout time.Duration
}

// IngestionSettings configures processing runs.
type IngestionSettings struct {
	// EmbedBatchSize is the number of chunks embedded per request.
	EmbedBatchSize int

	// StageTimeout bounds each network-bound stage.
	StageTimeout time.Duration
}

// WatchSettings configures the filesystem watcher.
type WatchSettings struct {
	// Dir is the directory watched for new leases.
	Dir string

	// ProcessedDir receives files after successful processing. Empty disables moving.
	ProcessedDir string

	// AutoMode processes admitted files automatically in this mode. Empty disables.
	AutoMode IngestionMode
}

// AppSettings holds all application settings.
type AppSettings struct {
	// DataDir holds the database and prompts.
	DataDir string

	Embedding EmbeddingSettings
	LLM       LLMSettings
	Vector    VectorSettings
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Ingestion IngestionSettings
	Watch     WatchSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured; without them ingestion still
// loads and chunks, and queries degrade to extractive answers.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{},
		LLM:       LLMSettings{},
		Vector: VectorSettings{
			Backend:          VectorBackendSQLite,
			QdrantURL:        "http://localhost:6333",
			QdrantCollection: "leases",
		},
		Chunking: ChunkingSettings{
			Size:    800,
			Overlap: 100,
			MinSize: 100,
		},
		Retrieval: RetrievalSettings{
			KRetrieve: 40,
			KFinal:    10,
			Timeout:   30 * time.Second,
		},
		Ingestion: IngestionSettings{
			EmbedBatchSize: 50,
			StageTimeout:   5 * time.Minute,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds chunk pipeline configuration.
// Uses generic map-based config so processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor builds the chunk pipeline configuration from settings.
func PipelineConfigFor(c ChunkingSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker", "orphans", "sections"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": c.Size,
				"overlap":    c.Overlap,
			},
			"orphans": {
				"min_size": c.MinSize,
			},
		},
	}
}

// DefaultPipelineConfig returns the pipeline configuration for default settings.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfigFor(DefaultAppSettings().Chunking)
}
