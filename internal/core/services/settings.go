package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyDataDir = "data_dir"

	KeyEmbedProvider = "embedding.provider"
	KeyEmbedModel    = "embedding.model"
	KeyEmbedBaseURL  = "embedding.base_url"
	KeyEmbedAPIKey   = "embedding.api_key"
	KeyEmbedRPS      = "embedding.requests_per_second"

	KeyLLMProvider = "llm.provider"
	KeyLLMModel    = "llm.model"
	KeyLLMBaseURL  = "llm.base_url"
	KeyLLMAPIKey   = "llm.api_key"
	KeyLLMRPS      = "llm.requests_per_second"

	KeyVectorBackend    = "vector.backend"
	KeyQdrantURL        = "vector.qdrant_url"
	KeyQdrantAPIKey     = "vector.qdrant_api_key"
	KeyQdrantCollection = "vector.qdrant_collection"

	KeyChunkSize    = "chunking.size"
	KeyChunkOverlap = "chunking.overlap"
	KeyChunkMinSize = "chunking.min_size"

	KeyKRetrieve        = "retrieval.k_retrieve"
	KeyKFinal           = "retrieval.k_final"
	KeyRetrievalTimeout = "retrieval.timeout"

	KeyEmbedBatchSize = "ingestion.embed_batch_size"
	KeyStageTimeout   = "ingestion.stage_timeout"

	KeyWatchDir          = "watch.dir"
	KeyWatchProcessedDir = "watch.processed_dir"
	KeyWatchAutoMode     = "watch.auto_mode"
)

// defaultOllamaURL is used for local providers without a base URL.
const defaultOllamaURL = "http://localhost:11434"

// SettingsService resolves application settings from a config store.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get resolves current settings. Unset or unparsable values take their defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		DataDir: s.getString(KeyDataDir, d.DataDir),
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(KeyEmbedProvider, d.Embedding.Provider),
			Model:             s.configStore.GetString(KeyEmbedModel),
			BaseURL:           s.configStore.GetString(KeyEmbedBaseURL),
			APIKey:            s.configStore.GetString(KeyEmbedAPIKey),
			RequestsPerSecond: s.configStore.GetFloat(KeyEmbedRPS),
		},
		LLM: domain.LLMSettings{
			Provider:          s.getProvider(KeyLLMProvider, d.LLM.Provider),
			Model:             s.configStore.GetString(KeyLLMModel),
			BaseURL:           s.configStore.GetString(KeyLLMBaseURL),
			APIKey:            s.configStore.GetString(KeyLLMAPIKey),
			RequestsPerSecond: s.configStore.GetFloat(KeyLLMRPS),
		},
		Vector: domain.VectorSettings{
			Backend:          domain.VectorBackend(s.getString(KeyVectorBackend, string(d.Vector.Backend))),
			QdrantURL:        s.getString(KeyQdrantURL, d.Vector.QdrantURL),
			QdrantAPIKey:     s.configStore.GetString(KeyQdrantAPIKey),
			QdrantCollection: s.getString(KeyQdrantCollection, d.Vector.QdrantCollection),
		},
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(KeyChunkSize, d.Chunking.Size),
			Overlap: s.getInt(KeyChunkOverlap, d.Chunking.Overlap),
			MinSize: s.getInt(KeyChunkMinSize, d.Chunking.MinSize),
		},
		Retrieval: domain.RetrievalSettings{
			KRetrieve: s.getInt(KeyKRetrieve, d.Retrieval.KRetrieve),
			KFinal:    s.getInt(KeyKFinal, d.Retrieval.KFinal),
			Timeout:   s.getDuration(KeyRetrievalTimeout, d.Retrieval.Timeout),
		},
		Ingestion: domain.IngestionSettings{
			EmbedBatchSize: s.getInt(KeyEmbedBatchSize, d.Ingestion.EmbedBatchSize),
			StageTimeout:   s.getDuration(KeyStageTimeout, d.Ingestion.StageTimeout),
		},
		Watch: domain.WatchSettings{
			Dir:          s.configStore.GetString(KeyWatchDir),
			ProcessedDir: s.configStore.GetString(KeyWatchProcessedDir),
			AutoMode:     domain.IngestionMode(s.configStore.GetString(KeyWatchAutoMode)),
		},
	}

	fillProviderDefaults(&settings.Embedding.Model, &settings.Embedding.BaseURL,
		settings.Embedding.Provider, domain.DefaultEmbeddingModels())
	fillProviderDefaults(&settings.LLM.Model, &settings.LLM.BaseURL,
		settings.LLM.Provider, domain.DefaultLLMModels())

	return settings, nil
}

// fillProviderDefaults sets the default model, and the local base URL for
// local providers, when they are unset.
func fillProviderDefaults(model, baseURL *string, provider domain.AIProvider, models map[domain.AIProvider]string) {
	if !provider.IsValid() {
		return
	}
	if *model == "" {
		*model = models[provider]
	}
	if provider.IsLocal() && *baseURL == "" {
		*baseURL = defaultOllamaURL
	}
}

// DefaultConfigValues returns the default settings as a flat map of
// config keys, for layering under user configuration.
func DefaultConfigValues() map[string]any {
	d := domain.DefaultAppSettings()
	return map[string]any{
		KeyVectorBackend:    string(d.Vector.Backend),
		KeyQdrantURL:        d.Vector.QdrantURL,
		KeyQdrantCollection: d.Vector.QdrantCollection,
		KeyChunkSize:        d.Chunking.Size,
		KeyChunkOverlap:     d.Chunking.Overlap,
		KeyChunkMinSize:     d.Chunking.MinSize,
		KeyKRetrieve:        d.Retrieval.KRetrieve,
		KeyKFinal:           d.Retrieval.KFinal,
		KeyRetrievalTimeout: d.Retrieval.Timeout.String(),
		KeyEmbedBatchSize:   d.Ingestion.EmbedBatchSize,
		KeyStageTimeout:     d.Ingestion.StageTimeout.String(),
	}
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Validate checks settings for values the services cannot run with.
// All problems are reported together.
func (s *SettingsService) Validate(settings *domain.AppSettings) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidInput}, args...)...))
	}

	if p := settings.Embedding.Provider; p != "" {
		switch {
		case !p.IsValid():
			add("unknown embedding provider %q", p)
		case p == domain.AIProviderAnthropic:
			add("provider %s does not support embeddings", p)
		case p.RequiresAPIKey() && settings.Embedding.APIKey == "":
			add("API key required for %s embeddings", p)
		}
	}
	if p := settings.LLM.Provider; p != "" {
		switch {
		case !p.IsValid():
			add("unknown LLM provider %q", p)
		case p.RequiresAPIKey() && settings.LLM.APIKey == "":
			add("API key required for %s LLM", p)
		}
	}
	if !settings.Vector.Backend.IsValid() {
		add("unknown vector backend %q", settings.Vector.Backend)
	}
	if settings.Vector.Backend == domain.VectorBackendQdrant && settings.Vector.QdrantURL == "" {
		add("qdrant backend requires %s", KeyQdrantURL)
	}

	c := settings.Chunking
	if c.Size <= 0 {
		add("%s must be positive, got %d", KeyChunkSize, c.Size)
	}
	if c.Overlap < 0 || (c.Size > 0 && c.Overlap >= c.Size) {
		add("%s must be between 0 and %s, got %d", KeyChunkOverlap, KeyChunkSize, c.Overlap)
	}
	if c.MinSize < 0 {
		add("%s must not be negative, got %d", KeyChunkMinSize, c.MinSize)
	}

	r := settings.Retrieval
	if r.KFinal <= 0 || r.KRetrieve < r.KFinal {
		add("retrieval requires 0 < %s <= %s, got %d and %d", KeyKFinal, KeyKRetrieve, r.KFinal, r.KRetrieve)
	}
	if r.Timeout <= 0 {
		add("%s must be positive", KeyRetrievalTimeout)
	}
	if settings.Ingestion.EmbedBatchSize <= 0 {
		add("%s must be positive, got %d", KeyEmbedBatchSize, settings.Ingestion.EmbedBatchSize)
	}
	if settings.Ingestion.StageTimeout <= 0 {
		add("%s must be positive", KeyStageTimeout)
	}
	if m := settings.Watch.AutoMode; m != "" && !m.IsValid() {
		add("unknown %s %q", KeyWatchAutoMode, m)
	}

	return errors.Join(errs...)
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(ctx, &settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(ctx, &settings.LLM)
}

// GetPipelineConfig returns the chunk pipeline configuration for the current settings.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	settings, err := s.Get()
	if err != nil {
		return domain.DefaultPipelineConfig()
	}
	return domain.PipelineConfigFor(settings.Chunking)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

// getDuration accepts Go duration strings ("30s", "5m") or plain seconds.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	raw, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := raw.(type) {
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case string:
		val := strings.TrimSpace(v)
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if secs, err := strconv.ParseFloat(val, 64); err == nil {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return domain.AIProvider(strings.ToLower(val))
}
