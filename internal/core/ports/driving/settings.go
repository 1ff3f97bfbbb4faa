package driving

import (
	"context"

	"github.com/custodia-labs/leasequery/internal/core/domain"
)

// SettingsService resolves application settings from configuration.
type SettingsService interface {
	// Get resolves current settings, filling unset values from defaults.
	Get() (*domain.AppSettings, error)

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// Validate checks settings for values the services cannot run with.
	Validate(settings *domain.AppSettings) error

	// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
	ValidateEmbeddingConfig(ctx context.Context) error

	// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
	ValidateLLMConfig(ctx context.Context) error
}
