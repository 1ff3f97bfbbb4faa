// Package layered provides a driven.ConfigStore that resolves each key
// through viper in precedence order: bound command-line flags, then
// LEASEQUERY_* environment variables (including a .env file), then the
// TOML config file, then registered defaults.
//
// Writes go to the TOML file only. Environment and flags are never persisted.
package layered

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/custodia-labs/leasequery/internal/adapters/driven/config/file"
	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.ConfigStore = (*Store)(nil)

// EnvPrefix prefixes environment overrides: llm.api_key is LEASEQUERY_LLM_API_KEY.
const EnvPrefix = "LEASEQUERY"

// providerKeyEnv names the conventional API key variable per provider.
// It is consulted when no LEASEQUERY_* key or file key is set.
var providerKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
}

// Options configures a Store.
type Options struct {
	// Defaults are the lowest-precedence values, keyed by dotted name.
	Defaults map[string]any

	// DotEnvFiles are loaded into the process environment when present.
	// Variables already set are not overwritten.
	DotEnvFiles []string
}

// Store layers viper over a TOML file store.
type Store struct {
	mu   sync.RWMutex
	v    *viper.Viper
	file *file.ConfigStore
}

// New creates a layered store reading and writing through fileStore.
func New(fileStore *file.ConfigStore, opts Options) (*Store, error) {
	if err := loadDotEnv(opts.DotEnvFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	for k, val := range opts.Defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigFile(fileStore.Path())
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	s := &Store{v: v, file: fileStore}
	if err := s.readFile(); err != nil {
		return nil, err
	}
	return s, nil
}

// DefaultDotEnvFiles returns ./.env and <configDir>/.env.
func DefaultDotEnvFiles(configDir string) []string {
	return []string{".env", filepath.Join(configDir, ".env")}
}

func loadDotEnv(paths []string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	logger.Debug("Loaded environment from %s", strings.Join(existing, ", "))
	return nil
}

// readFile re-reads the TOML file into viper (caller must not hold the lock).
func (s *Store) readFile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.file.Path()); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := s.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", s.file.Path(), err)
	}
	return nil
}

// BindFlag makes a changed command-line flag override key.
func (s *Store) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("bind %s: nil flag", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.BindPFlag(key, flag)
}

// Get retrieves a configuration value by key from the highest layer that sets it.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.v.IsSet(key) {
		val := s.v.Get(key)
		if str, ok := val.(string); !ok || str != "" {
			return val, true
		}
	}
	if val, ok := s.providerKey(key); ok {
		return val, true
	}
	return nil, false
}

// providerKey falls back to OPENAI_API_KEY or ANTHROPIC_API_KEY for the
// section's provider (caller holds the read lock).
func (s *Store) providerKey(key string) (string, bool) {
	section, field, ok := strings.Cut(key, ".")
	if !ok || field != "api_key" {
		return "", false
	}
	provider := domain.AIProvider(s.v.GetString(section + ".provider"))
	env, ok := providerKeyEnv[provider]
	if !ok {
		return "", false
	}
	val := os.Getenv(env)
	return val, val != ""
}

// GetString retrieves a string configuration value.
func (s *Store) GetString(key string) string {
	val, ok := s.Get(key)
	if !ok {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if str, isStr := val.(string); isStr {
		return str
	}
	return s.v.GetString(key)
}

// GetInt retrieves an integer configuration value.
func (s *Store) GetInt(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetInt(key)
}

// GetFloat retrieves a floating point configuration value.
func (s *Store) GetFloat(key string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetFloat64(key)
}

// GetBool retrieves a boolean configuration value.
func (s *Store) GetBool(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetBool(key)
}

// All returns the merged settings of every layer as a nested tree.
func (s *Store) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.AllSettings()
}

// Set persists a value to the TOML file and reloads it.
// A flag or environment override for the same key still wins.
func (s *Store) Set(key string, value any) error {
	if err := s.file.Set(key, value); err != nil {
		return err
	}
	return s.readFile()
}

// Save persists the TOML file.
func (s *Store) Save() error {
	return s.file.Save()
}

// Load re-reads the TOML file.
func (s *Store) Load() error {
	if err := s.file.Load(); err != nil {
		return err
	}
	return s.readFile()
}

// Path returns the TOML file path.
func (s *Store) Path() string {
	return s.file.Path()
}

// File returns the underlying file store, which holds only persisted values.
func (s *Store) File() *file.ConfigStore {
	return s.file
}
