package layered

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/leasequery/internal/adapters/driven/config/file"
)

func newTestStore(t *testing.T, opts Options) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := file.NewConfigStore(dir)
	require.NoError(t, err)
	s, err := New(fs, opts)
	require.NoError(t, err)
	return s, dir
}

func TestStore_DefaultsThenFile(t *testing.T) {
	s, _ := newTestStore(t, Options{Defaults: map[string]any{
		"retrieval.k_final": 10,
		"vector.backend":    "sqlite",
	}})

	assert.Equal(t, 10, s.GetInt("retrieval.k_final"))

	require.NoError(t, s.Set("retrieval.k_final", int64(5)))
	assert.Equal(t, 5, s.GetInt("retrieval.k_final"))
	assert.Equal(t, "sqlite", s.GetString("vector.backend"))

	_, ok := s.Get("llm.provider")
	assert.False(t, ok)
}

func TestStore_EnvOverridesFile(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	require.NoError(t, s.Set("llm.provider", "ollama"))

	t.Setenv("LEASEQUERY_LLM_PROVIDER", "openai")

	assert.Equal(t, "openai", s.GetString("llm.provider"))
	assert.Equal(t, "ollama", s.File().GetString("llm.provider"))
}

func TestStore_FlagOverridesEnv(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	t.Setenv("LEASEQUERY_RETRIEVAL_K_FINAL", "7")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("k-final", 10, "")
	require.NoError(t, s.BindFlag("retrieval.k_final", flags.Lookup("k-final")))

	// Unchanged flags do not override.
	assert.Equal(t, 7, s.GetInt("retrieval.k_final"))

	require.NoError(t, flags.Parse([]string{"--k-final=3"}))
	assert.Equal(t, 3, s.GetInt("retrieval.k_final"))
}

func TestStore_BindFlag_Nil(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	assert.Error(t, s.BindFlag("x", nil))
}

func TestStore_ProviderAPIKeyFallback(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	require.NoError(t, s.Set("llm.provider", "anthropic"))
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENAI_API_KEY", "sk-oai")

	assert.Equal(t, "sk-ant", s.GetString("llm.api_key"))

	// embedding has no provider, so no fallback applies.
	_, ok := s.Get("embedding.api_key")
	assert.False(t, ok)

	// An explicit key wins over the provider variable.
	t.Setenv("LEASEQUERY_LLM_API_KEY", "sk-explicit")
	assert.Equal(t, "sk-explicit", s.GetString("llm.api_key"))
}

func TestStore_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("LEASEQUERY_VECTOR_BACKEND=memory\n"), 0600))
	t.Setenv("LEASEQUERY_VECTOR_BACKEND", "")
	require.NoError(t, os.Unsetenv("LEASEQUERY_VECTOR_BACKEND"))

	s, _ := newTestStore(t, Options{DotEnvFiles: []string{envPath, filepath.Join(dir, "missing.env")}})

	assert.Equal(t, "memory", s.GetString("vector.backend"))
}

func TestStore_AllMergesLayers(t *testing.T) {
	s, _ := newTestStore(t, Options{Defaults: map[string]any{"chunking.size": 800}})
	require.NoError(t, s.Set("llm.model", "gpt-4o-mini"))

	all := s.All()
	chunking, ok := all["chunking"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 800, chunking["size"])
	llm, ok := all["llm"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "gpt-4o-mini", llm["model"])
}

func TestStore_LoadPicksUpExternalEdits(t *testing.T) {
	s, dir := newTestStore(t, Options{})
	require.NoError(t, os.WriteFile(filepath.Join(dir, file.ConfigFileName),
		[]byte("[watch]\ndir = \"/srv/inbox\"\n"), 0600))

	require.NoError(t, s.Load())
	assert.Equal(t, "/srv/inbox", s.GetString("watch.dir"))
	assert.Equal(t, filepath.Join(dir, file.ConfigFileName), s.Path())
}
