package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("llm.provider", "openai"))
	require.NoError(t, store.Set("retrieval.k_final", 10))
	require.NoError(t, store.Set("llm.requests_per_second", 2.5))
	require.NoError(t, store.Set("watch.scan_existing", true))

	assert.Equal(t, "openai", store.GetString("llm.provider"))
	assert.Equal(t, 10, store.GetInt("retrieval.k_final"))
	assert.Equal(t, 2.5, store.GetFloat("llm.requests_per_second"))
	assert.Equal(t, 10.0, store.GetFloat("retrieval.k_final"))
	assert.True(t, store.GetBool("watch.scan_existing"))
}

func TestConfigStore_TypeMismatchReturnsZero(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"string", "abc"},
		{"slice", []string{"a"}},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewConfigStore()
			require.NoError(t, store.Set("k", tt.value))
			assert.Equal(t, 0, store.GetInt("k"))
			assert.Equal(t, 0.0, store.GetFloat("k"))
			assert.False(t, store.GetBool("k"))
		})
	}
}

func TestConfigStore_Missing(t *testing.T) {
	store := NewConfigStore()

	_, ok := store.Get("nope")
	assert.False(t, ok)
	assert.Empty(t, store.GetString("nope"))
	assert.Equal(t, ":memory:", store.Path())
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
}

func TestConfigStore_All(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("llm.provider", "ollama"))
	require.NoError(t, store.Set("llm.model", "llama3.2"))
	require.NoError(t, store.Set("data_dir", "/tmp/x"))

	all := store.All()

	assert.Equal(t, "/tmp/x", all["data_dir"])
	llm, ok := all["llm"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ollama", llm["provider"])
	assert.Equal(t, "llama3.2", llm["model"])
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Set("retrieval.k_final", i)
			_ = store.GetInt("retrieval.k_final")
			_ = store.All()
		}()
	}
	wg.Wait()
	_, ok := store.Get("retrieval.k_final")
	assert.True(t, ok)
}
