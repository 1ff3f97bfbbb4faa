package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewLLMService(Config{APIKey: "secret", BaseURL: server.URL})
	require.NoError(t, err)
	return svc
}

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(Config{})
	require.Error(t, err)
}

func TestChat_LiftsSystemAndSetsHeaders(t *testing.T) {
	var got messagesRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Net 30."}]}`))
	})

	out, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: "You answer lease questions."},
		{Role: driven.RoleUser, Content: "When is rent due?"},
	}, driven.ChatOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Net 30.", out)
	assert.Equal(t, "You answer lease questions.", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, driven.RoleUser, got.Messages[0].Role)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.Equal(t, DefaultModel, got.Model)
}

func TestChat_JSONModePrefillsObject(t *testing.T) {
	var got messagesRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"\"route\":\"analytics\"}"}]}`))
	})

	out, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: driven.RoleUser, Content: "classify"},
	}, driven.ChatOptions{JSONMode: true})
	require.NoError(t, err)

	assert.Equal(t, `{"route":"analytics"}`, out)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, driven.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, jsonPrefill, got.Messages[1].Content)
	assert.Contains(t, got.System, "JSON")
}

func TestGenerate_PassesStopWords(t *testing.T) {
	var got messagesRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"done"}]}`))
	})

	out, err := svc.Generate(context.Background(), "hello", driven.GenerateOptions{MaxTokens: 10, StopWords: []string{"END"}})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 10, got.MaxTokens)
	assert.Equal(t, []string{"END"}, got.StopSeqs)
}

func TestChat_APIError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`))
	})

	_, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: driven.RoleUser, Content: "x"}}, driven.ChatOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad model")
}

func TestChat_EmptyContent(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	})

	_, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: driven.RoleUser, Content: "x"}}, driven.ChatOptions{JSONMode: true})
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	require.NoError(t, svc.Ping(context.Background()))
	assert.Equal(t, DefaultModel, svc.ModelName())
	require.NoError(t, svc.Close())
}
