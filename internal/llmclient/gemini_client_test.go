// File: internal/llmclient/gemini_client_test.go
package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sankalpgunturi/stagehand/api/schemas"
	"github.com/sankalpgunturi/stagehand/internal/config"
)

func testLLMConfig(endpoint string) config.LLMConfig {
	return config.LLMConfig{
		Provider:    ProviderGemini,
		Model:       "gemini-test",
		APIKey:      "test-key",
		Endpoint:    endpoint,
		APITimeout:  5 * time.Second,
		Temperature: 0.2,
		MaxTokens:   1024,
	}
}

func geminiSuccessBody(text string) string {
	body := map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"parts": []map[string]string{{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	}
	raw, _ := json.Marshal(body)
	return string(raw)
}

func TestGeminiClientRequiresAPIKey(t *testing.T) {
	cfg := testLLMConfig("")
	cfg.APIKey = ""
	_, err := NewGeminiClient(cfg, zap.NewNop())
	require.Error(t, err)
}

func TestGenerateResponseSuccess(t *testing.T) {
	var gotAPIKey atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey.Store(r.Header.Get("x-goog-api-key"))

		var payload map[string]any
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload)) {
			assert.Contains(t, payload, "contents")
			assert.Contains(t, payload, "system_instruction")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(geminiSuccessBody("converted source")))
	}))
	defer server.Close()

	client, err := NewGeminiClient(testLLMConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	out, err := client.GenerateResponse(context.Background(), schemas.GenerationRequest{
		SystemPrompt: "convert things",
		UserPrompt:   "convert this",
	})
	require.NoError(t, err)
	assert.Equal(t, "converted source", out)
	assert.Equal(t, "test-key", gotAPIKey.Load())
}

func TestGenerateResponseRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(geminiSuccessBody("after retry")))
	}))
	defer server.Close()

	client, err := NewGeminiClient(testLLMConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	out, err := client.GenerateResponse(context.Background(), schemas.GenerationRequest{UserPrompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "after retry", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerateResponseDoesNotRetryPermanentErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewGeminiClient(testLLMConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), schemas.GenerationRequest{UserPrompt: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateResponseNoCandidatesIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client, err := NewGeminiClient(testLLMConfig(server.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), schemas.GenerationRequest{UserPrompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}

func TestNewClientFactory(t *testing.T) {
	cfg := testLLMConfig("http://localhost:1")
	client, err := NewClient(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, client)

	cfg.Provider = "openai"
	_, err = NewClient(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai")
}
