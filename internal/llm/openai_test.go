package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/dealercheck/internal/common"
)

func TestNewOpenAIClient(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid config",
			config: Config{APIKey: "test-key"},
		},
		{
			name:    "missing API key",
			config:  Config{},
			wantErr: true,
		},
		{
			name: "custom model and settings",
			config: Config{
				APIKey:      "test-key",
				Model:       "gpt-4o-mini",
				Temperature: 0.5,
				MaxTokens:   200,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newOpenAIClient(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func openAITestServer(t *testing.T, handler func(w http.ResponseWriter, req openai.ChatCompletionRequest)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		handler(w, req)
	}))
	t.Cleanup(server.Close)
	return server
}

func writeCompletion(w http.ResponseWriter, model, content string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 120, "completion_tokens": 40, "total_tokens": 160},
	})
}

func TestOpenAIClient_Generate(t *testing.T) {
	server := openAITestServer(t, func(w http.ResponseWriter, req openai.ChatCompletionRequest) {
		assert.Equal(t, "gpt-4o", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
		assert.Equal(t, "verifique o CNPJ", req.Messages[1].Content)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
		assert.Equal(t, 4000, req.MaxTokens)
		writeCompletion(w, "gpt-4o-2024-08-06", `{"situacao_cadastral": "ATIVA"}`)
	})

	client, err := newOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), Request{
		System: "Você é um analista.",
		Prompt: "verifique o CNPJ",
		JSON:   true,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"situacao_cadastral": "ATIVA"}`, resp.Text)
	assert.Equal(t, "gpt-4o-2024-08-06", resp.Model)
	assert.Equal(t, Usage{InputTokens: 120, OutputTokens: 40}, resp.Usage)
}

func TestOpenAIClient_SearchModelSkipsSamplingParams(t *testing.T) {
	server := openAITestServer(t, func(w http.ResponseWriter, req openai.ChatCompletionRequest) {
		assert.Equal(t, "gpt-4o-search-preview", req.Model)
		assert.Nil(t, req.ResponseFormat)
		assert.Zero(t, req.Temperature)
		writeCompletion(w, req.Model, "texto livre com {\"a\": 1}")
	})

	client, err := newOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), Request{
		Prompt: "pesquise",
		Model:  "gpt-4o-search-preview",
		JSON:   true,
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, `{"a": 1}`)
}

func TestOpenAIClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantSentinel  error
		wantRetryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, common.ErrRateLimit, true},
		{"server error", http.StatusBadGateway, common.ErrProviderUnavailable, true},
		{"bad request", http.StatusBadRequest, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := openAITestServer(t, func(w http.ResponseWriter, _ openai.ChatCompletionRequest) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "nope", "type": "test_error"}}`))
			})

			client, err := newOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL + "/v1"})
			require.NoError(t, err)

			_, err = client.Generate(context.Background(), Request{Prompt: "x"})
			require.Error(t, err)
			if tt.wantSentinel != nil {
				assert.ErrorIs(t, err, tt.wantSentinel)
			}
			assert.Equal(t, tt.wantRetryable, common.IsRetryable(err))
		})
	}
}

func TestOpenAIClient_EmptyCompletion(t *testing.T) {
	server := openAITestServer(t, func(w http.ResponseWriter, req openai.ChatCompletionRequest) {
		writeCompletion(w, req.Model, "   ")
	})

	client, err := newOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, common.ErrEmptyCompletion)
}

func TestIsReasoningModel(t *testing.T) {
	assert.True(t, isReasoningModel("o3-mini"))
	assert.True(t, isReasoningModel("gpt-5"))
	assert.False(t, isReasoningModel("gpt-4o"))
	assert.True(t, isSearchModel("gpt-4o-search-preview"))
}
