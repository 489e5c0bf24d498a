package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/dealercheck/internal/common"
)

// scriptedClient returns queued results per model.
type scriptedClient struct {
	results map[string][]error
	calls   []string
	mu      sync.Mutex
}

func (s *scriptedClient) Generate(_ context.Context, req Request) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	model := req.Model
	if model == "" {
		model = "primary"
	}
	s.calls = append(s.calls, model)

	queue := s.results[model]
	if len(queue) > 0 {
		err := queue[0]
		s.results[model] = queue[1:]
		if err != nil {
			return Response{}, err
		}
	}
	return Response{Text: "{}", Model: model, Usage: Usage{InputTokens: 10, OutputTokens: 5}}, nil
}

func fastConfig() Config {
	return Config{MaxRetries: 3, RetryDelay: time.Millisecond}
}

func TestRetryingClient_RetriesTransientErrors(t *testing.T) {
	inner := &scriptedClient{results: map[string][]error{
		"primary": {common.ErrProviderUnavailable, common.ErrProviderUnavailable, nil},
	}}
	tracker := NewUsageTracker(nil, nil)
	client := NewRetryingClient(inner, fastConfig(), tracker, nil)

	resp, err := client.Generate(context.Background(), Request{Prompt: "x", Operation: "status"})
	require.NoError(t, err)
	assert.Equal(t, "primary", resp.Model)
	assert.Len(t, inner.calls, 3)
	assert.Equal(t, 1, tracker.Summary().ByOperation["status"].Requests)
}

func TestRetryingClient_NonRetryableStopsImmediately(t *testing.T) {
	fatal := &common.RetryableError{Err: errors.New("unauthorized"), Retryable: false}
	inner := &scriptedClient{results: map[string][]error{"primary": {fatal}}}
	client := NewRetryingClient(inner, fastConfig(), nil, nil)

	_, err := client.Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Len(t, inner.calls, 1)
}

func TestRetryingClient_FallbackModel(t *testing.T) {
	boom := errors.New("model not found")
	inner := &scriptedClient{results: map[string][]error{
		"primary": {boom, boom, boom},
	}}
	cfg := fastConfig()
	cfg.FallbackModel = "gpt-4o-mini"
	tracker := NewUsageTracker(nil, nil)
	client := NewRetryingClient(inner, cfg, tracker, nil)

	resp, err := client.Generate(context.Background(), Request{Prompt: "x", Operation: "legal"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
	assert.Equal(t, []string{"primary", "primary", "primary", "gpt-4o-mini"}, inner.calls)
	assert.Equal(t, 1, tracker.Summary().ByModel["gpt-4o-mini"].Requests)
}

func TestRetryingClient_ExhaustedWithoutFallback(t *testing.T) {
	boom := errors.New("boom")
	inner := &scriptedClient{results: map[string][]error{"primary": {boom, boom, boom}}}
	client := NewRetryingClient(inner, fastConfig(), nil, nil)

	_, err := client.Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMaxRetries)
	assert.ErrorIs(t, err, boom)
}

func TestNewClient_UnsupportedProvider(t *testing.T) {
	_, err := NewClient(Config{Provider: "gemini"})
	assert.ErrorContains(t, err, "unsupported LLM provider")

	client, err := NewClient(Config{Provider: "OpenAI", APIKey: "k"})
	require.NoError(t, err)
	assert.NotNil(t, client)
}
