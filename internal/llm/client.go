package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Veraticus/dealercheck/internal/common"
)

// Client defines the interface for LLM providers.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Request is a single prompt sent to a provider.
type Request struct {
	Prompt    string
	System    string
	Model     string // overrides the configured model when set
	Operation string // label used for usage accounting
	MaxTokens int
	JSON      bool // ask the provider for a JSON object when supported
}

// Response is the provider's completion.
type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Usage counts tokens consumed by one request.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total returns input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Config holds provider configuration.
type Config struct {
	Provider       string
	APIKey         string
	Model          string
	FallbackModel  string
	BaseURL        string
	ClaudeCodePath string
	MaxRetries     int
	RetryDelay     time.Duration
	Timeout        time.Duration
	Temperature    float64
	MaxTokens      int
}

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 4000
	defaultTimeout     = 90 * time.Second
)

func (c Config) temperature() float64 {
	if c.Temperature == 0 {
		return defaultTemperature
	}
	return c.Temperature
}

func (c Config) maxTokens() int {
	if c.MaxTokens == 0 {
		return defaultMaxTokens
	}
	return c.MaxTokens
}

func (c Config) timeout() time.Duration {
	if c.Timeout == 0 {
		return defaultTimeout
	}
	return c.Timeout
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// statusError maps an HTTP status into the retry taxonomy.
func statusError(provider string, status int, body string) error {
	err := fmt.Errorf("%s API error (status %d): %s", provider, status, body)
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", common.ErrProviderUnavailable, err)
	default:
		return &common.RetryableError{Err: err, Retryable: false}
	}
}
