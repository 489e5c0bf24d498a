package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/Veraticus/dealercheck/internal/common"
)

// RetryingClient wraps a provider with retries, an optional fallback model
// and usage tracking.
type RetryingClient struct {
	client        Client
	usage         *UsageTracker
	logger        *slog.Logger
	fallbackModel string
	retryOpts     common.RetryOptions
}

// NewRetryingClient wraps client. usage may be nil.
func NewRetryingClient(client Client, cfg Config, usage *UsageTracker, logger *slog.Logger) *RetryingClient {
	retryOpts := common.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &RetryingClient{
		client:        client,
		usage:         usage,
		logger:        common.LoggerOrDefault(logger),
		fallbackModel: cfg.FallbackModel,
		retryOpts:     retryOpts,
	}
}

// Generate calls the provider, retrying transient failures. When every
// attempt fails and a fallback model is configured, the request is retried
// once more against that model.
func (c *RetryingClient) Generate(ctx context.Context, req Request) (Response, error) {
	resp, err := c.generate(ctx, req)
	if err != nil && c.fallbackModel != "" && req.Model != c.fallbackModel && ctx.Err() == nil {
		c.logger.Warn("primary model failed, using fallback",
			"operation", req.Operation,
			"fallback_model", c.fallbackModel,
			"error", err)
		fallback := req
		fallback.Model = c.fallbackModel
		resp, err = c.generate(ctx, fallback)
	}
	if err != nil {
		return Response{}, err
	}

	if c.usage != nil {
		c.usage.Record(resp.Model, req.Operation, resp.Usage)
	}
	return resp, nil
}

func (c *RetryingClient) generate(ctx context.Context, req Request) (Response, error) {
	var resp Response
	err := common.WithRetry(ctx, func() error {
		r, err := c.client.Generate(ctx, req)
		if err != nil {
			c.logger.Debug("generation attempt failed",
				"operation", req.Operation,
				"model", req.Model,
				"error", err)
			return err
		}
		resp = r
		return nil
	}, c.retryOpts)
	return resp, err
}
