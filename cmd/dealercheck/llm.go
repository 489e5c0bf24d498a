package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/dealercheck/internal/config"
	"github.com/Veraticus/dealercheck/internal/dealer"
	"github.com/Veraticus/dealercheck/internal/llm"
)

// newProviderClient builds the raw provider client. Tests replace it.
var newProviderClient = llm.NewClient

// createLLMClient creates the provider client wrapped with retries, the
// fallback model and usage tracking. It is shared by every command that
// talks to a model.
func createLLMClient(cfg config.LLMConfig) (llm.Client, *llm.UsageTracker, error) {
	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		return nil, nil, err
	}

	provider, err := newProviderClient(clientCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	usage := llm.NewUsageTracker(llm.DefaultPricing, slog.Default())
	return llm.NewRetryingClient(provider, clientCfg, usage, slog.Default()), usage, nil
}

// createChecker wires a dealer.Checker from the loaded configuration.
func createChecker(cfg *config.Config, opts dealer.Config) (*dealer.Checker, *llm.UsageTracker, error) {
	client, usage, err := createLLMClient(cfg.LLM)
	if err != nil {
		return nil, nil, err
	}

	policy, err := cfg.Dealer.Policy()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load risk policy: %w", err)
	}

	opts.Policy = policy
	opts.QueryTimeout = cfg.Dealer.QueryTimeout
	opts.Combined = opts.Combined || cfg.Dealer.CombinedPrompt

	checker, err := dealer.NewChecker(client, opts, slog.Default())
	if err != nil {
		return nil, nil, err
	}
	return checker, usage, nil
}
