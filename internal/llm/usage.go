package llm

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/dealercheck/internal/common"
)

// Price is the USD cost per thousand tokens for a model.
type Price struct {
	InputPer1K  float64 `json:"input_per_1k"`
	OutputPer1K float64 `json:"output_per_1k"`
	PerRequest  float64 `json:"per_request,omitempty"` // flat fee, e.g. web search
}

// DefaultPricing lists published prices for the models this tool targets.
var DefaultPricing = map[string]Price{
	"gpt-4o":                   {InputPer1K: 0.0025, OutputPer1K: 0.010},
	"gpt-4o-mini":              {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	"gpt-4o-search-preview":    {InputPer1K: 0.0025, OutputPer1K: 0.010, PerRequest: 0.02},
	"gpt-4.1":                  {InputPer1K: 0.002, OutputPer1K: 0.008},
	"gpt-4.1-mini":             {InputPer1K: 0.0004, OutputPer1K: 0.0016},
	"claude-sonnet-4-20250514": {InputPer1K: 0.003, OutputPer1K: 0.015},
	"claude-3-5-haiku-latest":  {InputPer1K: 0.0008, OutputPer1K: 0.004},
}

// UsageRecord is one tracked request.
type UsageRecord struct {
	Model     string    `json:"model"`
	Operation string    `json:"operation"`
	Usage     Usage     `json:"usage"`
	CostUSD   float64   `json:"cost_usd"`
	At        time.Time `json:"at"`
}

// UsageTotals aggregates cost and tokens for a model or operation.
type UsageTotals struct {
	Requests int     `json:"requests"`
	Tokens   int     `json:"tokens"`
	CostUSD  float64 `json:"cost_usd"`
}

// UsageSummary is a snapshot of everything tracked so far.
type UsageSummary struct {
	TotalRequests  int                    `json:"total_requests"`
	TotalTokens    int                    `json:"total_tokens"`
	TotalCostUSD   float64                `json:"total_cost_usd"`
	AverageCostUSD float64                `json:"average_cost_per_request"`
	ByModel        map[string]UsageTotals `json:"cost_by_model"`
	ByOperation    map[string]UsageTotals `json:"cost_by_operation"`
}

// UsageTracker accumulates token usage and estimated cost. It is safe for
// concurrent use.
type UsageTracker struct {
	logger  *slog.Logger
	pricing map[string]Price
	records []UsageRecord
	mu      sync.Mutex
}

// NewUsageTracker creates a tracker. A nil pricing table uses DefaultPricing.
func NewUsageTracker(pricing map[string]Price, logger *slog.Logger) *UsageTracker {
	if pricing == nil {
		pricing = DefaultPricing
	}
	return &UsageTracker{
		pricing: pricing,
		logger:  common.LoggerOrDefault(logger),
	}
}

// Record stores one request and returns it with its estimated cost.
func (t *UsageTracker) Record(model, operation string, usage Usage) UsageRecord {
	record := UsageRecord{
		Model:     model,
		Operation: operation,
		Usage:     usage,
		CostUSD:   Cost(t.pricing, model, usage),
		At:        time.Now(),
	}

	t.mu.Lock()
	t.records = append(t.records, record)
	t.mu.Unlock()

	t.logger.Debug("llm usage recorded",
		"model", model,
		"operation", operation,
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"cost_usd", record.CostUSD)

	return record
}

// Summary aggregates the tracked records.
func (t *UsageTracker) Summary() UsageSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	summary := UsageSummary{
		ByModel:     make(map[string]UsageTotals),
		ByOperation: make(map[string]UsageTotals),
	}
	for _, r := range t.records {
		summary.TotalRequests++
		summary.TotalTokens += r.Usage.Total()
		summary.TotalCostUSD += r.CostUSD
		summary.ByModel[r.Model] = addTotals(summary.ByModel[r.Model], r)
		summary.ByOperation[r.Operation] = addTotals(summary.ByOperation[r.Operation], r)
	}
	if summary.TotalRequests > 0 {
		summary.AverageCostUSD = summary.TotalCostUSD / float64(summary.TotalRequests)
	}
	return summary
}

func addTotals(totals UsageTotals, r UsageRecord) UsageTotals {
	totals.Requests++
	totals.Tokens += r.Usage.Total()
	totals.CostUSD += r.CostUSD
	return totals
}

// Cost estimates the USD cost of usage on model. Dated model names such as
// "gpt-4o-2024-08-06" fall back to the longest matching price prefix.
// Unknown models cost zero.
func Cost(pricing map[string]Price, model string, usage Usage) float64 {
	price, ok := pricing[model]
	if !ok {
		keys := make([]string, 0, len(pricing))
		for k := range pricing {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
		for _, k := range keys {
			if strings.HasPrefix(model, k) {
				price, ok = pricing[k], true
				break
			}
		}
	}
	if !ok {
		return 0
	}
	return float64(usage.InputTokens)/1000*price.InputPer1K +
		float64(usage.OutputTokens)/1000*price.OutputPer1K +
		price.PerRequest
}
