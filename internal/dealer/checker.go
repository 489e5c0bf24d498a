package dealer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/dealercheck/internal/cnpj"
	"github.com/Veraticus/dealercheck/internal/common"
	"github.com/Veraticus/dealercheck/internal/extract"
	"github.com/Veraticus/dealercheck/internal/llm"
	"github.com/Veraticus/dealercheck/internal/risk"
)

// DefaultQueryTimeout bounds each provider query.
const DefaultQueryTimeout = 60 * time.Second

// checkCombined labels the single query of combined mode.
const checkCombined risk.Check = "combined"

// Config controls how a Checker runs.
type Config struct {
	// Progress is called from query goroutines as each check finishes.
	Progress func(risk.Check)
	// OnTransition is called on every state change of Comprehensive.
	OnTransition func(State)
	Policy       risk.Policy
	QueryTimeout time.Duration
	// Combined asks for all checks in a single prompt.
	Combined bool
}

// Checker runs dealer checks against a text-generation client.
type Checker struct {
	client  llm.Client
	prompts *PromptBuilder
	logger  *slog.Logger
	cfg     Config
}

// NewChecker creates a Checker. A zero Policy uses risk.DefaultPolicy.
func NewChecker(client llm.Client, cfg Config, logger *slog.Logger) (*Checker, error) {
	if client == nil {
		return nil, fmt.Errorf("LLM client dependency is required")
	}
	if cfg.Policy.Weights == nil {
		cfg.Policy = risk.DefaultPolicy()
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}

	prompts, err := NewPromptBuilder()
	if err != nil {
		return nil, err
	}

	return &Checker{
		client:  client,
		prompts: prompts,
		logger:  common.LoggerOrDefault(logger),
		cfg:     cfg,
	}, nil
}

// ValidateIdentifier validates a CNPJ offline.
func (c *Checker) ValidateIdentifier(raw string) cnpj.Result {
	return cnpj.Validate(raw)
}

// CheckStatus asks for the official registration status.
func (c *Checker) CheckStatus(ctx context.Context, rawCNPJ string) (CheckResult, error) {
	return c.single(ctx, risk.CheckStatus, Request{CNPJ: rawCNPJ})
}

// CheckReputation asks for consumer reputation.
func (c *Checker) CheckReputation(ctx context.Context, rawCNPJ, companyName string) (CheckResult, error) {
	return c.single(ctx, risk.CheckReputation, Request{CNPJ: rawCNPJ, CompanyName: companyName})
}

// CheckLegal asks for lawsuits, investigations and sanctions.
func (c *Checker) CheckLegal(ctx context.Context, rawCNPJ, companyName string) (CheckResult, error) {
	return c.single(ctx, risk.CheckLegal, Request{CNPJ: rawCNPJ, CompanyName: companyName})
}

// single runs one check. An invalid CNPJ returns a *cnpj.ValidationError and
// no provider call is made. A provider failure returns the failed result
// together with an error wrapping ErrProvider.
func (c *Checker) single(ctx context.Context, check risk.Check, req Request) (CheckResult, error) {
	id := cnpj.Validate(req.CNPJ)
	if !id.Valid {
		return CheckResult{}, id.Err()
	}

	data := promptData(id, req)
	prompt, err := c.prompts.Check(check, data)
	if err != nil {
		return CheckResult{}, err
	}

	result := extractSlot(c.query(ctx, check, prompt))
	if result.Status == StatusFailed {
		return result, fmt.Errorf("%s check: %w", check, ErrProvider)
	}
	return result, nil
}

// Comprehensive validates the CNPJ, runs every check and aggregates the
// answers into a report. Only an invalid identifier or a rendering failure
// aborts; failed or unparseable checks lower the report's confidence.
func (c *Checker) Comprehensive(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	run := c.newRun(req)

	run.to(StateValidating)
	id := cnpj.Validate(req.CNPJ)
	if !id.Valid {
		err := id.Err()
		run.fail(err)
		return nil, err
	}

	run.to(StateQuerying)
	slots, err := c.queryAll(ctx, promptData(id, req))
	if err != nil {
		run.fail(err)
		return nil, err
	}

	run.to(StateExtracting)
	results := make([]CheckResult, len(slots))
	fields := make(map[risk.Check]risk.Fields, len(slots))
	var usage llm.Usage
	for i, slot := range slots {
		results[i] = extractSlot(slot)
		if results[i].Status == StatusOK {
			fields[results[i].Check] = results[i].Fields
		}
		usage.InputTokens += results[i].Usage.InputTokens
		usage.OutputTokens += results[i].Usage.OutputTokens
	}

	run.to(StateAggregating)
	assessment := c.cfg.Policy.Assess(fields)

	report := &Report{
		ID:            uuid.New().String(),
		CNPJ:          id.Normalized,
		FormattedCNPJ: id.Formatted,
		CompanyName:   req.CompanyName,
		Concern:       req.Concern,
		Checks:        results,
		Assessment:    assessment,
		Usage:         usage,
		GeneratedAt:   time.Now(),
		Duration:      time.Since(start),
	}
	run.to(StateDone)

	c.logger.Info("dealer analysis complete",
		"cnpj", report.FormattedCNPJ,
		"score", report.Score,
		"tier", report.Tier,
		"confidence", report.Confidence,
		"duration", report.Duration)

	return report, nil
}

// slot is the raw outcome of one provider query.
type slot struct {
	err      error
	check    risk.Check
	text     string
	model    string
	usage    llm.Usage
	duration time.Duration
	timedOut bool
}

// queryAll returns one slot per check in risk.AllChecks order.
func (c *Checker) queryAll(ctx context.Context, data PromptData) ([]slot, error) {
	if c.cfg.Combined {
		return c.queryCombined(ctx, data)
	}

	prompts := make([]string, len(risk.AllChecks))
	for i, check := range risk.AllChecks {
		prompt, err := c.prompts.Check(check, data)
		if err != nil {
			return nil, err
		}
		prompts[i] = prompt
	}

	slots := make([]slot, len(risk.AllChecks))
	var g errgroup.Group
	for i, check := range risk.AllChecks {
		g.Go(func() error {
			slots[i] = c.query(ctx, check, prompts[i])
			return nil
		})
	}
	_ = g.Wait()

	return slots, nil
}

// queryCombined issues one prompt and splits the answer per check.
func (c *Checker) queryCombined(ctx context.Context, data PromptData) ([]slot, error) {
	prompt, err := c.prompts.Combined(data)
	if err != nil {
		return nil, err
	}

	combined := c.query(ctx, checkCombined, prompt)
	slots := make([]slot, len(risk.AllChecks))
	for i, check := range risk.AllChecks {
		slots[i] = combined
		slots[i].check = check
		if c.cfg.Progress != nil {
			c.cfg.Progress(check)
		}
	}
	if combined.err != nil || combined.timedOut {
		return slots, nil
	}

	object, err := extract.Object(combined.text)
	for i, check := range risk.AllChecks {
		if err != nil {
			slots[i].err = err
			continue
		}
		section := risk.Fields(object).Fields(string(check))
		if section == nil {
			slots[i].err = fmt.Errorf("%w: missing %q section", extract.ErrNoJSON, check)
			continue
		}
		raw, marshalErr := json.Marshal(section)
		if marshalErr != nil {
			slots[i].err = marshalErr
			continue
		}
		slots[i].text = string(raw)
	}
	// Usage belongs to the single combined request.
	for i := 1; i < len(slots); i++ {
		slots[i].usage = llm.Usage{}
	}
	return slots, nil
}

// query sends one prompt under the per-query timeout.
func (c *Checker) query(ctx context.Context, check risk.Check, prompt string) slot {
	start := time.Now()
	qctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()

	resp, err := c.client.Generate(qctx, llm.Request{
		System:    c.prompts.System(),
		Prompt:    prompt,
		Operation: string(check),
		JSON:      true,
	})

	s := slot{
		check:    check,
		text:     resp.Text,
		model:    resp.Model,
		usage:    resp.Usage,
		duration: time.Since(start),
	}
	if err != nil {
		s.err = err
		s.timedOut = errors.Is(qctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
		c.logger.Warn("dealer query failed",
			"check", check,
			"timed_out", s.timedOut,
			"duration", s.duration,
			"error", err)
	} else {
		c.logger.Debug("dealer query answered",
			"check", check,
			"model", resp.Model,
			"chars", len(resp.Text),
			"duration", s.duration)
	}

	if c.cfg.Progress != nil && check != checkCombined {
		c.cfg.Progress(check)
	}
	return s
}

// extractSlot turns a raw slot into a CheckResult.
func extractSlot(s slot) CheckResult {
	result := CheckResult{
		Check:    s.check,
		Raw:      s.text,
		Model:    s.model,
		Usage:    s.usage,
		Duration: s.duration,
	}

	switch {
	case s.timedOut:
		result.Status = StatusUnknown
		result.Error = fmt.Sprintf("query timed out after %s", s.duration.Round(time.Millisecond))
		return result
	case s.err != nil && errors.Is(s.err, extract.ErrNoJSON):
		result.Status = StatusUnknown
		result.Error = s.err.Error()
		return result
	case s.err != nil:
		result.Status = StatusFailed
		result.Error = fmt.Errorf("%w: %w", ErrProvider, s.err).Error()
		return result
	}

	fields, err := extract.Object(s.text)
	if err != nil {
		result.Status = StatusUnknown
		result.Error = err.Error()
		return result
	}
	result.Status = StatusOK
	result.Fields = fields
	return result
}

func promptData(id cnpj.Result, req Request) PromptData {
	return PromptData{
		FormattedCNPJ: id.Formatted,
		CompanyName:   req.CompanyName,
		Concern:       req.Concern,
	}
}

// run tracks the state machine of one comprehensive analysis.
type run struct {
	logger       *slog.Logger
	onTransition func(State)
	state        State
}

func (c *Checker) newRun(req Request) *run {
	return &run{
		logger:       c.logger.With("cnpj_input", req.CNPJ),
		onTransition: c.cfg.OnTransition,
		state:        StateIdle,
	}
}

func (r *run) to(next State) {
	r.logger.Debug("dealer analysis state", "from", r.state, "to", next)
	r.state = next
	if r.onTransition != nil {
		r.onTransition(next)
	}
}

func (r *run) fail(err error) {
	r.logger.Debug("dealer analysis failed", "state", r.state, "error", err)
	r.to(StateFailed)
}
