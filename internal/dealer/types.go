// Package dealer orchestrates fraud checks for vehicle dealers: it validates
// the CNPJ, asks the text-generation provider for each check, extracts the
// structured answers and aggregates them into a risk report.
package dealer

import (
	"errors"
	"time"

	"github.com/Veraticus/dealercheck/internal/llm"
	"github.com/Veraticus/dealercheck/internal/risk"
)

// ErrProvider marks a check whose provider call failed.
var ErrProvider = errors.New("provider request failed")

// State is a step of a comprehensive analysis.
type State string

const (
	// StateIdle is the state before any work starts.
	StateIdle State = "idle"
	// StateValidating checks the identifier offline.
	StateValidating State = "validating"
	// StateQuerying waits on provider responses.
	StateQuerying State = "querying"
	// StateExtracting parses provider responses.
	StateExtracting State = "extracting"
	// StateAggregating scores the extracted fields.
	StateAggregating State = "aggregating"
	// StateDone indicates a report was produced.
	StateDone State = "done"
	// StateFailed indicates the analysis aborted.
	StateFailed State = "failed"
)

// Status is the outcome of a single check.
type Status string

const (
	// StatusOK means the response was parsed into fields.
	StatusOK Status = "ok"
	// StatusUnknown means the provider answered but nothing usable was
	// extracted, or the query timed out.
	StatusUnknown Status = "unknown"
	// StatusFailed means the provider call itself failed.
	StatusFailed Status = "failed"
)

// Request describes a dealer to analyze.
type Request struct {
	CNPJ        string `json:"cnpj"`
	CompanyName string `json:"company_name,omitempty"`
	Concern     string `json:"concern,omitempty"`
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Fields   risk.Fields   `json:"fields,omitempty"`
	Check    risk.Check    `json:"check"`
	Status   Status        `json:"status"`
	Raw      string        `json:"raw_response,omitempty"`
	Error    string        `json:"error,omitempty"`
	Model    string        `json:"model,omitempty"`
	Usage    llm.Usage     `json:"usage"`
	Duration time.Duration `json:"duration_ns"`
}

// Report is the result of a comprehensive analysis.
type Report struct {
	GeneratedAt   time.Time     `json:"generated_at"`
	ID            string        `json:"id"`
	CNPJ          string        `json:"cnpj"`
	FormattedCNPJ string        `json:"cnpj_formatted"`
	CompanyName   string        `json:"company_name,omitempty"`
	Concern       string        `json:"concern,omitempty"`
	Checks        []CheckResult `json:"checks"`
	risk.Assessment
	Usage    llm.Usage     `json:"usage"`
	Duration time.Duration `json:"duration_ns"`
}

// Check returns the result for c, if present.
func (r *Report) Check(c risk.Check) (CheckResult, bool) {
	for _, result := range r.Checks {
		if result.Check == c {
			return result, true
		}
	}
	return CheckResult{}, false
}
