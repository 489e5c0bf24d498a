package risk

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Category identifies a red-flag rule.
type Category string

// Red-flag categories, in evaluation order.
const (
	CategoryRegistrationIrregular Category = "registration_irregular"
	CategoryFraudLitigation       Category = "fraud_litigation"
	CategoryUnansweredComplaints  Category = "unanswered_complaints"
	CategoryNegativeMedia         Category = "negative_media"
	CategoryYoungHighVolume       Category = "young_high_volume"
	CategoryCNAEMismatch          Category = "cnae_mismatch"
)

// Categories lists every category in evaluation order.
var Categories = []Category{
	CategoryRegistrationIrregular,
	CategoryFraudLitigation,
	CategoryUnansweredComplaints,
	CategoryNegativeMedia,
	CategoryYoungHighVolume,
	CategoryCNAEMismatch,
}

// ErrInvalidPolicy is returned when a policy fails validation.
var ErrInvalidPolicy = errors.New("invalid risk policy")

// Policy holds the weights and thresholds used by Assess.
type Policy struct {
	Weights              map[Category]int `yaml:"weights"`
	IrregularStatuses    []string         `yaml:"irregular_statuses"`
	LowReputationScore   float64          `yaml:"low_reputation_score"`
	ComplaintThreshold   float64          `yaml:"complaint_threshold"`
	HighVolumeComplaints float64          `yaml:"high_volume_complaints"`
	MinCompanyAgeYears   float64          `yaml:"min_company_age_years"`

	now func() time.Time
}

// DefaultPolicy returns a fresh copy of the built-in policy.
func DefaultPolicy() Policy {
	return Policy{
		Weights: map[Category]int{
			CategoryRegistrationIrregular: 40,
			CategoryFraudLitigation:       30,
			CategoryUnansweredComplaints:  15,
			CategoryNegativeMedia:         10,
			CategoryYoungHighVolume:       10,
			CategoryCNAEMismatch:          10,
		},
		IrregularStatuses:    []string{"BAIXADA", "SUSPENSA", "INAPTA", "CANCELADA", "NULA"},
		LowReputationScore:   50,
		ComplaintThreshold:   10,
		HighVolumeComplaints: 50,
		MinCompanyAgeYears:   2,
	}
}

// LoadPolicy reads a YAML policy file. Keys absent from the file keep their
// default values.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from user config
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy over the defaults and validates it.
func ParsePolicy(data []byte) (Policy, error) {
	policy := DefaultPolicy()
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("failed to parse policy: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// Validate checks that every weight names a known category and is
// non-negative, which keeps the score monotonic.
func (p Policy) Validate() error {
	known := make(map[Category]bool, len(Categories))
	for _, c := range Categories {
		known[c] = true
	}

	var unknown []string
	for category, weight := range p.Weights {
		if !known[category] {
			unknown = append(unknown, string(category))
			continue
		}
		if weight < 0 {
			return fmt.Errorf("%w: weight for %s is negative (%d)", ErrInvalidPolicy, category, weight)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: unknown categories %v", ErrInvalidPolicy, unknown)
	}
	if p.LowReputationScore < 0 || p.ComplaintThreshold < 0 || p.HighVolumeComplaints < 0 || p.MinCompanyAgeYears < 0 {
		return fmt.Errorf("%w: thresholds must be non-negative", ErrInvalidPolicy)
	}
	return nil
}

// WithClock returns a copy of p that uses now to compute company age.
func (p Policy) WithClock(now func() time.Time) Policy {
	p.now = now
	return p
}

func (p Policy) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}
