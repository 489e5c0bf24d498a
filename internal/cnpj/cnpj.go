// Package cnpj validates and formats Brazilian company tax identifiers.
package cnpj

import (
	"errors"
	"fmt"
	"strings"
)

// Length is the number of digits in a normalized CNPJ.
const Length = 14

var (
	// ErrFormat indicates the input does not contain exactly 14 digits.
	ErrFormat = errors.New("cnpj must have 14 digits")
	// ErrRepeatedDigit indicates all digits are the same, which the
	// check-digit algorithm cannot reject on its own.
	ErrRepeatedDigit = errors.New("cnpj digits are all identical")
	// ErrChecksum indicates a check digit mismatch.
	ErrChecksum = errors.New("cnpj check digits do not match")
)

var (
	firstWeights  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	secondWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// Reason names why a CNPJ was rejected.
type Reason string

const (
	// ReasonNone is set on valid identifiers.
	ReasonNone Reason = ""
	// ReasonFormat maps to ErrFormat.
	ReasonFormat Reason = "FormatError"
	// ReasonRepeatedDigit maps to ErrRepeatedDigit.
	ReasonRepeatedDigit Reason = "RepeatedDigitError"
	// ReasonChecksum maps to ErrChecksum.
	ReasonChecksum Reason = "ChecksumError"
)

// Result is the outcome of Validate.
type Result struct {
	Input      string `json:"input"`
	Normalized string `json:"normalized"`
	Formatted  string `json:"formatted,omitempty"`
	Reason     Reason `json:"reason,omitempty"`
	Valid      bool   `json:"valid"`
}

// Err returns a *ValidationError for invalid results and nil otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Input: r.Input, Reason: r.Reason}
}

// ValidationError reports a rejected identifier together with the raw input.
type ValidationError struct {
	Input  string
	Reason Reason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid CNPJ %q: %v", e.Input, e.Unwrap())
}

// Unwrap exposes the sentinel matching the rejection reason.
func (e *ValidationError) Unwrap() error {
	switch e.Reason {
	case ReasonRepeatedDigit:
		return ErrRepeatedDigit
	case ReasonChecksum:
		return ErrChecksum
	default:
		return ErrFormat
	}
}

// Validate normalizes raw and checks it against the official
// weighted modulo-11 algorithm.
func Validate(raw string) Result {
	normalized := Normalize(raw)
	result := Result{
		Input:      raw,
		Normalized: normalized,
	}

	if len(normalized) != Length {
		result.Reason = ReasonFormat
		return result
	}

	if hasAllSameDigits(normalized) {
		result.Reason = ReasonRepeatedDigit
		return result
	}

	dv1, dv2 := CheckDigits(normalized[:12])
	if int(normalized[12]-'0') != dv1 || int(normalized[13]-'0') != dv2 {
		result.Reason = ReasonChecksum
		return result
	}

	result.Valid = true
	result.Formatted = Format(normalized)
	return result
}

// Normalize strips every non-digit character.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Format renders a CNPJ as NN.NNN.NNN/NNNN-NN. Inputs that do not
// normalize to 14 digits are returned normalized but unformatted.
func Format(raw string) string {
	c := Normalize(raw)
	if len(c) != Length {
		return c
	}
	return c[:2] + "." + c[2:5] + "." + c[5:8] + "/" + c[8:12] + "-" + c[12:]
}

// CheckDigits computes both check digits for a 12-digit base.
// It panics if base is not 12 ASCII digits.
func CheckDigits(base string) (int, int) {
	if len(base) != 12 {
		panic("cnpj: check digit base must have 12 digits")
	}
	dv1 := checkDigit(base, firstWeights)
	dv2 := checkDigit(base+string(rune('0'+dv1)), secondWeights)
	return dv1, dv2
}

func checkDigit(digits string, weights []int) int {
	sum := 0
	for i, weight := range weights {
		sum += int(digits[i]-'0') * weight
	}

	remainder := sum % 11
	if remainder < 2 {
		return 0
	}
	return 11 - remainder
}

func hasAllSameDigits(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}
