package cnpj

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		normalized string
		reason     Reason
		valid      bool
	}{
		{
			name:       "textbook sample formatted",
			input:      "11.222.333/0001-81",
			normalized: "11222333000181",
			valid:      true,
		},
		{
			name:       "textbook sample bare",
			input:      "11222333000181",
			normalized: "11222333000181",
			valid:      true,
		},
		{
			name:       "last digit altered",
			input:      "11.222.333/0001-80",
			normalized: "11222333000180",
			reason:     ReasonChecksum,
		},
		{
			name:       "first check digit altered",
			input:      "11.222.333/0001-91",
			normalized: "11222333000191",
			reason:     ReasonChecksum,
		},
		{
			name:       "too short",
			input:      "11.222.333/0001",
			normalized: "112223330001",
			reason:     ReasonFormat,
		},
		{
			name:       "too long",
			input:      "112223330001811",
			normalized: "112223330001811",
			reason:     ReasonFormat,
		},
		{
			name:   "empty",
			input:  "",
			reason: ReasonFormat,
		},
		{
			name:       "all zeros",
			input:      "00.000.000/0000-00",
			normalized: "00000000000000",
			reason:     ReasonRepeatedDigit,
		},
		{
			name:       "surrounding noise",
			input:      " CNPJ: 11 222 333 0001 81 ",
			normalized: "11222333000181",
			valid:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.input)
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.normalized, got.Normalized)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Equal(t, tt.input, got.Input)
			if tt.valid {
				assert.NoError(t, got.Err())
				assert.Equal(t, "11.222.333/0001-81", got.Formatted)
			}
		})
	}
}

func TestValidateRepeatedDigits(t *testing.T) {
	for d := '0'; d <= '9'; d++ {
		raw := strings.Repeat(string(d), Length)
		t.Run(raw, func(t *testing.T) {
			got := Validate(raw)
			assert.False(t, got.Valid)
			assert.Equal(t, ReasonRepeatedDigit, got.Reason)
			assert.ErrorIs(t, got.Err(), ErrRepeatedDigit)
		})
	}
}

func TestValidateGeneratedIdentifiers(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		var b strings.Builder
		for j := 0; j < 12; j++ {
			b.WriteByte(byte('0' + rng.Intn(10)))
		}
		base := b.String()
		dv1, dv2 := CheckDigits(base)
		valid := fmt.Sprintf("%s%d%d", base, dv1, dv2)

		if hasAllSameDigits(valid) {
			continue
		}

		require.True(t, Validate(valid).Valid, "expected %s to be valid", valid)

		wrong1 := fmt.Sprintf("%s%d%d", base, (dv1+1)%10, dv2)
		wrong2 := fmt.Sprintf("%s%d%d", base, dv1, (dv2+1)%10)

		got1 := Validate(wrong1)
		assert.False(t, got1.Valid, wrong1)
		assert.Equal(t, ReasonChecksum, got1.Reason)

		got2 := Validate(wrong2)
		assert.False(t, got2.Valid, wrong2)
		assert.Equal(t, ReasonChecksum, got2.Reason)
	}
}

func TestValidationError(t *testing.T) {
	err := Validate("11.222.333/0001-80").Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChecksum)
	assert.Contains(t, err.Error(), "11.222.333/0001-80")

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, ReasonChecksum, vErr.Reason)

	assert.ErrorIs(t, Validate("123").Err(), ErrFormat)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "11.222.333/0001-81", Format("11222333000181"))
	assert.Equal(t, "11.222.333/0001-81", Format("11.222.333/0001-81"))
	assert.Equal(t, "123", Format("1-2-3"))
}

func TestCheckDigits(t *testing.T) {
	dv1, dv2 := CheckDigits("112223330001")
	assert.Equal(t, 8, dv1)
	assert.Equal(t, 1, dv2)

	assert.Panics(t, func() { CheckDigits("123") })
}
