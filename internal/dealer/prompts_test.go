package dealer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/dealercheck/internal/risk"
)

func TestPromptBuilder(t *testing.T) {
	pb, err := NewPromptBuilder()
	require.NoError(t, err)
	assert.Contains(t, pb.System(), "JSON")

	data := PromptData{FormattedCNPJ: "11.222.333/0001-81", CompanyName: "Auto Sul"}

	tests := []struct {
		check   risk.Check
		wantKey string
	}{
		{risk.CheckStatus, `"situacao_cadastral"`},
		{risk.CheckReputation, `"reputation_score"`},
		{risk.CheckLegal, `"fraud_indicators"`},
	}
	for _, tt := range tests {
		t.Run(string(tt.check), func(t *testing.T) {
			prompt, err := pb.Check(tt.check, data)
			require.NoError(t, err)
			assert.Contains(t, prompt, "11.222.333/0001-81 (Auto Sul)")
			assert.Contains(t, prompt, tt.wantKey)
			assert.NotContains(t, prompt, "Preocupação do comprador")
		})
	}

	data.CompanyName = ""
	data.Concern = "exigiu pagamento via PIX antecipado"
	prompt, err := pb.Combined(data)
	require.NoError(t, err)
	assert.NotContains(t, prompt, "()")
	assert.Contains(t, prompt, "exigiu pagamento via PIX antecipado")
	for _, key := range []string{`"status"`, `"reputation"`, `"legal"`, `"adequacao_cnae"`} {
		assert.Contains(t, prompt, key)
	}

	_, err = pb.Check("images", data)
	assert.Error(t, err)
}
