package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bareStatus = `{"cnpj": "11.222.333/0001-81", "situacao_cadastral": "CANCELADA", "red_flags": ["CNPJ baixado"], "anos_funcionamento": 3}`

func TestObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantKey string
		wantErr bool
	}{
		{
			name:    "bare json",
			input:   bareStatus,
			wantKey: "situacao_cadastral",
		},
		{
			name:    "json fence with prose around it",
			input:   "Segue a análise solicitada:\n\n```json\n" + bareStatus + "\n```\n\nEspero ter ajudado!",
			wantKey: "situacao_cadastral",
		},
		{
			name:    "plain fence",
			input:   "```\n" + bareStatus + "\n```",
			wantKey: "situacao_cadastral",
		},
		{
			name:    "fence on the same line as the object",
			input:   "```json " + bareStatus + " ```",
			wantKey: "situacao_cadastral",
		},
		{
			name:    "fence glued to the object",
			input:   "```json" + bareStatus + "```",
			wantKey: "situacao_cadastral",
		},
		{
			name:    "opening brace on the fence line",
			input:   "```json {\n  \"situacao_cadastral\": \"CANCELADA\",\n  \"red_flags\": []\n}\n```",
			wantKey: "situacao_cadastral",
		},
		{
			name:    "trailing commentary without fence",
			input:   bareStatus + "\n\nObservação: dados sujeitos a confirmação {ver fontes}.",
			wantKey: "situacao_cadastral",
		},
		{
			name:    "braces inside strings",
			input:   `Resultado: {"legal_summary": "processo {sigiloso} em andamento", "criminal_cases": []} fim`,
			wantKey: "legal_summary",
		},
		{
			name:    "escaped quotes inside strings",
			input:   `{"note": "empresa \"fantasma\" {suspeita}", "ok": true}`,
			wantKey: "note",
		},
		{
			name:    "invalid first candidate then valid object",
			input:   `{not json} e depois {"reputation_score": 42}`,
			wantKey: "reputation_score",
		},
		{
			name:    "nested objects",
			input:   `texto {"outer": {"inner": {"deep": 1}}, "x": 2} texto`,
			wantKey: "outer",
		},
		{
			name:    "empty",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "prose only",
			input:   "Não foi possível encontrar informações sobre esta empresa.",
			wantErr: true,
		},
		{
			name:    "unbalanced outer falls back to balanced inner",
			input:   `{"a": {"b": 1}`,
			wantKey: "b",
		},
		{
			name:    "truncated",
			input:   `{"a": [1, 2`,
			wantErr: true,
		},
		{
			name:    "top-level scalar",
			input:   `42`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := Object(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNoJSON)
				assert.Nil(t, obj)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, obj, tt.wantKey)
		})
	}
}

func TestObjectFencedEqualsBare(t *testing.T) {
	bare, err := Object(bareStatus)
	require.NoError(t, err)

	wrapped, err := Object("Claro! Aqui está:\n```json\n" + bareStatus + "\n```\nQualquer dúvida, estou à disposição.")
	require.NoError(t, err)

	assert.Equal(t, bare, wrapped)
}

func TestObjectIdempotent(t *testing.T) {
	inputs := []string{
		bareStatus,
		"```json\n{\"score\": 12.50, \"big\": 12345678901234567890, \"list\": [1, {\"a\": null}]}\n```",
		`prefix {"nested": {"k": "v"}, "flag": false} suffix`,
	}

	for _, input := range inputs {
		first, err := Object(input)
		require.NoError(t, err)

		encoded, err := json.Marshal(first)
		require.NoError(t, err)

		second, err := Object(string(encoded))
		require.NoError(t, err)

		assert.Equal(t, first, second)
	}
}

func TestObjectPreservesNumbers(t *testing.T) {
	obj, err := Object(`{"capital_social": 150000.00, "complaint_count": 17}`)
	require.NoError(t, err)

	n, ok := obj["complaint_count"].(json.Number)
	require.True(t, ok)
	assert.Equal(t, "17", n.String())
}
