package dealer

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/Veraticus/dealercheck/internal/risk"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// PromptData is the input to every prompt template.
type PromptData struct {
	FormattedCNPJ string
	CompanyName   string
	Concern       string
}

// PromptBuilder renders the per-check prompts.
type PromptBuilder struct {
	templates *template.Template
	system    string
}

// NewPromptBuilder parses the embedded templates.
func NewPromptBuilder() (*PromptBuilder, error) {
	tmpl, err := template.New("prompts").ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}

	var system bytes.Buffer
	if err := tmpl.ExecuteTemplate(&system, "system.tmpl", nil); err != nil {
		return nil, fmt.Errorf("failed to execute system template: %w", err)
	}

	return &PromptBuilder{
		templates: tmpl,
		system:    strings.TrimSpace(system.String()),
	}, nil
}

// System returns the shared system prompt.
func (pb *PromptBuilder) System() string {
	return pb.system
}

// Check renders the prompt for a single check.
func (pb *PromptBuilder) Check(check risk.Check, data PromptData) (string, error) {
	return pb.execute(string(check)+".tmpl", data)
}

// Combined renders the prompt that asks for all checks at once.
func (pb *PromptBuilder) Combined(data PromptData) (string, error) {
	return pb.execute("combined.tmpl", data)
}

func (pb *PromptBuilder) execute(name string, data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := pb.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
