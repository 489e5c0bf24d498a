package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/dealercheck/internal/cnpj"
	"github.com/Veraticus/dealercheck/internal/dealer"
	"github.com/Veraticus/dealercheck/internal/llm"
	"github.com/Veraticus/dealercheck/internal/risk"
)

// summaryKeys are the fields shown for each check, in display order.
var summaryKeys = map[risk.Check][]string{
	risk.CheckStatus: {
		"razao_social", "nome_fantasia", "situacao_cadastral", "data_abertura",
		"anos_funcionamento", "atividade_principal", "adequacao_cnae", "porte_empresa",
		"status_summary",
	},
	risk.CheckReputation: {
		"company_name", "reputation_score", "reclame_aqui_score", "google_rating",
		"complaint_count", "response_rate", "business_size", "reputation_summary",
	},
	risk.CheckLegal: {
		"risk_level", "legal_summary",
	},
}

// listKeys are list-valued fields shown as bullets.
var listKeys = map[risk.Check][]string{
	risk.CheckStatus:     {"red_flags"},
	risk.CheckReputation: {"main_issues", "red_flags"},
	risk.CheckLegal: {
		"fraud_indicators", "criminal_cases", "civil_cases", "investigations",
		"sanctions", "negative_media",
	},
}

// FormatValidation renders an offline CNPJ validation.
func FormatValidation(result cnpj.Result) string {
	if result.Valid {
		return FormatSuccess(fmt.Sprintf("CNPJ %s is valid", result.Formatted))
	}
	return FormatError(fmt.Sprintf("CNPJ %q is invalid: %v", result.Input, result.Err()))
}

// FormatCheckResult renders a single check.
func FormatCheckResult(result dealer.CheckResult) string {
	var b strings.Builder

	title := fmt.Sprintf("%s %s", SearchIcon, checkTitle(result.Check))
	switch result.Status {
	case dealer.StatusOK:
		writeFields(&b, result)
	case dealer.StatusUnknown:
		b.WriteString(FormatWarning("No structured answer: " + result.Error))
		if result.Raw != "" {
			b.WriteString("\n\n" + SubtleStyle.Render(truncate(result.Raw, 600)))
		}
	default:
		b.WriteString(FormatError("Check failed: " + result.Error))
	}

	return RenderBox(title, strings.TrimRight(b.String(), "\n"))
}

// FormatReport renders a comprehensive report.
func FormatReport(report *dealer.Report) string {
	var b strings.Builder

	b.WriteString(FormatTitle(fmt.Sprintf("Dealer report for %s", report.FormattedCNPJ)))
	b.WriteString("\n")
	if report.CompanyName != "" {
		fmt.Fprintf(&b, "%s %s\n", BoldStyle.Render("Company:"), report.CompanyName)
	}

	tierStyle := TierStyle(report.Tier)
	fmt.Fprintf(&b, "%s %s\n",
		BoldStyle.Render("Risk:"),
		tierStyle.Render(fmt.Sprintf("%s %d/100 %s", TierIcon(report.Tier), report.Score, report.Tier)))
	fmt.Fprintf(&b, "%s %s\n", BoldStyle.Render("Recommendation:"), tierStyle.Render(report.Recommendation))
	fmt.Fprintf(&b, "%s %s", BoldStyle.Render("Confidence:"), report.Confidence)
	if len(report.Unknown) > 0 {
		names := make([]string, len(report.Unknown))
		for i, c := range report.Unknown {
			names[i] = string(c)
		}
		fmt.Fprintf(&b, " %s", SubtleStyle.Render("(no data: "+strings.Join(names, ", ")+")"))
	}
	b.WriteString("\n\n")

	if len(report.RedFlags) > 0 {
		b.WriteString(BoldStyle.Render("Red flags") + "\n")
		for _, flag := range report.RedFlags {
			fmt.Fprintf(&b, "  %s +%d %s %s\n",
				ErrorStyle.Render(ErrorIcon), flag.Points, flag.Category, SubtleStyle.Render(flag.Detail))
		}
		b.WriteString("\n")
	}

	b.WriteString(BoldStyle.Render("Next steps") + "\n")
	for i, step := range report.NextSteps {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
	}
	b.WriteString("\n")

	for _, result := range report.Checks {
		b.WriteString(FormatCheckResult(result))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s %s\n", SubtleStyle.Render("Report ID:"), SubtleStyle.Render(report.ID))
	fmt.Fprintf(&b, "%s %s\n", SubtleStyle.Render("Tokens:"),
		SubtleStyle.Render(fmt.Sprintf("%d in / %d out", report.Usage.InputTokens, report.Usage.OutputTokens)))
	return b.String()
}

// FormatUsage renders a token and cost summary.
func FormatUsage(summary llm.UsageSummary) string {
	if summary.TotalRequests == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", MoneyIcon, BoldStyle.Render(fmt.Sprintf(
		"Estimated cost: $%.4f (%d requests, %d tokens)",
		summary.TotalCostUSD, summary.TotalRequests, summary.TotalTokens)))

	models := make([]string, 0, len(summary.ByModel))
	for model := range summary.ByModel {
		models = append(models, model)
	}
	sort.Strings(models)
	for _, model := range models {
		totals := summary.ByModel[model]
		fmt.Fprintf(&b, "  %s: $%.4f (%d requests, %d tokens)\n", model, totals.CostUSD, totals.Requests, totals.Tokens)
	}
	return b.String()
}

func writeFields(b *strings.Builder, result dealer.CheckResult) {
	for _, key := range summaryKeys[result.Check] {
		if !result.Fields.Present(key) {
			continue
		}
		fmt.Fprintf(b, "%s %s\n", BoldStyle.Render(label(key)+":"), result.Fields.String(key))
	}
	for _, key := range listKeys[result.Check] {
		items := result.Fields.Strings(key)
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(b, "%s\n", BoldStyle.Render(label(key)+":"))
		for _, item := range items {
			fmt.Fprintf(b, "  • %s\n", item)
		}
	}
}

func checkTitle(check risk.Check) string {
	switch check {
	case risk.CheckStatus:
		return "Registration status"
	case risk.CheckReputation:
		return "Reputation"
	case risk.CheckLegal:
		return "Legal issues"
	default:
		return string(check)
	}
}

func label(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
