package risk

import (
	"fmt"
	"strings"
	"time"
)

// Check names one of the independent analyses feeding the aggregator.
type Check string

// Checks run for a comprehensive analysis.
const (
	CheckStatus     Check = "status"
	CheckReputation Check = "reputation"
	CheckLegal      Check = "legal"
)

// AllChecks lists the checks in their fixed join order.
var AllChecks = []Check{CheckStatus, CheckReputation, CheckLegal}

// Tier is the coarse risk bucket derived from the score.
type Tier string

// Risk tiers.
const (
	TierLow      Tier = "BAIXO"
	TierMedium   Tier = "MEDIO"
	TierHigh     Tier = "ALTO"
	TierCritical Tier = "CRITICO"
)

// Confidence reflects how many checks produced usable data.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceReduced Confidence = "reduced"
	ConfidenceLow     Confidence = "low"
)

// MaxScore caps the aggregated score.
const MaxScore = 100

// RedFlag is a triggered category and the points it contributed.
type RedFlag struct {
	Category Category `json:"category"`
	Check    Check    `json:"check"`
	Points   int      `json:"points"`
	Detail   string   `json:"detail"`
}

// Assessment is the deterministic outcome of aggregating check fields.
type Assessment struct {
	Score          int        `json:"risk_score"`
	Tier           Tier       `json:"risk_level"`
	RedFlags       []RedFlag  `json:"red_flags"`
	Recommendation string     `json:"recommendation"`
	NextSteps      []string   `json:"next_steps"`
	Confidence     Confidence `json:"confidence"`
	Unknown        []Check    `json:"unknown_checks,omitempty"`
}

// TierFor maps a score to its tier.
func TierFor(score int) Tier {
	switch {
	case score >= 75:
		return TierCritical
	case score >= 50:
		return TierHigh
	case score >= 25:
		return TierMedium
	default:
		return TierLow
	}
}

// Assess scores the given check results. A nil or missing entry means the
// check produced no usable data; it adds nothing and is reported in Unknown.
func (p Policy) Assess(results map[Check]Fields) Assessment {
	var unknown []Check
	for _, check := range AllChecks {
		if results[check] == nil {
			unknown = append(unknown, check)
		}
	}

	view := newView(results)
	var (
		flags []RedFlag
		score int
	)
	for _, category := range Categories {
		rule, ok := rules[category]
		if !ok {
			continue
		}
		check, detail, hit := rule(p, view)
		if !hit {
			continue
		}
		points := p.Weights[category]
		flags = append(flags, RedFlag{Category: category, Check: check, Points: points, Detail: detail})
		score += points
	}
	if score > MaxScore {
		score = MaxScore
	}

	tier := TierFor(score)
	return Assessment{
		Score:          score,
		Tier:           tier,
		RedFlags:       flags,
		Recommendation: Recommendation(tier),
		NextSteps:      NextSteps(tier),
		Confidence:     confidenceFor(len(unknown), len(AllChecks)),
		Unknown:        unknown,
	}
}

func confidenceFor(unknown, total int) Confidence {
	switch {
	case unknown == 0:
		return ConfidenceHigh
	case unknown >= total:
		return ConfidenceLow
	default:
		return ConfidenceReduced
	}
}

// Recommendation returns the advice attached to a tier.
func Recommendation(tier Tier) string {
	switch tier {
	case TierCritical:
		return "EVITAR: não recomendamos negociar com este lojista"
	case TierHigh:
		return "CUIDADO: investigue a fundo antes de negociar"
	case TierMedium:
		return "CAUTELA: prossiga somente após verificações adicionais"
	default:
		return "APARENTEMENTE SEGURO: prossiga com a cautela habitual"
	}
}

// NextSteps returns the suggested follow-up actions for a tier.
func NextSteps(tier Tier) []string {
	switch tier {
	case TierCritical:
		return []string{
			"Não feche negócio com este lojista",
			"Procure outros vendedores",
			"Se já houve pagamento ou contrato, consulte um advogado",
		}
	case TierHigh:
		return []string{
			"Exija documentação adicional da empresa",
			"Confirme o credenciamento junto a entidades do setor",
			"Visite o estabelecimento pessoalmente",
			"Converse com clientes recentes",
		}
	case TierMedium:
		return []string{
			"Confira com atenção os documentos do veículo",
			"Peça referências de outros compradores",
			"Faça uma vistoria técnica independente",
			"Negocie garantias adicionais por escrito",
		}
	default:
		return []string{
			"Confira a documentação padrão",
			"Faça um test drive completo",
			"Confirme a procedência do veículo",
		}
	}
}

// view gives rules uniform access to the per-check fields.
type view struct {
	status     Fields
	reputation Fields
	legal      Fields
}

func newView(results map[Check]Fields) view {
	status := results[CheckStatus]
	// Status answers sometimes nest registry data under company_data.
	if nested := status.Fields("company_data"); nested != nil {
		merged := Fields{}
		for k, v := range nested {
			merged[k] = v
		}
		for k, v := range status {
			if k != "company_data" {
				merged[k] = v
			}
		}
		status = merged
	}
	return view{
		status:     status,
		reputation: results[CheckReputation],
		legal:      results[CheckLegal],
	}
}

type rule func(p Policy, v view) (Check, string, bool)

var rules = map[Category]rule{
	CategoryRegistrationIrregular: registrationIrregular,
	CategoryFraudLitigation:       fraudLitigation,
	CategoryUnansweredComplaints:  unansweredComplaints,
	CategoryNegativeMedia:         negativeMedia,
	CategoryYoungHighVolume:       youngHighVolume,
	CategoryCNAEMismatch:          cnaeMismatch,
}

var (
	unansweredTerms = []string{
		"sem resposta", "não respondid", "não responde", "não atendid",
		"ignora reclamações", "sem retorno",
	}
	mediaTerms = []string{
		"reportagem", "notícia", "imprensa", "mídia", "jornal",
		"operação policial", "polícia",
	}
)

func registrationIrregular(p Policy, v view) (Check, string, bool) {
	situation := v.status.String("situacao_cadastral")
	if IsPlaceholder(situation) {
		return "", "", false
	}
	if match, ok := containsAny(situation, p.IrregularStatuses); ok {
		return CheckStatus, "situação cadastral " + strings.ToUpper(match), true
	}
	return "", "", false
}

func fraudLitigation(_ Policy, v view) (Check, string, bool) {
	if indicators := v.legal.Strings("fraud_indicators"); len(indicators) > 0 {
		return CheckLegal, "indícios de fraude: " + strings.Join(indicators, "; "), true
	}
	if cases := v.legal.Strings("criminal_cases"); len(cases) > 0 {
		return CheckLegal, fmt.Sprintf("%d processo(s) criminal(is)", len(cases)), true
	}
	switch Tier(v.legal.Folded("risk_level")) {
	case TierHigh, TierCritical:
		return CheckLegal, "risco jurídico " + v.legal.String("risk_level"), true
	}
	return "", "", false
}

func unansweredComplaints(p Policy, v view) (Check, string, bool) {
	if score, ok := v.reputation.Number("reputation_score"); ok && score < p.LowReputationScore {
		return CheckReputation, fmt.Sprintf("reputação %.0f/100", score), true
	}
	if count, ok := v.reputation.Number("complaint_count"); ok && count >= p.ComplaintThreshold {
		return CheckReputation, fmt.Sprintf("%.0f reclamações registradas", count), true
	}
	text := joinText(v.reputation, "main_issues", "red_flags")
	if match, ok := containsAny(text, unansweredTerms); ok {
		return CheckReputation, "reclamações " + match, true
	}
	return "", "", false
}

func negativeMedia(_ Policy, v view) (Check, string, bool) {
	if investigations := v.legal.Strings("investigations"); len(investigations) > 0 {
		return CheckLegal, "investigações: " + strings.Join(investigations, "; "), true
	}
	if news := v.legal.Strings("negative_media"); len(news) > 0 {
		return CheckLegal, "mídia negativa: " + strings.Join(news, "; "), true
	}
	// Summaries are skipped: they often say "no news found".
	for _, src := range []struct {
		check  Check
		fields Fields
	}{
		{CheckLegal, v.legal},
		{CheckReputation, v.reputation},
		{CheckStatus, v.status},
	} {
		if match, ok := containsAny(joinText(src.fields, "red_flags"), mediaTerms); ok {
			return src.check, "menção a " + match, true
		}
	}
	return "", "", false
}

func youngHighVolume(p Policy, v view) (Check, string, bool) {
	age, ok := companyAge(v.status, p.clock())
	if !ok || age >= p.MinCompanyAgeYears {
		return "", "", false
	}
	size := v.status.Folded("porte_empresa") + " " + v.reputation.Folded("business_size")
	if strings.Contains(size, "MEDIA") || strings.Contains(size, "GRANDE") {
		return CheckStatus, fmt.Sprintf("empresa com %.1f ano(s) e porte elevado", age), true
	}
	if count, ok := v.reputation.Number("complaint_count"); ok && count >= p.HighVolumeComplaints {
		return CheckReputation, fmt.Sprintf("empresa com %.1f ano(s) e %.0f reclamações", age, count), true
	}
	return "", "", false
}

func cnaeMismatch(_ Policy, v view) (Check, string, bool) {
	if strings.HasPrefix(v.status.Folded("adequacao_cnae"), "NAO") {
		return CheckStatus, "atividade (CNAE) incompatível com venda de veículos", true
	}
	return "", "", false
}

// companyAge prefers an explicit age and falls back to the opening date.
func companyAge(status Fields, now time.Time) (float64, bool) {
	if age, ok := status.Number("anos_funcionamento"); ok && age >= 0 {
		return age, true
	}
	opened := status.String("data_abertura")
	for _, layout := range []string{"02/01/2006", "2006-01-02", "01/2006", "2006"} {
		t, err := time.Parse(layout, opened)
		if err != nil {
			continue
		}
		age := now.Sub(t).Hours() / (24 * 365.25)
		if age < 0 {
			return 0, false
		}
		return age, true
	}
	return 0, false
}

func joinText(f Fields, keys ...string) string {
	var parts []string
	for _, key := range keys {
		if s := f.Strings(key); len(s) > 0 {
			parts = append(parts, s...)
		}
	}
	return strings.Join(parts, " ")
}
