package risk

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fields is the loosely typed object extracted from a model response.
// Accessors never fail; missing or mistyped values yield zero values.
type Fields map[string]any

var numberPattern = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)

// placeholders are values models use to say "no information".
var placeholders = map[string]bool{
	"":                true,
	"N/A":             true,
	"NA":              true,
	"NULL":            true,
	"NONE":            true,
	"-":               true,
	"NENHUM":          true,
	"NENHUMA":         true,
	"NAO INFORMADO":   true,
	"NAO DISPONIVEL":  true,
	"NAO ENCONTRADO":  true,
	"NAO ENCONTRADA":  true,
	"SEM INFORMACOES": true,
}

// absencePrefixes open sentences that report nothing was found, such as
// "Nenhum processo criminal encontrado". A bare "SEM" is not enough:
// "Sem alvará de funcionamento" is a finding.
var absencePrefixes = []string{
	"NENHUM ",
	"NENHUMA ",
	"NAO CONSTA",
	"NAO FORAM ",
	"NAO FOI ",
	"NAO HA ",
	"NAO EXISTE",
	"INEXISTE",
	"SEM REGISTRO",
	"SEM OCORRENCIA",
	"SEM PROCESSO",
	"SEM INDICIO",
	"SEM NOTICIA",
	"SEM INFORMAC",
	"SEM DADOS",
	"SEM RECLAMAC",
}

// String returns the value at key rendered as trimmed text.
func (f Fields) String(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Folded returns String(key) upper-cased with accents removed.
func (f Fields) Folded(key string) string {
	return Fold(f.String(key))
}

// Present reports whether key holds a meaningful value.
func (f Fields) Present(key string) bool {
	return !IsPlaceholder(f.String(key))
}

// Strings returns the non-placeholder entries of a list value. A scalar
// string is treated as a one-element list.
func (f Fields) Strings(key string) []string {
	var out []string
	switch v := f[key].(type) {
	case []any:
		for _, item := range v {
			s := strings.TrimSpace(fmt.Sprint(item))
			if item == nil || IsPlaceholder(s) {
				continue
			}
			out = append(out, s)
		}
	case []string:
		for _, s := range v {
			if !IsPlaceholder(s) {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		if !IsPlaceholder(v) {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}

// Number returns the first number found at key. Strings such as "42/100",
// "7,5" or "3 anos" are accepted.
func (f Fields) Number(key string) (float64, bool) {
	switch v := f[key].(type) {
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		match := numberPattern.FindString(v)
		if match == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(strings.Replace(match, ",", ".", 1), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// Fields returns the nested object at key, or nil.
func (f Fields) Fields(key string) Fields {
	if nested, ok := f[key].(map[string]any); ok {
		return Fields(nested)
	}
	return nil
}

// IsPlaceholder reports whether s carries no information.
func IsPlaceholder(s string) bool {
	folded := Fold(s)
	if placeholders[folded] {
		return true
	}
	for _, prefix := range absencePrefixes {
		if strings.HasPrefix(folded, prefix) {
			return true
		}
	}
	return false
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold upper-cases s and strips diacritics so "Crítico" matches "CRITICO".
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, strings.TrimSpace(s))
	if err != nil {
		folded = s
	}
	return strings.ToUpper(folded)
}

// containsAny reports whether folded text contains any of the folded needles.
func containsAny(text string, needles []string) (string, bool) {
	folded := Fold(text)
	for _, needle := range needles {
		if strings.Contains(folded, Fold(needle)) {
			return needle, true
		}
	}
	return "", false
}
