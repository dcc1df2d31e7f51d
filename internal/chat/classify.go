package chat

import (
	"strings"

	"cvdwbi/internal/report"
)

type Category string

const (
	CategoryMonthly      Category = "MONTHLY"
	CategoryQuantitative Category = "QUANTITATIVE"
	CategorySources      Category = "SOURCES"
	CategoryPerformance  Category = "PERFORMANCE"
	CategoryAgents       Category = "AGENTS"
	CategoryTemporal     Category = "TEMPORAL"
	CategoryGeneral      Category = "GENERAL"
)

type rule struct {
	category Category
	words    []string
	phrases  []string
}

// rules are checked in order against the folded query. Monthly questions
// come first because they get the closed-month report even when they also
// ask "how many".
var rules = []rule{
	{
		category: CategoryMonthly,
		words:    []string{"mes", "ultimo", "ultima", "mensal", "anterior"},
		phrases:  []string{"reservas e vendas"},
	},
	{
		category: CategoryQuantitative,
		words:    []string{"quantos", "quantas", "total", "totais", "numero", "quantidade"},
	},
	{
		category: CategorySources,
		words:    []string{"origem", "origens", "canal", "canais"},
	},
	{
		category: CategoryPerformance,
		words:    []string{"situacao", "situacoes", "status", "performance", "conversao"},
	},
	{
		category: CategoryAgents,
		words:    []string{"sdr", "sdrs", "responsavel", "responsaveis", "corretor", "corretores", "gestor", "gestores"},
	},
	{
		category: CategoryTemporal,
		words:    []string{"periodo", "data", "datas", "tempo", "recente", "recentes", "semana"},
	},
}

// Classify buckets a free-text question by keyword. Matching ignores case
// and accents; single words must match a whole token.
func Classify(query string) Category {
	q := Normalize(query)
	if q == "" {
		return CategoryGeneral
	}
	tokens := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(q, isSeparator) {
		tokens[tok] = true
	}

	for _, r := range rules {
		for _, p := range r.phrases {
			if strings.Contains(q, p) {
				return r.category
			}
		}
		for _, w := range r.words {
			if tokens[w] {
				return r.category
			}
		}
	}
	return CategoryGeneral
}

// Normalize folds accents and case and collapses whitespace.
func Normalize(query string) string {
	return strings.Join(strings.Fields(report.Fold(query)), " ")
}

func isSeparator(r rune) bool {
	switch r {
	case ' ', ',', '.', '?', '!', ';', ':', '"', '\'', '(', ')', '/', '-':
		return true
	}
	return false
}
