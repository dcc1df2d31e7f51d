package report

import (
	"sort"
	"strings"

	"cvdwbi/internal/lead"
)

// Unknown labels leads whose source or agent is blank.
const Unknown = "Não Informado"

type Category string

const (
	CategorySale        Category = "venda"
	CategoryReservation Category = "reserva"
	CategoryNegotiation Category = "negociacao"
	CategoryOther       Category = "outros"
)

var (
	saleTerms        = []string{"venda", "vendido", "sold"}
	reservationTerms = []string{"reserva"}
	negotiationTerms = []string{"negocia", "follow", "atendimento", "contato"}
)

// Categorize maps free-text CRM status to a pipeline category. Sale wins
// over reservation, reservation over negotiation.
func Categorize(status string) Category {
	s := Fold(status)
	switch {
	case s == "":
		return CategoryOther
	case containsAny(s, saleTerms):
		return CategorySale
	case containsAny(s, reservationTerms):
		return CategoryReservation
	case containsAny(s, negotiationTerms):
		return CategoryNegotiation
	default:
		return CategoryOther
	}
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

type sourceAlias struct {
	key  string
	name string
}

// sourceAliases is matched in order; longer keys come before their prefixes.
var sourceAliases = []sourceAlias{
	{"painel gestor", "Gestor"},
	{"meta ads", "Facebook"},
	{"meta org", "Meta Org"},
	{"chatbot", "WhatsApp"},
	{"botmaker", "WhatsApp"},
	{"whatsapp", "WhatsApp"},
	{"facebook", "Facebook"},
	{"instagram", "Instagram"},
	{"insta", "Instagram"},
	{"meta", "Meta Org"},
	{"ugello", "Ugello"},
	{"portal", "Portal"},
	{"gestor", "Gestor"},
}

// NormalizeSource maps the vendor's channel names to the names used in the
// sales dashboards. Unknown channels are title-cased.
func NormalizeSource(source string) string {
	s := Fold(source)
	if s == "" {
		return Unknown
	}
	for _, a := range sourceAliases {
		if strings.Contains(s, a.key) {
			return a.name
		}
	}
	return titleCase(strings.TrimSpace(source))
}

// NormalizeAgent shortens "maria souza lima" to "Maria S".
func NormalizeAgent(name string) string {
	parts := strings.Fields(strings.ToLower(name))
	switch len(parts) {
	case 0:
		return Unknown
	case 1:
		return titleCase(parts[0])
	default:
		initial := []rune(parts[1])[0]
		return titleCase(parts[0]) + " " + strings.ToUpper(string(initial))
	}
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}

type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type StatusCounts struct {
	Sales        int `json:"vendas"`
	Reservations int `json:"reservas"`
	Negotiations int `json:"em_negociacao"`
	Other        int `json:"outros"`
}

func CountByStatus(leads []lead.Lead) StatusCounts {
	var c StatusCounts
	for _, l := range leads {
		switch Categorize(l.Status()) {
		case CategorySale:
			c.Sales++
		case CategoryReservation:
			c.Reservations++
		case CategoryNegotiation:
			c.Negotiations++
		default:
			c.Other++
		}
	}
	return c
}

// CountByRawStatus counts the status text as the CRM reports it.
func CountByRawStatus(leads []lead.Lead) map[string]int {
	out := make(map[string]int)
	for _, l := range leads {
		s := l.Status()
		if s == "" {
			s = Unknown
		}
		out[s]++
	}
	return out
}

func CountBySource(leads []lead.Lead) map[string]int {
	out := make(map[string]int)
	for _, l := range leads {
		out[NormalizeSource(l.Source())]++
	}
	return out
}

// CountByAgent groups by the first agent alias each lead carries. Leads
// without any agent are left out.
func CountByAgent(leads []lead.Lead) map[string]int {
	out := make(map[string]int)
	for _, l := range leads {
		a := l.Agent()
		if a == "" {
			continue
		}
		out[NormalizeAgent(a)]++
	}
	return out
}

// Top sorts counts descending, ties by name, and keeps n (all when n <= 0).
func Top(counts map[string]int, n int) []Count {
	out := make([]Count, 0, len(counts))
	for name, c := range counts {
		out = append(out, Count{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Rate is part/total as a percentage rounded to two decimals.
func Rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func round2(v float64) float64 {
	if v < 0 {
		return -float64(int64(-v*100+0.5)) / 100
	}
	return float64(int64(v*100+0.5)) / 100
}
