package report

import (
	"sort"
	"time"

	"cvdwbi/internal/lead"
)

type Summary struct {
	Period          Period  `json:"period"`
	TotalLeads      int     `json:"total_leads"`
	Sales           int     `json:"vendas"`
	Reservations    int     `json:"reservas"`
	Negotiations    int     `json:"em_negociacao"`
	SalesRate       float64 `json:"taxa_vendas"`
	ReservationRate float64 `json:"taxa_reservas"`
	TopSources      []Count `json:"top_origens"`
	GeneratedAt     string  `json:"data_analise"`
	Message         string  `json:"message,omitempty"`
}

// Summarize is the period headline: totals, pipeline counts, conversion
// rates and the three biggest channels.
func Summarize(leads []lead.Lead, p Period, now time.Time) Summary {
	inPeriod := FilterByPeriod(leads, p)
	s := Summary{
		Period:      p,
		TotalLeads:  len(inPeriod),
		GeneratedAt: now.Format("02/01/2006 15:04"),
		TopSources:  []Count{},
	}
	if len(inPeriod) == 0 {
		s.Message = "Nenhum lead encontrado no período"
		return s
	}

	st := CountByStatus(inPeriod)
	s.Sales = st.Sales
	s.Reservations = st.Reservations
	s.Negotiations = st.Negotiations
	s.SalesRate = Rate(st.Sales, s.TotalLeads)
	s.ReservationRate = Rate(st.Reservations, s.TotalLeads)
	s.TopSources = Top(CountBySource(inPeriod), 3)
	return s
}

// EssentialFields are checked by Quality.
var EssentialFields = []string{"nome", "situacao", "origem_nome", "data_cad", "email", "telefone"}

type FieldCoverage struct {
	Field    string  `json:"field"`
	Coverage float64 `json:"coverage"`
	Missing  int     `json:"missing"`
}

type QualityReport struct {
	TotalLeads      int             `json:"total_leads"`
	AverageCoverage float64         `json:"average_coverage"`
	Score           string          `json:"overall_score"`
	Fields          []FieldCoverage `json:"field_analysis"`
}

// Quality measures how often the essential fields are filled in.
func Quality(leads []lead.Lead) QualityReport {
	q := QualityReport{TotalLeads: len(leads), Fields: []FieldCoverage{}}
	if len(leads) == 0 {
		q.Score = "Insuficiente"
		return q
	}

	var sum float64
	for _, f := range EssentialFields {
		filled := 0
		for _, l := range leads {
			if l.Get(f) != "" {
				filled++
			}
		}
		cov := round1(float64(filled) / float64(len(leads)) * 100)
		q.Fields = append(q.Fields, FieldCoverage{Field: f, Coverage: cov, Missing: len(leads) - filled})
		sum += cov
	}
	q.AverageCoverage = round1(sum / float64(len(EssentialFields)))

	switch {
	case q.AverageCoverage >= 90:
		q.Score = "Excelente"
	case q.AverageCoverage >= 75:
		q.Score = "Boa"
	case q.AverageCoverage >= 60:
		q.Score = "Regular"
	default:
		q.Score = "Baixa"
	}
	return q
}

type Activity struct {
	FirstDate    string  `json:"start,omitempty"`
	LastDate     string  `json:"end,omitempty"`
	Last30Days   int     `json:"last_30_days"`
	Last7Days    int     `json:"last_7_days"`
	DailyAverage float64 `json:"daily_average"`
	Undated      int     `json:"undated"`
}

// RecentActivity counts registrations over the last 30 and 7 days.
func RecentActivity(leads []lead.Lead, now time.Time) Activity {
	var a Activity
	var dates []time.Time
	for _, l := range leads {
		t, ok := ParseLeadDate(l.CreatedAt(), now.Location())
		if !ok {
			a.Undated++
			continue
		}
		dates = append(dates, t)
	}
	if len(dates) == 0 {
		return a
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	a.FirstDate = dates[0].Format("2006-01-02")
	a.LastDate = dates[len(dates)-1].Format("2006-01-02")

	d30, d7 := now.AddDate(0, 0, -30), now.AddDate(0, 0, -7)
	for _, t := range dates {
		if !t.Before(d30) {
			a.Last30Days++
		}
		if !t.Before(d7) {
			a.Last7Days++
		}
	}
	a.DailyAverage = round1(float64(a.Last30Days) / 30)
	return a
}

// Overview bundles everything the dashboard home shows.
type Overview struct {
	TotalLeads int           `json:"total_leads"`
	Status     StatusCounts  `json:"status"`
	SalesRate  float64       `json:"taxa_vendas"`
	TopSources []Count       `json:"top_origens"`
	TopAgents  []Count       `json:"top_responsaveis"`
	Activity   Activity      `json:"activity"`
	Quality    QualityReport `json:"quality"`
}

func BuildOverview(leads []lead.Lead, now time.Time) Overview {
	st := CountByStatus(leads)
	return Overview{
		TotalLeads: len(leads),
		Status:     st,
		SalesRate:  Rate(st.Sales, len(leads)),
		TopSources: Top(CountBySource(leads), 10),
		TopAgents:  Top(CountByAgent(leads), 10),
		Activity:   RecentActivity(leads, now),
		Quality:    Quality(leads),
	}
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
