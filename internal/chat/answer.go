package chat

import (
	"fmt"
	"strings"
	"time"

	"cvdwbi/internal/lead"
	"cvdwbi/internal/report"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// buildReport renders the plain-text answer for a category.
func buildReport(cat Category, leads []lead.Lead, now time.Time) string {
	var b strings.Builder
	switch cat {
	case CategoryMonthly:
		writeMonthly(&b, leads, now)
	case CategoryQuantitative:
		writeQuantitative(&b, leads)
	case CategorySources:
		writeRanking(&b, "ORIGENS DE LEADS", report.Top(report.CountBySource(leads), 10), len(leads))
	case CategoryPerformance:
		writePerformance(&b, leads)
	case CategoryAgents:
		writeRanking(&b, "RESPONSÁVEIS", report.Top(report.CountByAgent(leads), 10), len(leads))
	case CategoryTemporal:
		writeTemporal(&b, leads, now)
	default:
		writeGeneral(&b, leads, now)
	}
	fmt.Fprintf(&b, "\nAtualizado: %s | Fonte: API CVDW", now.Format("02/01/2006 15:04"))
	return b.String()
}

func writeMonthly(b *strings.Builder, leads []lead.Lead, now time.Time) {
	s := report.Summarize(leads, report.PreviousClosedMonth(now), now)
	fmt.Fprintf(b, "RELATÓRIO - %s\n\n", strings.ToUpper(s.Period.Label))
	fmt.Fprintf(b, "Base total: %s leads\n\n", ptBR.Sprintf("%d", len(leads)))
	b.WriteString("MÉTRICAS PRINCIPAIS:\n")
	fmt.Fprintf(b, "• Total de leads: %d\n", s.TotalLeads)
	fmt.Fprintf(b, "• Vendas realizadas: %d (%.2f%%)\n", s.Sales, s.SalesRate)
	fmt.Fprintf(b, "• Reservas: %d (%.2f%%)\n", s.Reservations, s.ReservationRate)
	fmt.Fprintf(b, "• Em negociação: %d\n", s.Negotiations)

	if len(s.TopSources) > 0 {
		b.WriteString("\nTOP ORIGENS DE LEADS:\n")
		for i, c := range s.TopSources {
			fmt.Fprintf(b, "%d. %s: %d leads\n", i+1, c.Name, c.Count)
		}
	}
	fmt.Fprintf(b, "\nTAXA DE CONVERSÃO TOTAL: %.1f%%\n", s.SalesRate+s.ReservationRate)
	if s.TotalLeads == 0 {
		b.WriteString("\nNenhum lead encontrado no período especificado.\n")
	}
}

func writeQuantitative(b *strings.Builder, leads []lead.Lead) {
	st := report.CountByStatus(leads)
	fmt.Fprintf(b, "Total de leads na base: %s\n\n", ptBR.Sprintf("%d", len(leads)))
	fmt.Fprintf(b, "• Vendas: %d\n", st.Sales)
	fmt.Fprintf(b, "• Reservas: %d\n", st.Reservations)
	fmt.Fprintf(b, "• Em negociação: %d\n", st.Negotiations)
	fmt.Fprintf(b, "• Outros: %d\n", st.Other)
}

func writeRanking(b *strings.Builder, title string, top []report.Count, total int) {
	fmt.Fprintf(b, "TOP %s (%s leads analisados):\n", title, ptBR.Sprintf("%d", total))
	if len(top) == 0 {
		b.WriteString("Nenhum dado disponível.\n")
		return
	}
	for i, c := range top {
		fmt.Fprintf(b, "%d. %s: %d leads (%.1f%%)\n", i+1, c.Name, c.Count, report.Rate(c.Count, total))
	}
}

func writePerformance(b *strings.Builder, leads []lead.Lead) {
	st := report.CountByStatus(leads)
	n := len(leads)
	b.WriteString("PERFORMANCE DO FUNIL:\n")
	fmt.Fprintf(b, "• Vendas: %d (%.2f%%)\n", st.Sales, report.Rate(st.Sales, n))
	fmt.Fprintf(b, "• Reservas: %d (%.2f%%)\n", st.Reservations, report.Rate(st.Reservations, n))
	fmt.Fprintf(b, "• Em negociação: %d (%.2f%%)\n", st.Negotiations, report.Rate(st.Negotiations, n))
	fmt.Fprintf(b, "• Conversão total: %.2f%%\n", report.Rate(st.Sales+st.Reservations, n))

	if top := report.Top(report.CountByRawStatus(leads), 5); len(top) > 0 {
		b.WriteString("\nSITUAÇÕES MAIS FREQUENTES:\n")
		for _, c := range top {
			fmt.Fprintf(b, "• %s: %d\n", c.Name, c.Count)
		}
	}
}

func writeTemporal(b *strings.Builder, leads []lead.Lead, now time.Time) {
	a := report.RecentActivity(leads, now)
	b.WriteString("ATIVIDADE RECENTE:\n")
	if a.FirstDate != "" {
		fmt.Fprintf(b, "• Período da base: %s a %s\n", a.FirstDate, a.LastDate)
	}
	fmt.Fprintf(b, "• Últimos 30 dias: %d leads\n", a.Last30Days)
	fmt.Fprintf(b, "• Últimos 7 dias: %d leads\n", a.Last7Days)
	fmt.Fprintf(b, "• Média diária (30 dias): %.1f\n", a.DailyAverage)
	if a.Undated > 0 {
		fmt.Fprintf(b, "• Sem data de cadastro: %d\n", a.Undated)
	}
}

func writeGeneral(b *strings.Builder, leads []lead.Lead, now time.Time) {
	o := report.BuildOverview(leads, now)
	b.WriteString("ANÁLISE COMPLETA\n\n")
	fmt.Fprintf(b, "Base analisada: %s leads\n", ptBR.Sprintf("%d", o.TotalLeads))
	fmt.Fprintf(b, "Período recente (30 dias): %d leads\n\n", o.Activity.Last30Days)

	b.WriteString("CONVERSÕES:\n")
	fmt.Fprintf(b, "• Vendas: %d (%.2f%%)\n", o.Status.Sales, o.SalesRate)
	fmt.Fprintf(b, "• Reservas: %d (%.2f%%)\n", o.Status.Reservations, report.Rate(o.Status.Reservations, o.TotalLeads))
	fmt.Fprintf(b, "• Conversão total: %.2f%%\n", report.Rate(o.Status.Sales+o.Status.Reservations, o.TotalLeads))

	if len(o.TopAgents) > 0 {
		b.WriteString("\nTOP RESPONSÁVEIS:\n")
		for _, c := range o.TopAgents[:min(3, len(o.TopAgents))] {
			fmt.Fprintf(b, "• %s: %d leads\n", c.Name, c.Count)
		}
	}
	fmt.Fprintf(b, "\nQualidade dos dados: %s (%.1f%% de preenchimento)\n", o.Quality.Score, o.Quality.AverageCoverage)
}
