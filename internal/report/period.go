package report

import (
	"fmt"
	"strings"
	"time"

	"cvdwbi/internal/lead"
)

type PeriodKind string

const (
	PeriodPreviousMonth PeriodKind = "previous_month"
	PeriodLastDays      PeriodKind = "last_days"
)

// Period is the half-open interval [Start, End).
type Period struct {
	Kind  PeriodKind `json:"kind"`
	Label string     `json:"label"`
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"`
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// PreviousClosedMonth is the calendar month before now's, so January
// reports on December of the previous year.
func PreviousClosedMonth(now time.Time) Period {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	start := firstOfMonth.AddDate(0, -1, 0)
	return Period{
		Kind:  PeriodPreviousMonth,
		Label: fmt.Sprintf("Mês anterior fechado (%s)", start.Format("01/2006")),
		Start: start,
		End:   firstOfMonth,
	}
}

// LastNDays ends at now.
func LastNDays(now time.Time, n int) Period {
	if n <= 0 {
		n = 30
	}
	return Period{
		Kind:  PeriodLastDays,
		Label: fmt.Sprintf("Últimos %d dias", n),
		Start: now.AddDate(0, 0, -n),
		End:   now.Add(time.Nanosecond),
	}
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseLeadDate reads the CRM's registration date in any of its layouts,
// interpreting zone-less values in loc.
func ParseLeadDate(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FilterByPeriod keeps leads registered inside p. Leads without a usable
// registration date are kept.
func FilterByPeriod(leads []lead.Lead, p Period) []lead.Lead {
	out := make([]lead.Lead, 0, len(leads))
	for _, l := range leads {
		t, ok := ParseLeadDate(l.CreatedAt(), p.Start.Location())
		if !ok || p.Contains(t) {
			out = append(out, l)
		}
	}
	return out
}
