package dailycache

import (
	"context"
	"sort"
	"sync"

	"cvdwbi/internal/lead"
)

// memRepo is an in-memory Repository with the same semantics as PostgresRepo.
type memRepo struct {
	mu     sync.Mutex
	runs   map[string]Run
	leads  map[string]map[int64]lead.Lead
	extras map[string][]extraRow
}

type extraRow struct {
	leadID int64
	field  lead.ExtraField
}

func newMemRepo() *memRepo {
	return &memRepo{
		runs:   make(map[string]Run),
		leads:  make(map[string]map[int64]lead.Lead),
		extras: make(map[string][]extraRow),
	}
}

func (r *memRepo) GetRun(ctx context.Context, day string) (*Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[day]
	if !ok {
		return nil, nil
	}
	run.SkippedPages = append([]int(nil), run.SkippedPages...)
	return &run, nil
}

func (r *memRepo) StartRun(ctx context.Context, run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.leads, run.Day)
	delete(r.extras, run.Day)
	r.runs[run.Day] = Run{Day: run.Day, Status: run.Status, StartedAt: run.StartedAt}
	return nil
}

func (r *memRepo) UpdateRun(ctx context.Context, run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.Day]; !ok {
		return ErrRunNotFound
	}
	cp := *run
	cp.SkippedPages = append([]int(nil), run.SkippedPages...)
	r.runs[run.Day] = cp
	return nil
}

func (r *memRepo) StorePage(ctx context.Context, day string, leads []lead.Lead) (PageStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.leads[day] == nil {
		r.leads[day] = make(map[int64]lead.Lead)
	}
	var stats PageStats
	for _, l := range leads {
		if _, dup := r.leads[day][l.ID]; dup {
			continue
		}
		r.leads[day][l.ID] = l
		stats.Leads++
		for _, f := range l.ExtraFields {
			r.extras[day] = append(r.extras[day], extraRow{leadID: l.ID, field: f})
			stats.ExtraFields++
		}
	}
	return stats, nil
}

func (r *memRepo) ListLeads(ctx context.Context, day string, limit, offset int) ([]lead.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []lead.Lead
	for _, l := range r.leads[day] {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) CountLeads(ctx context.Context, day string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.leads[day]), nil
}

func (r *memRepo) ExtraFieldSummary(ctx context.Context, day string, top int) (*ExtraFieldSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	withFields := make(map[int64]bool)
	for _, row := range r.extras[day] {
		counts[row.field.Name]++
		withFields[row.leadID] = true
	}
	sum := &ExtraFieldSummary{
		Day:                  day,
		Total:                len(r.extras[day]),
		UniqueNames:          len(counts),
		LeadsWithExtraFields: len(withFields),
		Distribution:         []FieldCount{},
	}
	for name, n := range counts {
		sum.Distribution = append(sum.Distribution, FieldCount{Name: name, Count: n})
	}
	sort.Slice(sum.Distribution, func(i, j int) bool {
		a, b := sum.Distribution[i], sum.Distribution[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	if top > 0 && len(sum.Distribution) > top {
		sum.Distribution = sum.Distribution[:top]
	}
	return sum, nil
}

func (r *memRepo) DeleteExcept(ctx context.Context, day string) (*CleanupResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res CleanupResult
	for d, rows := range r.extras {
		if d != day {
			res.ExtraFieldsRemoved += int64(len(rows))
			delete(r.extras, d)
		}
	}
	for d, m := range r.leads {
		if d != day {
			res.LeadsRemoved += int64(len(m))
			delete(r.leads, d)
		}
	}
	for d := range r.runs {
		if d != day {
			res.RunsRemoved++
			delete(r.runs, d)
		}
	}
	return &res, nil
}
