package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cvdwbi/internal/dailycache"
	"cvdwbi/internal/httpx"
	"cvdwbi/internal/lead"
	"cvdwbi/internal/platform/logx"
	"cvdwbi/internal/querycache"

	"github.com/rs/zerolog"
)

// LeadSource is the read side of the daily cache.
type LeadSource interface {
	GetAllRecords(ctx context.Context) ([]lead.Lead, error)
	CollectAsync(ctx context.Context) bool
	Today() string
}

// ResultCache memoizes computed reports. *querycache.Cache satisfies it.
type ResultCache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
}

type HTTPHandler struct {
	src   LeadSource
	cache ResultCache
	now   func() time.Time
	log   zerolog.Logger
}

type Option func(*HTTPHandler)

// WithCache memoizes report results per collection day.
func WithCache(c ResultCache) Option { return func(h *HTTPHandler) { h.cache = c } }

func NewHTTPHandler(src LeadSource, loc *time.Location, opts ...Option) *HTTPHandler {
	if loc == nil {
		loc = time.Local
	}
	h := &HTTPHandler{
		src: src,
		now: func() time.Time { return time.Now().In(loc) },
		log: logx.With("report"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type breakdown struct {
	By     string  `json:"by"`
	Total  int     `json:"total_leads"`
	Counts []Count `json:"counts"`
}

// Summary handles GET /v1/reports/summary?period=previous_month|last_days&days=30
func (h *HTTPHandler) Summary(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	q := r.URL.Query()

	var p Period
	switch PeriodKind(q.Get("period")) {
	case "", PeriodPreviousMonth:
		p = PreviousClosedMonth(now)
	case PeriodLastDays:
		days := 30
		if raw := q.Get("days"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 366 {
				httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid days",
					[]httpx.ErrorDetail{{Field: "days", Message: "must be between 1 and 366"}})
				return
			}
			days = n
		}
		p = LastNDays(now, days)
	default:
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid period",
			[]httpx.ErrorDetail{{Field: "period", Message: "must be previous_month or last_days"}})
		return
	}

	h.respond(w, r, []string{"summary", string(p.Kind), p.Start.Format(time.DateOnly), p.End.Format(time.DateOnly)}, func(leads []lead.Lead) any {
		return Summarize(leads, p, now)
	})
}

// Breakdown handles GET /v1/reports/breakdown?by=status|source|agent&limit=10
func (h *HTTPHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	by := q.Get("by")
	if by == "" {
		by = "status"
	}
	if by != "status" && by != "source" && by != "agent" {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid by",
			[]httpx.ErrorDetail{{Field: "by", Message: "must be status, source or agent"}})
		return
	}
	limit := 10
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid limit",
				[]httpx.ErrorDetail{{Field: "limit", Message: "must be a non-negative integer"}})
			return
		}
		limit = n
	}

	h.respond(w, r, []string{"breakdown", by, strconv.Itoa(limit)}, func(leads []lead.Lead) any {
		var counts map[string]int
		switch by {
		case "status":
			counts = CountByRawStatus(leads)
		case "source":
			counts = CountBySource(leads)
		case "agent":
			counts = CountByAgent(leads)
		}
		return breakdown{By: by, Total: len(leads), Counts: Top(counts, limit)}
	})
}

// Overview handles GET /v1/reports/overview
func (h *HTTPHandler) Overview(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	h.respond(w, r, []string{"overview", now.Format(time.DateOnly)}, func(leads []lead.Lead) any {
		return BuildOverview(leads, now)
	})
}

// respond serves a memoized result for today's partition, or builds it from
// the leads and stores it. Cache failures only cost the memoization.
func (h *HTTPHandler) respond(w http.ResponseWriter, r *http.Request, parts []string, build func([]lead.Lead) any) {
	ctx := r.Context()
	key := "report:" + querycache.Key(append([]string{h.src.Today()}, parts...)...)

	if h.cache != nil {
		var raw json.RawMessage
		hit, err := h.cache.GetJSON(ctx, key, &raw)
		switch {
		case err != nil:
			h.log.Warn().Err(err).Str("report", parts[0]).Msg("report cache read failed")
		case hit:
			httpx.JSONSuccess(w, r, raw, nil)
			return
		}
	}

	leads, ok := h.leads(w, r)
	if !ok {
		return
	}
	res := build(leads)
	if h.cache != nil {
		if err := h.cache.SetJSON(ctx, key, res); err != nil {
			h.log.Warn().Err(err).Str("report", parts[0]).Msg("report cache write failed")
		}
	}
	httpx.JSONSuccess(w, r, res, nil)
}

func (h *HTTPHandler) leads(w http.ResponseWriter, r *http.Request) ([]lead.Lead, bool) {
	leads, err := h.src.GetAllRecords(r.Context())
	if errors.Is(err, dailycache.ErrNotReady) {
		h.src.CollectAsync(r.Context())
		w.Header().Set("Retry-After", "60")
		httpx.JSONError(w, r, http.StatusServiceUnavailable, "NOT_READY", "lead data for today is being collected, try again later", nil)
		return nil, false
	}
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return nil, false
	}
	return leads, true
}
