package dailycache

import (
	"errors"
	"net/http"
	"strconv"

	"cvdwbi/internal/httpx"
	"cvdwbi/internal/lead"
	"cvdwbi/internal/platform/cvdw"
)

const (
	defaultLeadPageSize = 100
	maxLeadPageSize     = 500
)

type HTTPHandler struct {
	mgr *Manager
}

func NewHTTPHandler(mgr *Manager) *HTTPHandler {
	return &HTTPHandler{mgr: mgr}
}

type leadsPage struct {
	Leads    []lead.Lead `json:"leads"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Total    int         `json:"total"`
}

type collectAccepted struct {
	Started bool   `json:"started"`
	Day     string `json:"collection_date"`
	Message string `json:"message"`
}

// Status handles GET /v1/cache/status
func (h *HTTPHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.mgr.Status(r.Context())
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}
	httpx.JSONSuccess(w, r, st, nil)
}

// ExtraFields handles GET /v1/cache/extra-fields
func (h *HTTPHandler) ExtraFields(w http.ResponseWriter, r *http.Request) {
	sum, err := h.mgr.ExtraFieldSummary(r.Context())
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}
	httpx.JSONSuccess(w, r, sum, nil)
}

// Leads handles GET /v1/leads?page=1&page_size=100
// When today's cache is not ready it starts a background crawl and answers 503.
func (h *HTTPHandler) Leads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := positiveInt(q.Get("page"), 1)
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid page",
			[]httpx.ErrorDetail{{Field: "page", Message: "must be a positive integer"}})
		return
	}
	size, err := positiveInt(q.Get("page_size"), defaultLeadPageSize)
	if err != nil || size > maxLeadPageSize {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid page_size",
			[]httpx.ErrorDetail{{Field: "page_size", Message: "must be between 1 and 500"}})
		return
	}

	leads, total, err := h.mgr.Leads(r.Context(), size, (page-1)*size)
	if errors.Is(err, ErrNotReady) {
		started := h.mgr.CollectAsync(r.Context())
		w.Header().Set("Retry-After", "60")
		httpx.JSONError(w, r, http.StatusServiceUnavailable, "NOT_READY", notReadyMessage(started), nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}
	if leads == nil {
		leads = []lead.Lead{}
	}

	httpx.JSONSuccess(w, r, leadsPage{Leads: leads, Page: page, PageSize: size, Total: total}, nil)
}

// Collect handles POST /internal/jobs/collect
// By default the crawl runs in the background; ?wait=true blocks until it ends.
func (h *HTTPHandler) Collect(w http.ResponseWriter, r *http.Request) {
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		res, err := h.mgr.CollectAll(r.Context())
		switch {
		case errors.Is(err, cvdw.ErrRateLimited):
			httpx.JSONError(w, r, http.StatusServiceUnavailable, "RATE_LIMITED", "upstream is rate limiting, try again later", nil)
		case err != nil:
			httpx.JSONError(w, r, http.StatusBadGateway, "COLLECT_FAILED", err.Error(), nil)
		default:
			httpx.JSONSuccess(w, r, res, nil)
		}
		return
	}

	if !h.mgr.CollectAsync(r.Context()) {
		httpx.JSONError(w, r, http.StatusConflict, "COLLECTION_RUNNING", "a collection is already in progress", nil)
		return
	}
	httpx.JSONAccepted(w, r, collectAccepted{
		Started: true,
		Day:     h.mgr.Today(),
		Message: "collection started",
	})
}

// Cleanup handles POST /internal/jobs/cleanup
func (h *HTTPHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	res, err := h.mgr.CleanupOldData(r.Context())
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "CLEANUP_FAILED", err.Error(), nil)
		return
	}
	httpx.JSONSuccess(w, r, res, nil)
}

func notReadyMessage(started bool) string {
	if started {
		return "lead data for today is being collected, try again later"
	}
	return "lead data for today is still being collected, try again later"
}

func positiveInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("not a positive integer")
	}
	return n, nil
}
