package dailycache

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cvdwbi/internal/lead"
	"cvdwbi/internal/platform/cvdw"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDay = "2025-03-14"

func newHandlerUnderTest(t *testing.T) (*HTTPHandler, *MockRepository, *MockUpstream) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	up := NewMockUpstream(ctrl)

	clock := func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, saoPaulo) }
	mgr := NewManager(up, repo, testConfig(), WithClock(clock), WithSleeper(func(context.Context, time.Duration) error { return nil }))
	return NewHTTPHandler(mgr), repo, up
}

func completedRun(leads int) *Run {
	finished := time.Date(2025, 3, 14, 6, 30, 0, 0, saoPaulo)
	return &Run{
		Day:            testDay,
		Status:         RunCompleted,
		StartedAt:      finished.Add(-30 * time.Minute),
		FinishedAt:     &finished,
		LeadCount:      leads,
		PagesProcessed: 1,
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHTTPHandler_Status(t *testing.T) {
	h, repo, _ := newHandlerUnderTest(t)
	repo.EXPECT().GetRun(gomock.Any(), testDay).Return(completedRun(2), nil)
	repo.EXPECT().CountLeads(gomock.Any(), testDay).Return(2, nil)

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/v1/cache/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, true, data["has_complete_data"])
	assert.Equal(t, float64(2), data["cached_leads"])
	assert.Equal(t, float64(30), data["collection_duration_minutes"])
}

func TestHTTPHandler_Leads(t *testing.T) {
	h, repo, _ := newHandlerUnderTest(t)
	repo.EXPECT().GetRun(gomock.Any(), testDay).Return(completedRun(3), nil)
	repo.EXPECT().ListLeads(gomock.Any(), testDay, 2, 2).Return([]lead.Lead{makeLead(3)}, nil)

	rec := httptest.NewRecorder()
	h.Leads(rec, httptest.NewRequest(http.MethodGet, "/v1/leads?page=2&page_size=2", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, float64(3), data["total"])
	assert.Equal(t, float64(2), data["page"])
	leads := data["leads"].([]any)
	require.Len(t, leads, 1)
	assert.Equal(t, float64(3), leads[0].(map[string]any)["idlead"])
}

func TestHTTPHandler_Leads_InvalidParams(t *testing.T) {
	h, _, _ := newHandlerUnderTest(t)

	for _, target := range []string{"/v1/leads?page=0", "/v1/leads?page=x", "/v1/leads?page_size=501"} {
		rec := httptest.NewRecorder()
		h.Leads(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestHTTPHandler_Leads_NotReadyStartsCollection(t *testing.T) {
	h, repo, up := newHandlerUnderTest(t)
	done := make(chan struct{})

	// Leads sees no run; the background crawl then sees none either.
	repo.EXPECT().GetRun(gomock.Any(), testDay).Return(nil, nil).Times(2)
	repo.EXPECT().StartRun(gomock.Any(), gomock.Any()).Return(nil)
	up.EXPECT().FetchPage(gomock.Any(), 1, 500).Return(nil, &cvdw.HTTPError{StatusCode: 401})
	repo.EXPECT().UpdateRun(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, run *Run) error {
		assert.Equal(t, RunError, run.Status)
		close(done)
		return nil
	})

	rec := httptest.NewRecorder()
	h.Leads(rec, httptest.NewRequest(http.MethodGet, "/v1/leads", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	errBody := decodeBody(t, rec)["error"].(map[string]any)
	assert.Equal(t, "NOT_READY", errBody["code"])

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("background collection did not finish")
	}
}

func TestHTTPHandler_Collect_WaitAlreadyCollected(t *testing.T) {
	h, repo, _ := newHandlerUnderTest(t)
	repo.EXPECT().GetRun(gomock.Any(), testDay).Return(completedRun(5), nil)

	req := httptest.NewRequest(http.MethodPost, "/internal/jobs/collect?wait=true", nil)
	rec := httptest.NewRecorder()
	h.Collect(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, ResultAlreadyCollected, data["status"])
	assert.Equal(t, float64(5), data["total_leads_collected"])
}

func TestHTTPHandler_Collect_WaitRateLimited(t *testing.T) {
	h, repo, up := newHandlerUnderTest(t)
	repo.EXPECT().GetRun(gomock.Any(), testDay).Return(nil, nil)
	repo.EXPECT().StartRun(gomock.Any(), gomock.Any()).Return(nil)
	up.EXPECT().FetchPage(gomock.Any(), 1, 500).Return(nil, &cvdw.RateLimitError{}).Times(4)
	repo.EXPECT().UpdateRun(gomock.Any(), gomock.Any()).Return(nil)

	rec := httptest.NewRecorder()
	h.Collect(rec, httptest.NewRequest(http.MethodPost, "/internal/jobs/collect?wait=true", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	errBody := decodeBody(t, rec)["error"].(map[string]any)
	assert.Equal(t, "RATE_LIMITED", errBody["code"])
}

func TestHTTPHandler_Cleanup(t *testing.T) {
	h, repo, _ := newHandlerUnderTest(t)
	repo.EXPECT().DeleteExcept(gomock.Any(), testDay).Return(&CleanupResult{LeadsRemoved: 10, ExtraFieldsRemoved: 4, RunsRemoved: 1}, nil)

	req := httptest.NewRequest(http.MethodPost, "/internal/jobs/cleanup", nil)
	rec := httptest.NewRecorder()
	h.Cleanup(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, float64(10), data["leads_removed"])
}

func TestHTTPHandler_ExtraFields(t *testing.T) {
	h, repo, _ := newHandlerUnderTest(t)
	repo.EXPECT().ExtraFieldSummary(gomock.Any(), testDay, SummaryTop).Return(&ExtraFieldSummary{
		Day:          testDay,
		Total:        3,
		UniqueNames:  2,
		Distribution: []FieldCount{{Name: "Renda", Count: 2}, {Name: "Bairro", Count: 1}},
	}, nil)

	rec := httptest.NewRecorder()
	h.ExtraFields(rec, httptest.NewRequest(http.MethodGet, "/v1/cache/extra-fields", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, float64(3), data["total_additional_fields"])
	assert.Len(t, data["field_distribution"], 2)
}
