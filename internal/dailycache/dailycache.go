package dailycache

import (
	"errors"
	"time"
)

// DayLayout is the format of the partition key.
const DayLayout = "2006-01-02"

// ErrNotReady means today's crawl has not completed yet.
var ErrNotReady = errors.New("today's lead cache is not ready, try again later")

// ErrRunNotFound is returned by UpdateRun when the day has no run row,
// usually because a cleanup removed it mid-crawl.
var ErrRunNotFound = errors.New("collection run not found")

// ErrDayEnded stops a crawl whose partition day is no longer today.
var ErrDayEnded = errors.New("collection day ended before the crawl finished")

type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunInProgress RunStatus = "in_progress"
	RunCompleted  RunStatus = "completed"
	RunError      RunStatus = "error"
)

// Run is the bookkeeping row for one day's crawl. There is at most one per day.
type Run struct {
	Day             string     `json:"day"`
	Status          RunStatus  `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	TotalRecords    int        `json:"total_records"`
	TotalPages      int        `json:"total_pages"`
	PagesProcessed  int        `json:"pages_processed"`
	LeadCount       int        `json:"lead_count"`
	ExtraFieldCount int        `json:"extra_field_count"`
	SkippedPages    []int      `json:"skipped_pages,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// IsComplete reports whether the run can serve reads.
func (r *Run) IsComplete() bool {
	return r != nil && r.Status == RunCompleted && r.LeadCount > 0
}

// Duration is zero until the run has finished.
func (r *Run) Duration() time.Duration {
	if r == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

const (
	ResultSuccess          = "success"
	ResultAlreadyCollected = "already_collected"
	ResultError            = "error"
)

// CollectResult summarises a CollectAll call.
type CollectResult struct {
	Status         string        `json:"status"`
	Day            string        `json:"collection_date"`
	Leads          int           `json:"total_leads_collected"`
	ExtraFields    int           `json:"total_additional_fields"`
	PagesProcessed int           `json:"pages_processed"`
	SkippedPages   []int         `json:"skipped_pages,omitempty"`
	Duration       time.Duration `json:"-"`
	DurationMin    float64       `json:"duration_minutes"`
	Message        string        `json:"message,omitempty"`
}

// PageStats is what StorePage actually persisted.
type PageStats struct {
	Leads       int
	ExtraFields int
}

// FieldCount is one entry of the extra field distribution.
type FieldCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ExtraFieldSummary describes today's extra fields.
type ExtraFieldSummary struct {
	Day                  string       `json:"day"`
	Total                int          `json:"total_additional_fields"`
	UniqueNames          int          `json:"unique_field_types"`
	LeadsWithExtraFields int          `json:"leads_with_additional_fields"`
	Distribution         []FieldCount `json:"field_distribution"`
}

// CleanupResult counts rows removed from stale partitions.
type CleanupResult struct {
	LeadsRemoved       int64 `json:"leads_removed"`
	ExtraFieldsRemoved int64 `json:"fields_removed"`
	RunsRemoved        int64 `json:"logs_removed"`
}

// State is the in-process view of the current day, reset on rollover.
type State struct {
	Day           string     `json:"current_date"`
	Status        RunStatus  `json:"collection_status"`
	LastCompleted *time.Time `json:"last_complete_collection,omitempty"`
	Leads         int        `json:"total_leads_cached"`
	ExtraFields   int        `json:"total_additional_fields"`
}

// CacheStatus is the operator view returned by Manager.Status.
type CacheStatus struct {
	Day             string   `json:"current_date"`
	HasCompleteData bool     `json:"has_complete_data"`
	Collecting      bool     `json:"collecting"`
	CachedLeads     int      `json:"cached_leads"`
	Run             *Run     `json:"run,omitempty"`
	DurationMinutes float64  `json:"collection_duration_minutes,omitempty"`
	Schedule        []string `json:"auto_cleanup_schedule"`
	State           State    `json:"state"`
}
