package dailycache

import (
	"context"

	"cvdwbi/internal/lead"
	"cvdwbi/internal/platform/cvdw"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=dailycache

// Repository persists day-partitioned leads, extra fields and run logs.
type Repository interface {
	// GetRun returns nil, nil when the day has no run.
	GetRun(ctx context.Context, day string) (*Run, error)
	// StartRun discards whatever the day already holds and records an in-progress run.
	StartRun(ctx context.Context, run *Run) error
	// UpdateRun returns ErrRunNotFound when the day's run row is gone.
	UpdateRun(ctx context.Context, run *Run) error
	StorePage(ctx context.Context, day string, leads []lead.Lead) (PageStats, error)
	// ListLeads orders by lead id. A limit <= 0 returns everything.
	ListLeads(ctx context.Context, day string, limit, offset int) ([]lead.Lead, error)
	CountLeads(ctx context.Context, day string) (int, error)
	ExtraFieldSummary(ctx context.Context, day string, top int) (*ExtraFieldSummary, error)
	// DeleteExcept removes every partition other than day.
	DeleteExcept(ctx context.Context, day string) (*CleanupResult, error)
}

// Upstream is the slice of the CVDW client the crawler needs.
type Upstream interface {
	FetchPage(ctx context.Context, page, pageSize int) (*cvdw.Page, error)
}
