package dailycache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cvdwbi/internal/lead"
	"cvdwbi/internal/platform/cvdw"
	"cvdwbi/internal/platform/logx"

	"github.com/rs/zerolog"
)

// SummaryTop is how many field names ExtraFieldSummary reports.
const SummaryTop = 10

type Config struct {
	PageSize            int
	PageDelay           time.Duration
	LongPageDelay       time.Duration
	LongDelayEvery      int
	RateLimitWait       time.Duration
	MaxRateLimitRetries int
	// CrawlTimeout bounds a whole crawl. Zero means no bound.
	CrawlTimeout time.Duration
	Location     *time.Location
	// Schedule lists the HH:MM maintenance times, reported by Status.
	Schedule []string
}

type Option func(*Manager)

// WithClock replaces time.Now, mostly for tests that cross midnight.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSleeper replaces the pacing sleep.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Manager) { m.sleep = sleep }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// Manager owns the day-partitioned lead cache: one full crawl per day,
// reads from the store afterwards, and deletion of stale partitions.
type Manager struct {
	upstream Upstream
	repo     Repository
	cfg      Config

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	log   zerolog.Logger

	// crawlMu serializes crawls within the process.
	crawlMu    sync.Mutex
	collecting atomic.Bool

	mu    sync.RWMutex
	state State
}

func NewManager(upstream Upstream, repo Repository, cfg Config, opts ...Option) *Manager {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	if cfg.LongDelayEvery <= 0 {
		cfg.LongDelayEvery = 10
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	m := &Manager{
		upstream: upstream,
		repo:     repo,
		cfg:      cfg,
		now:      time.Now,
		sleep:    sleepCtx,
		log:      logx.With("dailycache"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.state = State{Day: m.Today(), Status: RunPending}
	return m
}

// Today is the partition key for the current instant in the configured zone.
func (m *Manager) Today() string {
	return m.now().In(m.cfg.Location).Format(DayLayout)
}

// HasCompleteDataToday is true iff today's run completed with at least one lead.
func (m *Manager) HasCompleteDataToday(ctx context.Context) (bool, error) {
	run, err := m.repo.GetRun(ctx, m.Today())
	if err != nil {
		return false, fmt.Errorf("get run: %w", err)
	}
	return run.IsComplete(), nil
}

// Collecting reports whether a crawl is running in this process.
func (m *Manager) Collecting() bool {
	return m.collecting.Load()
}

// CollectAll crawls the whole upstream collection into today's partition
// unless today is already complete. It blocks while another crawl runs.
func (m *Manager) CollectAll(ctx context.Context) (*CollectResult, error) {
	m.crawlMu.Lock()
	defer m.crawlMu.Unlock()
	return m.collectLocked(ctx)
}

// CollectAsync starts a crawl in the background and returns false when one
// is already running.
func (m *Manager) CollectAsync(ctx context.Context) bool {
	if !m.crawlMu.TryLock() {
		return false
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		defer m.crawlMu.Unlock()
		if _, err := m.collectLocked(bg); err != nil {
			m.log.Error().Err(err).Msg("background collection failed")
		}
	}()
	return true
}

func (m *Manager) collectLocked(ctx context.Context) (res *CollectResult, err error) {
	day := m.Today()

	existing, err := m.repo.GetRun(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if existing.IsComplete() {
		m.log.Info().Str("day", day).Int("leads", existing.LeadCount).Msg("data already collected today")
		return &CollectResult{
			Status:         ResultAlreadyCollected,
			Day:            day,
			Leads:          existing.LeadCount,
			ExtraFields:    existing.ExtraFieldCount,
			PagesProcessed: existing.PagesProcessed,
			SkippedPages:   existing.SkippedPages,
			Duration:       existing.Duration(),
			DurationMin:    minutes(existing.Duration()),
			Message:        "data already collected today",
		}, nil
	}

	run := &Run{Day: day, Status: RunInProgress, StartedAt: m.now()}
	if err := m.repo.StartRun(ctx, run); err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	m.collecting.Store(true)
	m.setState(func(s *State) {
		s.Day = day
		s.Status = RunInProgress
		s.Leads = 0
		s.ExtraFields = 0
	})
	m.log.Info().Str("day", day).Int("page_size", m.cfg.PageSize).Msg("starting full collection")

	crawlCtx := ctx
	if m.cfg.CrawlTimeout > 0 {
		var cancel context.CancelFunc
		crawlCtx, cancel = context.WithTimeout(ctx, m.cfg.CrawlTimeout)
		defer cancel()
	}

	defer func() {
		m.collecting.Store(false)

		finished := m.now()
		run.FinishedAt = &finished
		if err != nil {
			run.Status = RunError
			if run.Error == "" {
				run.Error = err.Error()
			}
		} else {
			run.Status = RunCompleted
		}
		switch updateErr := m.repo.UpdateRun(context.WithoutCancel(ctx), run); {
		case errors.Is(updateErr, ErrRunNotFound):
			m.log.Warn().Str("day", day).Msg("collection run removed before it finished")
		case updateErr != nil:
			m.log.Error().Err(updateErr).Str("day", day).Msg("failed to finalize collection run")
		}

		// a rollover may already have moved the state to the next day
		m.setState(func(s *State) {
			if s.Day != day {
				return
			}
			s.Status = run.Status
			s.Leads = run.LeadCount
			s.ExtraFields = run.ExtraFieldCount
			if run.Status == RunCompleted {
				s.LastCompleted = &finished
			}
		})

		res = &CollectResult{
			Status:         ResultSuccess,
			Day:            day,
			Leads:          run.LeadCount,
			ExtraFields:    run.ExtraFieldCount,
			PagesProcessed: run.PagesProcessed,
			SkippedPages:   run.SkippedPages,
			Duration:       run.Duration(),
			DurationMin:    minutes(run.Duration()),
		}
		if err != nil {
			res.Status = ResultError
			res.Message = run.Error
			if errors.Is(err, ErrDayEnded) {
				m.log.Warn().Str("day", day).Str("today", m.Today()).Int("leads", run.LeadCount).Msg("collection abandoned at day change")
				return
			}
			m.log.Error().Err(err).Str("day", day).Int("leads", run.LeadCount).Msg("collection failed")
			return
		}
		m.log.Info().
			Str("day", day).
			Int("leads", run.LeadCount).
			Int("extra_fields", run.ExtraFieldCount).
			Int("pages", run.PagesProcessed).
			Ints("skipped_pages", run.SkippedPages).
			Dur("duration", run.Duration()).
			Msg("collection completed")
	}()

	return nil, m.crawl(crawlCtx, run)
}

func (m *Manager) crawl(ctx context.Context, run *Run) error {
	first, err := m.fetchWithRateLimit(ctx, 1)
	if err != nil {
		return fmt.Errorf("fetch first page: %w", err)
	}

	run.TotalRecords = first.TotalRecords
	run.TotalPages = first.TotalPages
	if run.TotalPages < 1 {
		run.TotalPages = 1
	}
	m.log.Info().Int("total_records", run.TotalRecords).Int("total_pages", run.TotalPages).Msg("upstream collection size")

	if len(first.Leads) > 0 {
		if err := m.storePage(ctx, run, first); err != nil {
			return err
		}
	}

	for p := 2; p <= run.TotalPages; p++ {
		if err := m.pause(ctx, p); err != nil {
			return err
		}
		if err := m.checkDay(run); err != nil {
			return err
		}

		page, err := m.fetchWithRateLimit(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.log.Warn().Err(err).Int("page", p).Msg("skipping page")
			run.SkippedPages = append(run.SkippedPages, p)
			continue
		}
		if len(page.Leads) == 0 {
			m.log.Info().Int("page", p).Msg("empty page, ending collection")
			break
		}
		if err := m.storePage(ctx, run, page); err != nil {
			return err
		}
	}

	if run.LeadCount == 0 {
		return errors.New("upstream returned no leads")
	}
	return nil
}

func (m *Manager) storePage(ctx context.Context, run *Run, page *cvdw.Page) error {
	if err := m.checkDay(run); err != nil {
		return err
	}
	stats, err := m.repo.StorePage(ctx, run.Day, page.Leads)
	if err != nil {
		return fmt.Errorf("store page %d: %w", page.Number, err)
	}
	run.PagesProcessed++
	run.LeadCount += stats.Leads
	run.ExtraFieldCount += stats.ExtraFields

	m.setState(func(s *State) {
		if s.Day != run.Day {
			return
		}
		s.Leads = run.LeadCount
		s.ExtraFields = run.ExtraFieldCount
	})
	if err := m.repo.UpdateRun(ctx, run); err != nil {
		m.log.Warn().Err(err).Int("page", page.Number).Msg("failed to record progress")
	}

	m.log.Debug().
		Int("page", page.Number).
		Int("total_pages", run.TotalPages).
		Int("leads", stats.Leads).
		Int("extra_fields", stats.ExtraFields).
		Int("accumulated", run.LeadCount).
		Msg("page stored")
	return nil
}

// fetchWithRateLimit retries a rate-limited page in place, waiting at least
// RateLimitWait between attempts. Other errors return immediately.
func (m *Manager) fetchWithRateLimit(ctx context.Context, page int) (*cvdw.Page, error) {
	for attempt := 0; ; attempt++ {
		p, err := m.upstream.FetchPage(ctx, page, m.cfg.PageSize)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, cvdw.ErrRateLimited) || attempt >= m.cfg.MaxRateLimitRetries {
			return nil, err
		}

		wait := m.cfg.RateLimitWait
		var rl *cvdw.RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > wait {
			wait = rl.RetryAfter
		}
		m.log.Warn().Int("page", page).Int("attempt", attempt+1).Dur("wait", wait).Msg("rate limited, waiting")
		if err := m.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// checkDay stops the crawl once its partition is no longer today. Pages
// stored past midnight would land in a day the rollover already deleted.
func (m *Manager) checkDay(run *Run) error {
	if today := m.Today(); today != run.Day {
		return fmt.Errorf("%w: started %s, now %s", ErrDayEnded, run.Day, today)
	}
	return nil
}

// pause paces the crawl before fetching page next; every LongDelayEvery-th
// page waits longer.
func (m *Manager) pause(ctx context.Context, next int) error {
	d := m.cfg.PageDelay
	if next%m.cfg.LongDelayEvery == 0 {
		d = m.cfg.LongPageDelay
	}
	if d <= 0 {
		return ctx.Err()
	}
	return m.sleep(ctx, d)
}

// GetAllRecords returns today's cached leads, or ErrNotReady.
func (m *Manager) GetAllRecords(ctx context.Context) ([]lead.Lead, error) {
	leads, _, err := m.Leads(ctx, 0, 0)
	return leads, err
}

// Leads pages through today's cached leads and returns the day's total.
func (m *Manager) Leads(ctx context.Context, limit, offset int) ([]lead.Lead, int, error) {
	day := m.Today()
	run, err := m.repo.GetRun(ctx, day)
	if err != nil {
		return nil, 0, fmt.Errorf("get run: %w", err)
	}
	if !run.IsComplete() {
		return nil, 0, ErrNotReady
	}

	leads, err := m.repo.ListLeads(ctx, day, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	return leads, run.LeadCount, nil
}

func (m *Manager) ExtraFieldSummary(ctx context.Context) (*ExtraFieldSummary, error) {
	sum, err := m.repo.ExtraFieldSummary(ctx, m.Today(), SummaryTop)
	if err != nil {
		return nil, fmt.Errorf("extra field summary: %w", err)
	}
	return sum, nil
}

func (m *Manager) Status(ctx context.Context) (*CacheStatus, error) {
	day := m.Today()
	run, err := m.repo.GetRun(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	count, err := m.repo.CountLeads(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}

	return &CacheStatus{
		Day:             day,
		HasCompleteData: run.IsComplete(),
		Collecting:      m.Collecting(),
		CachedLeads:     count,
		Run:             run,
		DurationMinutes: minutes(run.Duration()),
		Schedule:        m.cfg.Schedule,
		State:           m.State(),
	}, nil
}

// State returns a copy of the in-process state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// CleanupOldData deletes every partition except today's.
func (m *Manager) CleanupOldData(ctx context.Context) (*CleanupResult, error) {
	day := m.Today()
	res, err := m.repo.DeleteExcept(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("delete stale partitions: %w", err)
	}
	m.log.Info().
		Str("kept_day", day).
		Int64("leads_removed", res.LeadsRemoved).
		Int64("extra_fields_removed", res.ExtraFieldsRemoved).
		Int64("runs_removed", res.RunsRemoved).
		Msg("old data removed")
	return res, nil
}

// RollOver is the midnight job: it moves the state to the new day, drops
// prior partitions and resets the status to pending.
func (m *Manager) RollOver(ctx context.Context) (*CleanupResult, error) {
	day := m.Today()
	m.log.Info().Str("day", day).Msg("daily reset")

	res, err := m.CleanupOldData(ctx)
	m.setState(func(s *State) {
		if s.Day == day && s.Status == RunInProgress {
			return
		}
		*s = State{Day: day, Status: RunPending}
	})
	return res, err
}

// Sweep is the evening job: a preventive delete of anything not tagged today.
func (m *Manager) Sweep(ctx context.Context) (*CleanupResult, error) {
	m.log.Info().Str("day", m.Today()).Msg("preventive cleanup")
	return m.CleanupOldData(ctx)
}

func (m *Manager) setState(fn func(s *State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.state)
}

func minutes(d time.Duration) float64 {
	return float64(int64(d.Minutes()*100)) / 100
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
