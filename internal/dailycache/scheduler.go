package dailycache

import (
	"context"
	"fmt"
	"time"

	"cvdwbi/internal/platform/logx"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

const (
	jobTagReset = "daily-reset"
	jobTagSweep = "preventive-sweep"
)

// Maintainer is what the scheduled jobs call on the cache.
type Maintainer interface {
	RollOver(ctx context.Context) (*CleanupResult, error)
	Sweep(ctx context.Context) (*CleanupResult, error)
}

// Scheduler runs the midnight reset and the evening sweep in the cache's
// time zone. Jobs only touch non-today partitions, so they never wait on a
// running crawl.
type Scheduler struct {
	sched   *gocron.Scheduler
	target  Maintainer
	timeout time.Duration
	ctx     context.Context
}

func NewScheduler(target Maintainer, loc *time.Location, resetAt, sweepAt string) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		sched:   gocron.NewScheduler(loc),
		target:  target,
		timeout: 5 * time.Minute,
		ctx:     context.Background(),
	}
	s.sched.SingletonModeAll()

	if _, err := s.sched.Every(1).Day().At(resetAt).Tag(jobTagReset).Do(s.rollOver); err != nil {
		return nil, fmt.Errorf("schedule daily reset at %s: %w", resetAt, err)
	}
	if _, err := s.sched.Every(1).Day().At(sweepAt).Tag(jobTagSweep).Do(s.sweep); err != nil {
		return nil, fmt.Errorf("schedule sweep at %s: %w", sweepAt, err)
	}
	return s, nil
}

// Run starts the jobs and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx = ctx
	s.sched.StartAsync()
	for _, j := range s.sched.Jobs() {
		logNext(j)
	}

	<-ctx.Done()
	s.sched.Stop()
	schedLog().Info().Msg("maintenance scheduler stopped")
}

// NextRuns maps each job tag to its next fire time.
func (s *Scheduler) NextRuns() map[string]time.Time {
	out := make(map[string]time.Time)
	for _, j := range s.sched.Jobs() {
		for _, tag := range j.Tags() {
			out[tag] = j.NextRun()
		}
	}
	return out
}

func (s *Scheduler) rollOver() {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), s.timeout)
	defer cancel()
	if _, err := s.target.RollOver(ctx); err != nil {
		schedLog().Error().Err(err).Str("job", jobTagReset).Msg("scheduled job failed")
	}
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), s.timeout)
	defer cancel()
	if _, err := s.target.Sweep(ctx); err != nil {
		schedLog().Error().Err(err).Str("job", jobTagSweep).Msg("scheduled job failed")
	}
}

func schedLog() *zerolog.Logger {
	l := logx.With("scheduler")
	return &l
}

func logNext(j *gocron.Job) {
	schedLog().Info().Strs("tags", j.Tags()).Time("next_run", j.NextRun()).Msg("maintenance job scheduled")
}
