package ranking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/robfig/cron"

	"commerce-core/internal/model"
	apperrors "commerce-core/pkg/errors"
)

const (
	DefaultDailySpec  = "0 0 2 * * *"
	DefaultWeeklySpec = "0 0 3 * * MON"
)

// Roller is the part of Engine the scheduler drives.
type Roller interface {
	RollupDaily(ctx context.Context, day time.Time) (*model.RankingSnapshot, error)
	RollupWeekly(ctx context.Context, anyDay time.Time) (*model.RankingSnapshot, error)
}

type SchedulerOptions struct {
	DailySpec  string
	WeeklySpec string
	Location   *time.Location
	Logger     logr.Logger
	Now        func() time.Time
}

// Scheduler fires dailyRollup for yesterday and weeklyRollup for the previous ISO week.
type Scheduler struct {
	roller Roller
	opts   SchedulerOptions
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(roller Roller, opts SchedulerOptions) (*Scheduler, error) {
	if opts.DailySpec == "" {
		opts.DailySpec = DefaultDailySpec
	}
	if opts.WeeklySpec == "" {
		opts.WeeklySpec = DefaultWeeklySpec
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}

	s := &Scheduler{roller: roller, opts: opts, cron: cron.NewWithLocation(opts.Location)}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	if err := s.cron.AddFunc(opts.DailySpec, s.DailyRollup); err != nil {
		return nil, fmt.Errorf("schedule dailyRollup %q: %w", opts.DailySpec, err)
	}
	if err := s.cron.AddFunc(opts.WeeklySpec, s.WeeklyRollup); err != nil {
		return nil, fmt.Errorf("schedule weeklyRollup %q: %w", opts.WeeklySpec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.opts.Logger.Info("rollup scheduler started", "daily", s.opts.DailySpec, "weekly", s.opts.WeeklySpec)
}

// Stop stops firing and cancels runs in flight.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.cancel()
}

func (s *Scheduler) now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

// DailyRollup closes yesterday.
func (s *Scheduler) DailyRollup() {
	day := s.now().AddDate(0, 0, -1)
	_, err := s.roller.RollupDaily(s.ctx, day)
	s.report("dailyRollup", err)
}

// WeeklyRollup closes the week before the current one.
func (s *Scheduler) WeeklyRollup() {
	day := s.now().AddDate(0, 0, -7)
	_, err := s.roller.RollupWeekly(s.ctx, day)
	s.report("weeklyRollup", err)
}

func (s *Scheduler) report(job string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrRollupInProgress):
		s.opts.Logger.Info("rollup busy, skipping trigger", "job", job)
	default:
		// the next firing retries the whole run
		s.opts.Logger.Error(err, "rollup failed", "job", job)
	}
}
