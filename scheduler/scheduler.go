// backend/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/gewnthar/lottometeo/backend/observability"
)

// Jobs is what the scheduler triggers.
type Jobs interface {
	RunCombined(ctx context.Context) error
	RunWeather(ctx context.Context) error
}

// Scheduler is the single background polling loop. Due jobs run sequentially inside
// a tick; a failing job is logged and never stops the loop. Firings missed while the
// process was down are not replayed.
type Scheduler struct {
	jobs         Jobs
	schedule     *Schedule
	loc          *time.Location
	tick         time.Duration
	maxGap       time.Duration
	weatherFirst bool
	clock        clockwork.Clock
	logger       *zap.Logger
	metrics      *observability.Metrics
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the real clock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithWeatherOnStart runs one weather collection as soon as Run starts.
func WithWeatherOnStart(enabled bool) Option {
	return func(s *Scheduler) { s.weatherFirst = enabled }
}

// New creates a scheduler that polls every tick.
func New(jobs Jobs, schedule *Schedule, tick time.Duration, loc *time.Location, logger *zap.Logger, metrics *observability.Metrics, opts ...Option) *Scheduler {
	if tick <= 0 {
		tick = time.Minute
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		jobs:     jobs,
		schedule: schedule,
		loc:      loc,
		tick:     tick,
		maxGap:   10 * tick,
		clock:    clockwork.NewRealClock(),
		logger:   logger.Named("scheduler"),
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.metrics.SchedulerRunning.Set(1)
	defer s.metrics.SchedulerRunning.Set(0)

	s.logger.Info("scheduler started",
		zap.Strings("combined", s.schedule.Times(JobCombined)),
		zap.Strings("weather", s.schedule.Times(JobWeather)),
		zap.Duration("tick", s.tick),
		zap.String("timezone", s.loc.String()))

	last := s.clock.Now()
	if s.weatherFirst {
		s.runJob(ctx, Occurrence{Slot: Slot{Kind: JobWeather}, At: last})
	}

	ticker := s.clock.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.Chan():
			last = s.runDue(ctx, last, s.clock.Now())
		}
	}
}

// runDue fires every slot in (last, now] and returns the new high-water mark.
// A gap far longer than the tick (suspended host, clock jump) is not replayed.
func (s *Scheduler) runDue(ctx context.Context, last, now time.Time) time.Time {
	if now.Sub(last) > s.maxGap {
		s.logger.Warn("scheduler fell behind, skipping missed slots",
			zap.Time("last_check", last), zap.Time("now", now))
		last = now.Add(-s.tick)
	}
	for _, occ := range s.schedule.Due(last, now, s.loc) {
		if ctx.Err() != nil {
			break
		}
		s.runJob(ctx, occ)
	}
	return now
}

func (s *Scheduler) runJob(ctx context.Context, occ Occurrence) {
	runID := uuid.NewString()
	logger := s.logger.With(
		zap.String("run_id", runID),
		zap.String("job", string(occ.Kind)),
		zap.Time("slot", occ.At))
	logger.Info("job started")

	start := s.clock.Now()
	err := s.call(ctx, occ.Kind)
	elapsed := s.clock.Since(start)
	s.metrics.JobDuration.WithLabelValues(string(occ.Kind)).Observe(elapsed.Seconds())

	if err != nil {
		s.metrics.JobFailures.WithLabelValues(string(occ.Kind)).Inc()
		logger.Error("job failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return
	}
	logger.Info("job finished", zap.Duration("elapsed", elapsed))
}

// call runs one job, turning a panic into an error so the loop survives it.
func (s *Scheduler) call(ctx context.Context, kind JobKind) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	switch kind {
	case JobCombined:
		return s.jobs.RunCombined(ctx)
	case JobWeather:
		return s.jobs.RunWeather(ctx)
	default:
		return fmt.Errorf("unknown job kind %q", kind)
	}
}
