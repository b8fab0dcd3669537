package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gewnthar/lottometeo/backend/config"
	"github.com/gewnthar/lottometeo/backend/observability"
)

func defaultSchedule(t *testing.T) *Schedule {
	t.Helper()
	cfg := config.Defaults().Schedule
	cfg.WeatherStep = 30 * time.Minute
	cfg.Tick = time.Minute
	s, err := BuildSchedule(cfg)
	require.NoError(t, err)
	return s
}

func moscow(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	return loc
}

type fakeJobs struct {
	mu          sync.Mutex
	order       []JobKind
	calls       chan JobKind
	combinedErr error
	panicOnce   bool
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{calls: make(chan JobKind, 16)}
}

func (f *fakeJobs) record(kind JobKind) {
	f.mu.Lock()
	f.order = append(f.order, kind)
	f.mu.Unlock()
	f.calls <- kind
}

func (f *fakeJobs) RunCombined(ctx context.Context) error {
	f.record(JobCombined)
	if f.panicOnce {
		f.panicOnce = false
		panic("boom")
	}
	return f.combinedErr
}

func (f *fakeJobs) RunWeather(ctx context.Context) error {
	f.record(JobWeather)
	return nil
}

func (f *fakeJobs) recorded() []JobKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]JobKind(nil), f.order...)
}

func TestBuildSchedule_NoOverlap(t *testing.T) {
	s := defaultSchedule(t)

	combined := s.Times(JobCombined)
	weather := s.Times(JobWeather)

	assert.Equal(t, []string{"10:00", "12:00", "13:00", "16:00", "16:22", "18:00", "20:00", "22:00"}, combined)
	assert.Len(t, weather, 25)
	assert.Equal(t, "08:00", weather[0])
	assert.Equal(t, "23:30", weather[len(weather)-1])

	for _, c := range combined {
		assert.NotContains(t, weather, c)
	}
	for i := 1; i < len(s.Slots); i++ {
		assert.LessOrEqual(t, s.Slots[i-1].Minute, s.Slots[i].Minute)
	}
}

func TestBuildSchedule_Invalid(t *testing.T) {
	cfg := config.Defaults().Schedule
	cfg.WeatherStep = 30 * time.Minute
	cfg.CombinedTimes = []string{"25:00"}
	_, err := BuildSchedule(cfg)
	assert.Error(t, err)

	cfg = config.Defaults().Schedule
	cfg.WeatherStep = 0
	_, err = BuildSchedule(cfg)
	assert.Error(t, err)
}

func TestDue(t *testing.T) {
	s := defaultSchedule(t)
	loc := moscow(t)

	at := func(h, m int) time.Time { return time.Date(2026, 1, 2, h, m, 0, 0, loc) }

	due := s.Due(at(9, 59), at(10, 0), loc)
	require.Len(t, due, 1)
	assert.Equal(t, JobCombined, due[0].Kind)

	assert.Empty(t, s.Due(at(10, 0), at(10, 1), loc), "slot is half-open on the left")

	due = s.Due(at(16, 0), at(16, 31), loc)
	require.Len(t, due, 2)
	assert.Equal(t, "16:22 combined", due[0].String())
	assert.Equal(t, "16:30 weather", due[1].String())

	// crossing midnight
	due = s.Due(time.Date(2026, 1, 2, 23, 45, 0, 0, loc), time.Date(2026, 1, 3, 8, 0, 0, 0, loc), loc)
	require.Len(t, due, 1)
	assert.Equal(t, "08:00 weather", due[0].String())
	assert.Equal(t, 3, due[0].At.Day())
}

func newTestScheduler(jobs Jobs, clock clockwork.Clock, loc *time.Location, metrics *observability.Metrics, opts ...Option) *Scheduler {
	opts = append([]Option{WithClock(clock)}, opts...)
	return New(jobs, &Schedule{Slots: []Slot{{Minute: 10 * 60, Kind: JobCombined}, {Minute: 10*60 + 30, Kind: JobWeather}}},
		time.Minute, loc, zap.NewNop(), metrics, opts...)
}

func TestRunDue_FailingJobDoesNotStopLaterJobs(t *testing.T) {
	loc := moscow(t)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 2, 9, 0, 0, 0, loc))
	jobs := newFakeJobs()
	jobs.combinedErr = errors.New("archive unavailable")
	metrics := observability.NewMetricsForTesting()
	s := newTestScheduler(jobs, clock, loc, metrics)
	s.maxGap = 24 * time.Hour

	last := s.runDue(context.Background(), time.Date(2026, 1, 2, 9, 59, 0, 0, loc), time.Date(2026, 1, 2, 10, 30, 0, 0, loc))

	assert.Equal(t, time.Date(2026, 1, 2, 10, 30, 0, 0, loc), last)
	assert.Equal(t, []JobKind{JobCombined, JobWeather}, jobs.recorded())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.JobFailures.WithLabelValues(string(JobCombined))))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.JobFailures.WithLabelValues(string(JobWeather))))
}

func TestRunDue_RecoversFromPanic(t *testing.T) {
	loc := moscow(t)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 2, 9, 0, 0, 0, loc))
	jobs := newFakeJobs()
	jobs.panicOnce = true
	metrics := observability.NewMetricsForTesting()
	s := newTestScheduler(jobs, clock, loc, metrics)

	s.runDue(context.Background(), time.Date(2026, 1, 2, 9, 59, 30, 0, loc), time.Date(2026, 1, 2, 10, 0, 30, 0, loc))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.JobFailures.WithLabelValues(string(JobCombined))))
}

func TestRunDue_LongGapIsNotReplayed(t *testing.T) {
	loc := moscow(t)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 2, 9, 0, 0, 0, loc))
	jobs := newFakeJobs()
	s := newTestScheduler(jobs, clock, loc, observability.NewMetricsForTesting())

	s.runDue(context.Background(), time.Date(2026, 1, 2, 6, 0, 0, 0, loc), time.Date(2026, 1, 2, 11, 0, 0, 0, loc))
	assert.Empty(t, jobs.recorded())
}

func TestRun_FiresOnTick(t *testing.T) {
	loc := moscow(t)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 2, 9, 59, 30, 0, loc))
	jobs := newFakeJobs()
	metrics := observability.NewMetricsForTesting()
	s := newTestScheduler(jobs, clock, loc, metrics, WithWeatherOnStart(true))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Equal(t, JobWeather, waitCall(t, jobs), "startup weather run")

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SchedulerRunning))

	clock.Advance(time.Minute)
	assert.Equal(t, JobCombined, waitCall(t, jobs))

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.SchedulerRunning))
}

func waitCall(t *testing.T, jobs *fakeJobs) JobKind {
	t.Helper()
	select {
	case k := <-jobs.calls:
		return k
	case <-time.After(2 * time.Second):
		t.Fatal("job was not called")
		return ""
	}
}
