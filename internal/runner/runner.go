package runner

import (
	"context"
	"errors"
	"time"

	"github.com/nholik/status-sentinel/internal/healthcheck"
	"github.com/nholik/status-sentinel/internal/metrics"
	"github.com/nholik/status-sentinel/internal/monitor"
	"github.com/rs/zerolog"
)

// Ticker is the minimal interface needed for driving the runner loop.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t timeTicker) Stop() {
	t.ticker.Stop()
}

// Cycle performs one monitoring run.
type Cycle func(context.Context) (monitor.Summary, error)

// Runner repeats monitoring runs on a fixed interval.
type Runner struct {
	logger        zerolog.Logger
	pollInterval  time.Duration
	tickerFactory func(time.Duration) Ticker
	cycle         Cycle
	tracker       *healthcheck.Tracker
	metrics       *metrics.Metrics
	onSummary     func(monitor.Summary)
}

// Option customizes runner behavior.
type Option func(*Runner)

// WithTickerFactory overrides how tickers are created.
func WithTickerFactory(factory func(time.Duration) Ticker) Option {
	return func(r *Runner) {
		r.tickerFactory = factory
	}
}

// WithCycle sets the single-run step.
func WithCycle(cycle Cycle) Option {
	return func(r *Runner) {
		r.cycle = cycle
	}
}

// WithMonitor runs m on every tick.
func WithMonitor(m *monitor.Monitor) Option {
	return func(r *Runner) {
		r.cycle = m.RunOnce
	}
}

// WithTracker records each run for the health endpoints.
func WithTracker(tracker *healthcheck.Tracker) Option {
	return func(r *Runner) {
		r.tracker = tracker
	}
}

// WithMetrics records run timing.
func WithMetrics(collector *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = collector
	}
}

// WithSummaryHook is called after every run that produced a summary.
func WithSummaryHook(hook func(monitor.Summary)) Option {
	return func(r *Runner) {
		r.onSummary = hook
	}
}

// New constructs a Runner with the given logger and poll interval.
func New(logger zerolog.Logger, pollInterval time.Duration, opts ...Option) *Runner {
	r := &Runner{
		logger:       logger,
		pollInterval: pollInterval,
		tickerFactory: func(d time.Duration) Ticker {
			return timeTicker{ticker: time.NewTicker(d)}
		},
		cycle: func(context.Context) (monitor.Summary, error) {
			return monitor.Summary{}, errors.New("no monitor configured")
		},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes a run immediately and then on every tick until ctx is
// cancelled. A *monitor.FatalError stops the loop and is returned.
func (r *Runner) Run(ctx context.Context) error {
	if r.pollInterval <= 0 {
		return errors.New("poll interval must be greater than zero")
	}

	if _, err := r.RunOnce(ctx); err != nil {
		if isFatal(err) {
			return err
		}
		r.logger.Error().Err(err).Msg("initial run failed")
	}

	ticker := r.tickerFactory(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("runner stopped")
			return nil
		case <-ticker.C():
			if _, err := r.RunOnce(ctx); err != nil {
				if isFatal(err) {
					return err
				}
				r.logger.Error().Err(err).Msg("run failed")
			}
		}
	}
}

// RunOnce executes a single run and records its outcome.
func (r *Runner) RunOnce(ctx context.Context) (monitor.Summary, error) {
	start := time.Now()
	summary, err := r.cycle(ctx)
	duration := time.Since(start)

	r.metrics.ObserveCycleDuration(duration)
	if isFatal(err) {
		r.tracker.RecordFailure(err)
		return summary, err
	}

	r.tracker.RecordCycle(healthcheck.CycleStats{
		Duration:      duration,
		Checked:       summary.Checked,
		Changes:       summary.Changes,
		FailedUpdates: summary.FailedUpdates,
		Errors:        summary.Errors,
	})
	if err != nil {
		r.tracker.RecordFailure(err)
	} else {
		r.metrics.SetLastSuccessfulCycleTimestamp(time.Now())
	}
	if r.onSummary != nil {
		r.onSummary(summary)
	}

	r.logger.Debug().Dur("duration", duration).Msg("run finished")
	return summary, err
}

func isFatal(err error) bool {
	var fatal *monitor.FatalError
	return errors.As(err, &fatal)
}
