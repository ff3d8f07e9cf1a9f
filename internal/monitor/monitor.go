// Package monitor runs every discovered probe once, mirrors status changes to
// Statuspage and persists the status cache.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/nholik/status-sentinel/internal/config"
	"github.com/nholik/status-sentinel/internal/discovery"
	"github.com/nholik/status-sentinel/internal/executor"
	"github.com/nholik/status-sentinel/internal/metrics"
	"github.com/nholik/status-sentinel/internal/notify"
	"github.com/nholik/status-sentinel/internal/secrets"
	"github.com/nholik/status-sentinel/internal/state"
	"github.com/nholik/status-sentinel/internal/status"
	"github.com/nholik/status-sentinel/internal/statuspage"
	"github.com/nholik/status-sentinel/internal/transition"
	"github.com/rs/zerolog"
)

const (
	// DefaultServicesDir is the services root relative to the working directory.
	DefaultServicesDir = "pings"
	// DefaultProbeName is the probe file looked up in each service directory.
	DefaultProbeName = "ping"
	// DefaultCacheFile is where the status cache is persisted.
	DefaultCacheFile = "cache/status.json"
)

// UpdaterFactory builds the Statuspage updater for a run from its secrets.
// Returning a *statuspage.ConfigError aborts the run.
type UpdaterFactory func(*secrets.Store) (statuspage.ComponentUpdater, error)

// SecretsLoader assembles the secrets for a run.
type SecretsLoader func() *secrets.Store

// Summary reports the outcome of one run.
type Summary struct {
	// Checked is the number of services discovered.
	Checked int
	// Changes counts remote updates that succeeded.
	Changes       int
	FailedUpdates int
	// Errors counts services skipped or interrupted by a local error.
	Errors    int
	CacheFile string
	// Transitions lists the changes that reached Statuspage, sorted by service.
	Transitions []transition.Transition
	// Statuses holds the status observed for every probed service.
	Statuses map[string]status.Value
}

// Monitor executes monitoring runs. It is not safe for concurrent RunOnce calls.
type Monitor struct {
	logger      zerolog.Logger
	servicesDir string
	probeName   string
	store       state.Store
	runner      executor.Runner
	newUpdater  UpdaterFactory
	loadSecrets SecretsLoader
	notifier    notify.Notifier
	metrics     *metrics.Metrics
	now         func() time.Time
}

// Option customizes Monitor behavior.
type Option func(*Monitor)

// WithServicesDir sets the services root.
func WithServicesDir(dir string) Option {
	return func(m *Monitor) {
		m.servicesDir = dir
	}
}

// WithProbeName sets the probe file name looked up in each service directory.
func WithProbeName(name string) Option {
	return func(m *Monitor) {
		m.probeName = name
	}
}

// WithStore sets the cache store.
func WithStore(store state.Store) Option {
	return func(m *Monitor) {
		m.store = store
	}
}

// WithExecutor sets the probe runner.
func WithExecutor(runner executor.Runner) Option {
	return func(m *Monitor) {
		m.runner = runner
	}
}

// WithUpdaterFactory sets how the Statuspage updater is built.
func WithUpdaterFactory(factory UpdaterFactory) Option {
	return func(m *Monitor) {
		m.newUpdater = factory
	}
}

// WithSecretsLoader sets how secrets are assembled for each run.
func WithSecretsLoader(loader SecretsLoader) Option {
	return func(m *Monitor) {
		m.loadSecrets = loader
	}
}

// WithNotifier sets the notifier that receives applied transitions.
func WithNotifier(notifier notify.Notifier) Option {
	return func(m *Monitor) {
		m.notifier = notifier
	}
}

// WithMetrics enables per-run metrics.
func WithMetrics(collector *metrics.Metrics) Option {
	return func(m *Monitor) {
		m.metrics = collector
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// New returns a Monitor with production defaults for anything not overridden.
func New(logger zerolog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		logger:      logger,
		servicesDir: DefaultServicesDir,
		probeName:   DefaultProbeName,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.store == nil {
		m.store = state.NewFileStore(DefaultCacheFile, logger)
	}
	if m.runner == nil {
		m.runner = executor.New(logger, executor.DefaultTimeout)
	}
	if m.loadSecrets == nil {
		m.loadSecrets = func() *secrets.Store {
			return secrets.FromEnvironment(secrets.DefaultBlobVar, logger)
		}
	}
	if m.newUpdater == nil {
		m.newUpdater = func(store *secrets.Store) (statuspage.ComponentUpdater, error) {
			return statuspage.NewClientFromSecrets(store, statuspage.WithLogger(logger))
		}
	}
	if m.notifier == nil {
		m.notifier = notify.NewNoop(logger, "")
	}

	return m
}

// RunOnce performs one full monitoring pass. Services are processed one at a
// time in name order. A *FatalError means nothing was probed. Any other error
// reports a discovery or cache persistence failure; the Summary is still valid.
func (m *Monitor) RunOnce(ctx context.Context) (Summary, error) {
	summary := Summary{CacheFile: m.store.Path()}

	store := m.loadSecrets()

	services, err := discovery.Discover(m.servicesDir, m.probeName)
	if err != nil {
		m.logger.Error().Err(err).Str("path", m.servicesDir).Msg("service discovery failed")
		return summary, fmt.Errorf("discover services: %w", err)
	}
	if len(services) == 0 {
		m.logger.Info().Str("path", m.servicesDir).Msg("no services found")
		return summary, nil
	}
	summary.Checked = len(services)
	m.logger.Info().Strs("services", discovery.Names(services)).Msg("services discovered")

	updater, err := m.newUpdater(store)
	if err != nil {
		var cfgErr *statuspage.ConfigError
		if errors.As(err, &cfgErr) {
			return Summary{CacheFile: summary.CacheFile}, &FatalError{Err: err}
		}
		return Summary{CacheFile: summary.CacheFile}, &FatalError{Err: fmt.Errorf("create statuspage client: %w", err)}
	}

	cache, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Str("path", summary.CacheFile).Msg("status cache unavailable, starting empty")
		cache = nil
	}
	if cache == nil {
		cache = state.Cache{}
	}

	summary.Statuses = make(map[string]status.Value, len(services))
	for _, svc := range services {
		if err := ctx.Err(); err != nil {
			m.logger.Warn().Err(err).Msg("run interrupted, skipping remaining services")
			break
		}
		if err := m.checkService(ctx, svc, store, updater, cache, &summary); err != nil {
			summary.Errors++
			m.metrics.IncServiceErrors()
			m.logger.Error().Err(err).Str("service", svc.Name).Msg("service check failed")
		}
	}
	m.recordStatuses(summary.Statuses)

	transition.Sort(summary.Transitions)
	if len(summary.Transitions) > 0 {
		if err := m.notifier.Notify(ctx, summary.Transitions); err != nil {
			m.logger.Warn().Err(err).Int("transitions", len(summary.Transitions)).Msg("transition notification failed")
		}
	}

	if err := m.store.Save(ctx, cache); err != nil {
		m.logger.Error().Err(err).Str("path", summary.CacheFile).Msg("failed to save status cache")
		return summary, fmt.Errorf("save status cache: %w", err)
	}

	m.logger.Info().
		Int("checked", summary.Checked).
		Int("changes", summary.Changes).
		Int("failed_updates", summary.FailedUpdates).
		Int("errors", summary.Errors).
		Str("path", summary.CacheFile).
		Msg("run complete")

	return summary, nil
}

// checkService probes one service, pushes a change to Statuspage and records
// the new cache entry. A panic is converted into a *ServiceError.
func (m *Monitor) checkService(ctx context.Context, svc discovery.Service, store *secrets.Store, updater statuspage.ComponentUpdater, cache state.Cache, summary *Summary) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Debug().Str("service", svc.Name).Bytes("stack", debug.Stack()).Msg("recovered panic")
			err = wrapService(svc.Name, "panic", fmt.Errorf("%v", r))
		}
	}()

	logger := m.logger.With().Str("service", svc.Name).Logger()

	cfg, err := config.LoadServiceConfig(svc.ConfigPath)
	if err != nil {
		return wrapService(svc.Name, "load config", err)
	}

	componentID, ok := store.Lookup(cfg.ComponentKey)
	if !ok || componentID == "" {
		return wrapService(svc.Name, "resolve component",
			fmt.Errorf("no secret found for %q or %q", cfg.ComponentKey, strings.ToUpper(cfg.ComponentKey)))
	}
	logger = logger.With().Str("component_id", componentID).Logger()

	current := m.runner.Run(ctx, svc, cfg.Timeout)
	summary.Statuses[svc.Name] = current
	if !status.Known(current) {
		logger.Warn().Str("current_status", string(current)).Msg("probe reported an unrecognized status")
	}

	now := m.now()
	var prev *state.Entry
	if entry, found := cache.Get(svc.Name); found {
		prev = &entry
	}

	change, changed := transition.Detect(svc.Name, prev, current, now)
	if changed {
		change.ComponentID = componentID
		logger.Info().
			Str("previous_status", status.Label(change.PreviousStatus)).
			Str("current_status", string(current)).
			Msg("status changed")

		if _, updateErr := updater.UpdateComponentStatus(ctx, componentID, current); updateErr != nil {
			summary.FailedUpdates++
			m.metrics.IncStatusUpdates(metrics.ResultFailure)
			logger.Error().Err(updateErr).Msg("statuspage update failed")
		} else {
			summary.Changes++
			summary.Transitions = append(summary.Transitions, change)
			m.metrics.IncStatusUpdates(updateResult(updater))
			logger.Info().Str("current_status", string(current)).Msg("statuspage updated")
		}
	} else {
		logger.Debug().Str("current_status", string(current)).Msg("status unchanged")
	}

	cache.Set(svc.Name, transition.NextEntry(prev, current, now))
	return nil
}

func (m *Monitor) recordStatuses(statuses map[string]status.Value) {
	if m.metrics == nil {
		return
	}
	counts := make(map[string]int, len(statuses))
	for _, value := range statuses {
		counts[string(value)]++
	}
	m.metrics.SetServicesByStatus(counts)
}

func updateResult(updater statuspage.ComponentUpdater) string {
	if _, ok := updater.(*statuspage.DryRunUpdater); ok {
		return metrics.ResultDryRun
	}
	return metrics.ResultSuccess
}
