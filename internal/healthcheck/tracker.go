package healthcheck

import (
	"sync"
	"time"
)

// CycleStats is what a completed run reports to the tracker.
type CycleStats struct {
	Duration      time.Duration
	Checked       int
	Changes       int
	FailedUpdates int
	Errors        int
}

// Snapshot describes the latest run for the health endpoints.
type Snapshot struct {
	Status          string     `json:"status"`
	LastCycleTime   *time.Time `json:"last_cycle_time"`
	CycleDurationMS int64      `json:"cycle_duration_ms"`
	ServicesChecked int        `json:"services_checked"`
	Changes         int        `json:"changes"`
	FailedUpdates   int        `json:"failed_updates"`
	ServiceErrors   int        `json:"service_errors"`
	LastError       string     `json:"last_error,omitempty"`
}

// Tracker records run outcomes for health endpoints. Safe for concurrent use.
type Tracker struct {
	mu        sync.RWMutex
	now       func() time.Time
	lastCycle time.Time
	stats     CycleStats
	lastError string
	ready     bool
}

// NewTracker constructs a new Tracker.
func NewTracker() *Tracker {
	return &Tracker{now: func() time.Time { return time.Now().UTC() }}
}

// RecordCycle stores a completed run and marks the tracker ready.
func (t *Tracker) RecordCycle(stats CycleStats) {
	if t == nil {
		return
	}
	now := t.now()
	t.mu.Lock()
	t.lastCycle = now
	t.stats = stats
	t.lastError = ""
	t.ready = true
	t.mu.Unlock()
}

// RecordFailure keeps the previous run timing but remembers err.
func (t *Tracker) RecordFailure(err error) {
	if t == nil || err == nil {
		return
	}
	t.mu.Lock()
	t.lastError = err.Error()
	t.mu.Unlock()
}

// Snapshot returns the current tracker snapshot.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var last *time.Time
	if !t.lastCycle.IsZero() {
		value := t.lastCycle
		last = &value
	}
	return Snapshot{
		LastCycleTime:   last,
		CycleDurationMS: t.stats.Duration.Milliseconds(),
		ServicesChecked: t.stats.Checked,
		Changes:         t.stats.Changes,
		FailedUpdates:   t.stats.FailedUpdates,
		ServiceErrors:   t.stats.Errors,
		LastError:       t.lastError,
	}
}

// Ready reports whether at least one run has completed.
func (t *Tracker) Ready() bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

// Healthy reports whether the last run completed within 2x the poll interval.
func (t *Tracker) Healthy(now time.Time, pollInterval time.Duration) bool {
	if t == nil || pollInterval <= 0 {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastCycle.IsZero() {
		return false
	}
	return now.Sub(t.lastCycle) <= 2*pollInterval
}
