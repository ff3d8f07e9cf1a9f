package transition

import (
	"sort"
	"time"

	"github.com/nholik/status-sentinel/internal/state"
	"github.com/nholik/status-sentinel/internal/status"
)

// Transition captures a status change for one service.
type Transition struct {
	Service        string       `json:"service"`
	ComponentID    string       `json:"component_id,omitempty"`
	PreviousStatus status.Value `json:"previous_status"`
	CurrentStatus  status.Value `json:"current_status"`
	// FirstSeen is true when no cache entry existed.
	FirstSeen bool `json:"first_seen"`
	// PreviousChange is when the previous status was first observed.
	PreviousChange time.Time `json:"previous_change"`
	At             time.Time `json:"at"`
}

// Detect compares the cached entry for a service with the current status.
// A missing entry always counts as a change.
func Detect(service string, prev *state.Entry, current status.Value, now time.Time) (Transition, bool) {
	change := Transition{
		Service:       service,
		CurrentStatus: current,
		At:            now,
	}
	if prev == nil {
		change.FirstSeen = true
		return change, true
	}
	if prev.Status == current {
		return Transition{}, false
	}
	change.PreviousStatus = prev.Status
	change.PreviousChange = prev.LastChange
	return change, true
}

// NextEntry computes the cache entry after observing current at now.
// LastCheck always advances; LastChange only when the status changed.
func NextEntry(prev *state.Entry, current status.Value, now time.Time) state.Entry {
	next := state.Entry{
		Status:     current,
		LastCheck:  now,
		LastChange: now,
	}
	if prev == nil {
		return next
	}
	if prev.Status == current && !prev.LastChange.IsZero() {
		next.LastChange = prev.LastChange
	}
	return next
}

// Sort orders transitions by service name for deterministic output.
func Sort(transitions []Transition) {
	sort.Slice(transitions, func(i, j int) bool {
		return transitions[i].Service < transitions[j].Service
	})
}
