package state

import (
	"context"
	"time"

	"github.com/nholik/status-sentinel/internal/status"
)

// Entry is the last observed status of a service.
type Entry struct {
	Status     status.Value `json:"status"`
	LastCheck  time.Time    `json:"last_check"`
	LastChange time.Time    `json:"last_change"`
}

// Cache maps service names to their last observed entry.
type Cache map[string]Entry

// Get returns the entry for service, if any.
func (c Cache) Get(service string) (Entry, bool) {
	entry, ok := c[service]
	return entry, ok
}

// Set stores entry for service in memory.
func (c Cache) Set(service string, entry Entry) {
	c[service] = entry
}

// Store defines the interface for persisting the cache.
type Store interface {
	Load(ctx context.Context) (Cache, error)
	Save(ctx context.Context, cache Cache) error
	Path() string
}
