package notify

import (
	"context"

	"github.com/nholik/status-sentinel/internal/transition"
)

// Notifier delivers status transition alerts to external systems.
type Notifier interface {
	Notify(ctx context.Context, transitions []transition.Transition) error
}
