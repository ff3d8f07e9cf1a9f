package notify

import (
	"context"

	"github.com/nholik/status-sentinel/internal/status"
	"github.com/nholik/status-sentinel/internal/transition"
	"github.com/rs/zerolog"
)

// DryRunNotifier logs what would be delivered and never calls the wrapped notifier.
type DryRunNotifier struct {
	logger zerolog.Logger
	inner  Notifier
}

// NewDryRunNotifier wraps inner so that delivery is suppressed.
func NewDryRunNotifier(logger zerolog.Logger, inner Notifier) *DryRunNotifier {
	return &DryRunNotifier{logger: logger, inner: inner}
}

// Notify implements Notifier.
func (n *DryRunNotifier) Notify(_ context.Context, transitions []transition.Transition) error {
	for _, change := range transitions {
		n.logger.Info().
			Str("service", change.Service).
			Str("component_id", change.ComponentID).
			Str("previous_status", status.Label(change.PreviousStatus)).
			Str("current_status", string(change.CurrentStatus)).
			Msg("[DRY-RUN] Would notify")
	}
	return nil
}
