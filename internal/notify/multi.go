package notify

import (
	"context"
	"errors"

	"github.com/nholik/status-sentinel/internal/transition"
)

// MultiNotifier fans out notifications to several notifiers.
type MultiNotifier []Notifier

// NewMultiNotifier drops nil entries and returns the rest as one notifier.
func NewMultiNotifier(notifiers ...Notifier) MultiNotifier {
	var m MultiNotifier
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	return m
}

// Len reports how many notifiers are attached.
func (m MultiNotifier) Len() int {
	return len(m)
}

// Notify implements Notifier. Every notifier runs even when an earlier one fails.
func (m MultiNotifier) Notify(ctx context.Context, transitions []transition.Transition) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, transitions); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
