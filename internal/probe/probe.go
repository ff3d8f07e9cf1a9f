// Package probe holds the HTTP health policies run by the per-service ping
// executables. Each policy maps HTTP outcomes to exactly one status label.
package probe

import (
	"context"
	"fmt"
	"io"

	"github.com/nholik/status-sentinel/internal/status"
)

// Outcome is the result of a single GET.
type Outcome struct {
	URL        string
	StatusCode int
	Err        error
}

// OK reports whether the request completed with HTTP 200.
func (o Outcome) OK() bool {
	return o.Err == nil && o.StatusCode == 200
}

// Getter performs one GET against a URL.
type Getter interface {
	Get(ctx context.Context, url string) Outcome
}

// Policy maps the outcomes of one or more GETs to a status.
type Policy interface {
	Evaluate(ctx context.Context, getter Getter) status.Value
}

// Escalation checks Primary first; when it fails, a healthy Secondary means a
// partial outage and a failing one a major outage.
type Escalation struct {
	Primary   string
	Secondary string
}

// Evaluate implements Policy.
func (p Escalation) Evaluate(ctx context.Context, getter Getter) status.Value {
	if getter.Get(ctx, p.Primary).OK() {
		return status.Operational
	}
	if getter.Get(ctx, p.Secondary).OK() {
		return status.PartialOutage
	}
	return status.MajorOutage
}

// Binary checks a single Target: up or major outage.
type Binary struct {
	Target string
}

// Evaluate implements Policy.
func (p Binary) Evaluate(ctx context.Context, getter Getter) status.Value {
	if getter.Get(ctx, p.Target).OK() {
		return status.Operational
	}
	return status.MajorOutage
}

// Emit writes the status label as the probe's entire output.
func Emit(w io.Writer, value status.Value) error {
	_, err := fmt.Fprintln(w, string(value))
	return err
}
