package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"github.com/nholik/status-sentinel/internal/status"
	"github.com/nholik/status-sentinel/internal/transition"
	"github.com/rs/zerolog"
)

const defaultWebhookTemplate = `{"generated_at":{{ toJson .GeneratedAt }},"changes":{{ len .Transitions }},"transitions":{{ toJson .Transitions }}}`

// WebhookPayload is the data a webhook body template is rendered with.
type WebhookPayload struct {
	Transitions []transition.Transition
	GeneratedAt time.Time
}

// WebhookNotifier renders transitions through a text/template and POSTs the result.
type WebhookNotifier struct {
	logger zerolog.Logger
	body   *template.Template
	now    func() time.Time
	poster *poster
}

var webhookFuncs = template.FuncMap{
	"toJson": func(v any) (string, error) {
		encoded, err := json.Marshal(v)
		return string(encoded), err
	},
	"label": func(v status.Value) string {
		return status.Label(v)
	},
}

// NewWebhookNotifier parses tmpl (or the default JSON body when empty).
// An empty webhookURL yields a nil notifier and no error.
func NewWebhookNotifier(logger zerolog.Logger, webhookURL string, tmpl string) (*WebhookNotifier, error) {
	if webhookURL == "" {
		return nil, nil
	}
	if tmpl == "" {
		tmpl = defaultWebhookTemplate
	}

	body, err := template.New("webhook").Funcs(webhookFuncs).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse webhook template: %w", err)
	}

	return &WebhookNotifier{
		logger: logger,
		body:   body,
		now:    func() time.Time { return time.Now().UTC() },
		poster: newPoster(logger, "webhook", webhookURL, defaultDelivery),
	}, nil
}

// Notify implements Notifier. A nil receiver does nothing.
func (n *WebhookNotifier) Notify(ctx context.Context, transitions []transition.Transition) error {
	if n == nil || len(transitions) == 0 {
		return nil
	}

	var rendered bytes.Buffer
	payload := WebhookPayload{Transitions: transitions, GeneratedAt: n.now()}
	if err := n.body.Execute(&rendered, payload); err != nil {
		return fmt.Errorf("render webhook template: %w", err)
	}

	if err := n.poster.wait(ctx); err != nil {
		return err
	}
	if err := n.poster.send(ctx, rendered.Bytes()); err != nil {
		return err
	}

	n.logger.Debug().Int("transitions", len(transitions)).Int("bytes", rendered.Len()).Msg("webhook notification sent")
	return nil
}
