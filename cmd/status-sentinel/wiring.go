package main

import (
	"fmt"

	"github.com/nholik/status-sentinel/internal/executor"
	"github.com/nholik/status-sentinel/internal/metrics"
	"github.com/nholik/status-sentinel/internal/monitor"
	"github.com/nholik/status-sentinel/internal/notify"
	"github.com/nholik/status-sentinel/internal/secrets"
	"github.com/nholik/status-sentinel/internal/state"
	"github.com/nholik/status-sentinel/internal/statuspage"
)

func (a *app) buildMonitor(collector *metrics.Metrics) (*monitor.Monitor, error) {
	notifier, err := a.buildNotifier()
	if err != nil {
		return nil, err
	}

	return monitor.New(a.logger,
		monitor.WithServicesDir(a.cfg.ServicesDir),
		monitor.WithProbeName(a.cfg.ProbeName),
		monitor.WithStore(state.NewFileStore(a.cfg.CacheFile, a.logger)),
		monitor.WithExecutor(executor.New(a.logger, a.cfg.ProbeTimeout)),
		monitor.WithSecretsLoader(a.loadSecrets),
		monitor.WithUpdaterFactory(a.newUpdater),
		monitor.WithNotifier(notifier),
		monitor.WithMetrics(collector),
	), nil
}

func (a *app) loadSecrets() *secrets.Store {
	return secrets.FromEnvironment(a.cfg.SecretsVar, a.logger)
}

// newUpdater builds the Statuspage client. Dry runs still require credentials
// so that a dry run fails exactly where a real run would.
func (a *app) newUpdater(store *secrets.Store) (statuspage.ComponentUpdater, error) {
	client, err := statuspage.NewClientFromSecrets(store,
		statuspage.WithBaseURL(a.cfg.StatuspageBaseURL),
		statuspage.WithTimeout(a.cfg.StatuspageTimeout),
		statuspage.WithRateLimit(a.cfg.StatuspageRateLimit),
		statuspage.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	if a.cfg.DryRun {
		return statuspage.NewDryRunUpdater(a.logger, client.PageID()), nil
	}
	return client, nil
}

func (a *app) buildNotifier() (notify.Notifier, error) {
	webhook, err := notify.NewWebhookNotifier(a.logger, a.cfg.WebhookURL, a.cfg.WebhookTemplate)
	if err != nil {
		return nil, fmt.Errorf("configure webhook: %w", err)
	}

	notifiers := []notify.Notifier{notify.NewSlackNotifier(a.logger, a.cfg.SlackWebhookURL)}
	if webhook != nil {
		notifiers = append(notifiers, webhook)
	}

	var notifier notify.Notifier = notify.NewMultiNotifier(notifiers...)
	if a.cfg.DryRun {
		notifier = notify.NewDryRunNotifier(a.logger, notifier)
	}
	return notifier, nil
}
