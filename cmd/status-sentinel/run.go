package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nholik/status-sentinel/internal/healthcheck"
	"github.com/nholik/status-sentinel/internal/metrics"
	"github.com/nholik/status-sentinel/internal/monitor"
	"github.com/nholik/status-sentinel/internal/runner"
	"github.com/nholik/status-sentinel/internal/server"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Check every service once, or repeatedly with --interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("interval") {
				a.cfg.PollInterval = interval
			}
			if a.cfg.PollInterval < 0 {
				return fmt.Errorf("interval cannot be negative")
			}
			if a.cfg.PollInterval == 0 {
				return a.runOnce(cmd.Context(), cmd.OutOrStdout())
			}
			return a.runLoop(cmd.Context(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "repeat runs at this interval instead of exiting (overrides SS_POLL_INTERVAL)")
	return cmd
}

func (a *app) runOnce(ctx context.Context, out io.Writer) error {
	a.logger.Info().
		Str("path", a.cfg.ServicesDir).
		Bool("dry_run", a.cfg.DryRun).
		Msg("status-sentinel starting")

	m, err := a.buildMonitor(nil)
	if err != nil {
		return err
	}

	summary, err := m.RunOnce(ctx)
	var fatal *monitor.FatalError
	if errors.As(err, &fatal) {
		return err
	}
	printSummary(out, summary)
	if err != nil {
		// Already logged by the monitor; local failures never change the exit code.
		a.logger.Warn().Err(err).Msg("run finished with errors")
	}
	return nil
}

func (a *app) runLoop(ctx context.Context, out io.Writer) error {
	a.logger.Info().
		Str("path", a.cfg.ServicesDir).
		Dur("poll_interval", a.cfg.PollInterval).
		Bool("dry_run", a.cfg.DryRun).
		Msg("status-sentinel starting")

	collector := metrics.New()
	tracker := healthcheck.NewTracker()

	m, err := a.buildMonitor(collector)
	if err != nil {
		return err
	}

	serverCtx, cancel := context.WithCancel(ctx)
	servers := server.Start(serverCtx, a.logger, server.Options{
		HealthPort:   a.cfg.HealthPort,
		MetricsPort:  a.cfg.MetricsPort,
		PollInterval: a.cfg.PollInterval,
	}, tracker, collector)
	defer func() {
		cancel()
		servers.Wait()
	}()

	r := runner.New(a.logger, a.cfg.PollInterval,
		runner.WithMonitor(m),
		runner.WithTracker(tracker),
		runner.WithMetrics(collector),
		runner.WithSummaryHook(func(summary monitor.Summary) {
			printSummary(out, summary)
		}),
	)
	return r.Run(ctx)
}
