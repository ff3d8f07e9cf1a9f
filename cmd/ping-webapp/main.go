// Command ping-webapp prints the webapp status: version.json decides
// operational, the login page separates a partial from a major outage.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nholik/status-sentinel/internal/logging"
	"github.com/nholik/status-sentinel/internal/probe"
)

var policy = probe.Escalation{
	Primary:   "https://testweb.pathverse.ca/version.json",
	Secondary: "https://testweb.pathverse.ca/login",
}

func main() {
	logger := logging.NewWithWriter(os.Stderr, os.Getenv("SS_LOG_LEVEL")).With().Str("probe", "webapp").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := probe.Main(ctx, policy, os.Stdout, logger); err != nil {
		logger.Error().Err(err).Msg("write status")
	}
}
