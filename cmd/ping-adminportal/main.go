// Command ping-adminportal prints operational when the admin login page
// answers 200 and major_outage otherwise.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nholik/status-sentinel/internal/logging"
	"github.com/nholik/status-sentinel/internal/probe"
)

var policy = probe.Binary{Target: "https://admin.pathverse.ca/auth/login"}

func main() {
	logger := logging.NewWithWriter(os.Stderr, os.Getenv("SS_LOG_LEVEL")).With().Str("probe", "adminportal").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := probe.Main(ctx, policy, os.Stdout, logger); err != nil {
		logger.Error().Err(err).Msg("write status")
	}
}
