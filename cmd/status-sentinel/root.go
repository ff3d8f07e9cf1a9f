package main

import (
	"fmt"

	"github.com/nholik/status-sentinel/internal/config"
	"github.com/nholik/status-sentinel/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// app carries what every subcommand needs after flags and environment are resolved.
type app struct {
	cfg    config.Config
	logger zerolog.Logger

	servicesDir string
	cacheFile   string
	logLevel    string
	dryRun      bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "status-sentinel",
		Short:         "Mirror service probe results onto Statuspage components",
		Long:          "status-sentinel runs the ping executable of every service directory, compares the result with the cached status and updates the matching Statuspage component when it changed.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.servicesDir, "services-dir", "", "directory holding one subdirectory per service (overrides SS_SERVICES_DIR)")
	flags.StringVar(&a.cacheFile, "cache-file", "", "status cache location (overrides SS_CACHE_FILE)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides SS_LOG_LEVEL)")
	flags.BoolVar(&a.dryRun, "dry-run", false, "log Statuspage updates and notifications instead of sending them")

	run := newRunCmd(a)
	root.RunE = run.RunE
	root.Flags().AddFlagSet(run.Flags())

	root.AddCommand(run, newServicesCmd(a), newUpdateCmd(a))
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if a.servicesDir != "" {
		cfg.ServicesDir = a.servicesDir
	}
	if a.cacheFile != "" {
		cfg.CacheFile = a.cacheFile
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.dryRun {
		cfg.DryRun = true
	}

	a.cfg = cfg
	a.logger = logging.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel)
	return nil
}
