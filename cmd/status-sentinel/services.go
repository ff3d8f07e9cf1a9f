package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/nholik/status-sentinel/internal/config"
	"github.com/nholik/status-sentinel/internal/discovery"
	"github.com/nholik/status-sentinel/internal/state"
	"github.com/nholik/status-sentinel/internal/status"
	"github.com/spf13/cobra"
)

func newServicesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List discovered services with their component mapping and cached status",
		Long:  "Lists every service the next run would probe. Nothing is executed and Statuspage is not contacted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := discovery.Discover(a.cfg.ServicesDir, a.cfg.ProbeName)
			if err != nil {
				return err
			}
			if len(services) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No services found in %s.\n", a.cfg.ServicesDir)
				return nil
			}

			cache, err := state.NewFileStore(a.cfg.CacheFile, a.logger).Load(cmd.Context())
			if err != nil {
				return err
			}
			store := a.loadSecrets()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SERVICE\tCOMPONENT KEY\tRESOLVED\tCACHED STATUS\tLAST CHANGE")
			for _, svc := range services {
				key, resolved := "-", "-"
				if cfg, err := config.LoadServiceConfig(svc.ConfigPath); err != nil {
					key = "invalid: " + err.Error()
				} else {
					key = cfg.ComponentKey
					resolved = "no"
					if _, ok := store.Lookup(cfg.ComponentKey); ok {
						resolved = "yes"
					}
				}

				cached, lastChange := status.Label(""), "-"
				if entry, ok := cache.Get(svc.Name); ok {
					cached = status.Label(entry.Status)
					if !entry.LastChange.IsZero() {
						lastChange = entry.LastChange.Format("2006-01-02T15:04:05Z07:00")
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", svc.Name, key, resolved, cached, lastChange)
			}
			return w.Flush()
		},
	}
}
