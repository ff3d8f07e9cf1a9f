package main

import (
	"fmt"

	"github.com/nholik/status-sentinel/internal/monitor"
	"github.com/nholik/status-sentinel/internal/status"
	"github.com/spf13/cobra"
)

func newUpdateCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "update <component-id> <status>",
		Short: "Set a Statuspage component status by hand",
		Long:  "Sends a single component update without probing or touching the status cache. The next run overwrites it if the probe disagrees.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			componentID, value := args[0], status.Value(args[1])
			if !status.Known(value) && !force {
				return fmt.Errorf("unknown status %q (use --force to send it anyway)", value)
			}

			updater, err := a.newUpdater(a.loadSecrets())
			if err != nil {
				return &monitor.FatalError{Err: err}
			}

			component, err := updater.UpdateComponentStatus(cmd.Context(), componentID, value)
			if err != nil {
				return fmt.Errorf("update component %s: %w", componentID, err)
			}

			name := component.Name
			if name == "" {
				name = component.ID
			}
			if component.Status != "" {
				value = component.Status
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Component %s is now %s\n", name, value)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "send a status outside the known set")
	return cmd
}
