package main

import (
	"github.com/spf13/cobra"

	"recobot/internal/app"
	"recobot/internal/schedule"
)

func newCheckCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the config and documents, then print the trigger plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := root.load()
			if err != nil {
				return err
			}
			core, err := app.OpenCore(cfg, log)
			if err != nil {
				return err
			}
			defer core.Close()
			loadErr := core.Load(cmd.Context())

			cmd.Printf("config: ok (%s)\n", root.configPath)
			cmd.Printf("sets: %d, subscriptions: %d, windows: %d\n",
				len(core.Sets.List()), len(core.Subscriptions.List()), len(core.Windows.Windows()))

			plan, skipped := schedule.Plan(core.Subscriptions.List())
			for _, p := range plan {
				cmd.Printf("  %-28s %s\n", p.Key, p.Describe())
			}
			for _, note := range skipped {
				cmd.Printf("  skipped: %s\n", note)
			}
			for _, sub := range core.Subscriptions.List() {
				if _, ok := core.Sets.Get(sub.SetName); sub.Enabled && !ok {
					cmd.Printf("  warning: %s uses unknown set %q\n", sub.Tenant, sub.SetName)
				}
			}
			return loadErr
		},
	}
}
