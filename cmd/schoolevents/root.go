package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "schoolevents",
		Short:        "Capacity-limited registration service for school events",
		Long:         `schoolevents admits users to capacity-limited school events, lets them cancel, and sends confirmation emails.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd(), newTokenCmd())
	return root
}
