package main

import (
	"github.com/spf13/cobra"

	"schoolevents/config"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := config.NewLogger()
			store, err := openStorage(cmd.Context(), logger, cfg, true)
			if err != nil {
				return err
			}
			defer store.close()
			logger.Info("migrations applied", "driver", cfg.StorageDriver)
			return nil
		},
	}
}
