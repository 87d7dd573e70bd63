package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"schoolevents/config"
	"schoolevents/internal/usecase"
)

func newSeedCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "seed <file-or-url>",
		Short: "Load users and events from a JSON document",
		Args:  cobra.ExactArgs(1),
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

			uc := usecase.NewSeedUseCase(usecase.NewSeedFetcher(&http.Client{Timeout: timeout}), store.events, store.users, store.tx, timeout)
			res, err := uc.Seed(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, ev := range res.Events {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tcapacity=%d\n", ev.ID, ev.Title, ev.Capacity)
			}
			logger.Info("seed applied", "users", res.Users, "events", len(res.Events))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")
	return cmd
}
