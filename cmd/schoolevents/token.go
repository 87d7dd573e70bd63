package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"schoolevents/config"
	"schoolevents/internal/adapters/auth"
)

func newTokenCmd() *cobra.Command {
	var (
		email  string
		expiry time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a bearer token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET must be set")
			}
			token, err := auth.NewJWT(cfg.JWTSecret).Issue(args[0], email, expiry)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&expiry, "expiry", 24*time.Hour, "token lifetime")
	return cmd
}
