package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"schoolevents/config"
	_ "schoolevents/docs"
	"schoolevents/internal/adapters/auth"
	"schoolevents/internal/adapters/email"
	httpdelivery "schoolevents/internal/delivery/http"
	"schoolevents/internal/delivery/http/controllers"
	"schoolevents/internal/repository/cached"
	"schoolevents/internal/services"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), !skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply schema migrations on startup")
	return cmd
}

func runServe(ctx context.Context, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := config.NewLogger()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, logger, cfg, migrate)
	if err != nil {
		return err
	}
	defer store.close()

	mailer, err := email.NewMailer(logger, email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
	})
	if err != nil {
		return fmt.Errorf("create mailer: %w", err)
	}
	dispatcher := services.NewDispatcher(logger, services.NewEmailService(logger, mailer, email.NewTemplateRenderer()), services.DispatcherConfig{
		QueueSize:      cfg.Notify.QueueSize,
		Workers:        cfg.Notify.Workers,
		MaxAttempts:    cfg.Notify.MaxAttempts,
		InitialBackoff: cfg.Notify.InitialBackoff,
	})
	// Deliveries outlive the signal context so queued intents drain on shutdown.
	dispatcher.Start(context.WithoutCancel(ctx))

	registrations := services.NewRegistrationService(logger, services.RegistrationDeps{
		Events:        cached.NewEventDirectory(store.events, cfg.EventCacheTTL),
		Users:         store.users,
		Capacity:      store.capacity,
		Ledger:        store.ledger,
		Transactor:    store.tx,
		Notifications: dispatcher,
	})

	secret := cfg.JWTSecret
	if secret == "" {
		logger.Warn("JWT_SECRET is empty, using an insecure development secret")
		secret = "dev-secret"
	}
	handler := httpdelivery.NewRouter(httpdelivery.RouterDeps{
		Logger:         logger,
		Registrations:  controllers.NewRegistrationController(logger, registrations),
		Verifier:       auth.NewJWT(secret),
		AllowedOrigins: cfg.CORSOrigins,
		Ping:           store.ping,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		dispatcher.Stop()
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "err", err)
	}
	dispatcher.Stop()
	logger.Info("stopped")
	return nil
}
