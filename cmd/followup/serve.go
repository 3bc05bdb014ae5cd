package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/lotfimay/FollowUP-GRP4/internal/app"
	"github.com/lotfimay/FollowUP-GRP4/internal/config"
	"github.com/spf13/cobra"
)

func newServeCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			application, err := app.New(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- application.Run()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				slog.Info("shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := application.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			slog.Info("server stopped")
			return nil
		},
	}
}
