package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rsx/cansat-groundstation/internal/app"
	"github.com/rsx/cansat-groundstation/internal/config"
	"github.com/rsx/cansat-groundstation/internal/log"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the serial link",
		Long:  "Configuration is read from the environment (SERVER_PORT, DB_*, JWT_SECRET, LINK_PORT, TEAM_ID, ...).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			application, err := app.New(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := application.Initialize(ctx); err != nil {
				return err
			}

			return serve(ctx, application)
		},
	}
}

// server is the part of app.App that serve drives
type server interface {
	Run() error
	Shutdown(ctx context.Context) error
}

// serve runs srv until ctx is done or the listener fails, then shuts it down.
// A listener failure is returned so the process exits non-zero.
func serve(ctx context.Context, srv server) error {
	logger := log.WithComponent("main")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Run()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return errors.Join(runErr, err)
	}
	return runErr
}
