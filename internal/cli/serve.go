// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"deskboard/internal/handlers"
	"deskboard/internal/middleware"
	"deskboard/internal/router"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		writeLimit  int
		writeWindow time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the JSON HTTP API. Pending migrations are applied and the system
categories are created before the listener starts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, func(a *app) error {
				return runServe(cmd.Context(), a, writeLimit, writeWindow)
			})
		},
	}

	cmd.Flags().IntVar(&writeLimit, "write-limit", 60, "write requests allowed per client per window")
	cmd.Flags().DurationVar(&writeWindow, "write-window", time.Minute, "rate limit window for write requests")

	return cmd
}

func runServe(ctx context.Context, a *app, writeLimit int, writeWindow time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.prepare(ctx); err != nil {
		return err
	}

	slog.Info("configuration loaded",
		"env", a.cfg.Env,
		"addr", a.cfg.Addr(),
		"store", a.cfg.StoreDriver,
		"cache", a.valkey != nil,
	)

	limiter := middleware.NewRateLimiter(writeLimit, writeWindow)
	defer limiter.Stop()

	r := router.New(
		handlers.NewPosts(a.reader, a.mutator),
		handlers.NewCategories(a.engine),
		limiter,
	)

	// WriteTimeout must cover a read that exhausts its retries.
	srv := &http.Server{
		Addr:         a.cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutdown signal received")

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}
