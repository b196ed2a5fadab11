// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/clozecode/cmd/clozecode/config"
	"github.com/AleutianAI/clozecode/services/cloze/observability"
	"github.com/AleutianAI/clozecode/services/cloze/routes"
	"github.com/AleutianAI/clozecode/services/cloze/telemetry"
)

const serviceName = "clozecode"

const shutdownTimeout = 10 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the card generator over HTTP",
		Long: `Starts an HTTP server with:

  POST /generate  {"code", "title", "deck", "tags"}  add cards to Anki
  POST /preview   same body, returns the rendered cards
  GET  /health
  GET  /metrics   Prometheus

Traces are exported over OTLP when OTEL_EXPORTER_OTLP_ENDPOINT is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.newAppFromCmd(cmd, func(cfg *config.ClozecodeConfig) {
				if cmd.Flags().Changed("port") {
					cfg.Server.Port = port
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTelemetry, err := telemetry.Init(ctx, telemetry.DefaultConfig(serviceName))
			if err != nil {
				return fmt.Errorf("init telemetry: %w", err)
			}
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := shutdownTelemetry(flushCtx); err != nil {
					a.logger.Error("telemetry shutdown failed", "error", err)
				}
			}()

			listener, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(a.cfg.Server.Port)))
			if err != nil {
				return fmt.Errorf("listen on port %d: %w", a.cfg.Server.Port, err)
			}
			return serveHTTP(ctx, a, listener)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config, 4000)")
	return cmd
}

// serveHTTP runs the router on listener until ctx is done, then drains
// in-flight requests.
func serveHTTP(ctx context.Context, a *app, listener net.Listener) error {
	gin.SetMode(gin.ReleaseMode)
	router := routes.NewRouter(serviceName, routes.Deps{
		Generator:      a.engine,
		Languages:      a.registry.Languages(),
		Metrics:        observability.NewHTTPMetrics(nil),
		MetricsHandler: telemetry.MetricsHandler(),
		AllowOrigins:   a.cfg.Server.CORSOrigins,
		Logger:         a.logger.Slog(),
	})

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()
	a.printer.Success(fmt.Sprintf("listening on http://%s", listener.Addr()))
	a.logger.Info("server started", "addr", listener.Addr().String(), "anki_url", a.client.URL())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
