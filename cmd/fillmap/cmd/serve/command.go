// Package serve provides the HTTP server command for the fillmap CLI.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/fillmap/cmd/application"
	"github.com/agentstation/fillmap/internal/cmd/emoji"
	"github.com/agentstation/fillmap/internal/server"
	"github.com/agentstation/fillmap/pkg/constants"
)

// NewCommand creates the serve command. Flags left unset fall back to
// defaults, the configured server settings.
func NewCommand(app application.Application, defaults *server.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		GroupID: "management",
		Short:   "Start the review API with WebSocket and SSE channels",
		Long: `Start the REST API used by the review windows.

Features:
  - Run, cell, grid, citation and provenance endpoints
  - Mapping add, edit and remove with live run updates
  - Window sync relay over WebSocket (/api/v1/runs/{id}/windows/ws)
  - Run update stream over SSE (/api/v1/runs/{id}/events)
  - CORS support for the review front end
  - Request logging, panic recovery and graceful shutdown`,
		Example: `  # Start on default port 8080
  fillmap serve

  # Serve a runs directory on a custom port
  FILLMAP_RUNS_DIR=./runs fillmap serve --port 3000

  # Restrict CORS to the review front end
  fillmap serve --cors-origins "https://review.example.com"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd, app, parseConfig(cmd, defaults))
		},
	}

	def := server.DefaultConfig()
	cmd.Flags().Int("port", def.Port, "Server port")
	cmd.Flags().String("host", def.Host, "Bind address")
	cmd.Flags().String("prefix", def.PathPrefix, "API path prefix")
	cmd.Flags().Bool("cors", def.CORSEnabled, "Enable CORS")
	cmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (comma-separated, empty allows all)")
	cmd.Flags().Duration("read-timeout", def.ReadTimeout, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", def.WriteTimeout, "HTTP write timeout")
	cmd.Flags().Duration("idle-timeout", def.IdleTimeout, "HTTP idle timeout")

	return cmd
}

// runServer opens the run service and serves it until the command context
// is cancelled.
func runServer(cmd *cobra.Command, app application.Application, cfg server.Config) error {
	logger := app.Logger()
	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, err := app.Runs(cmd.Context())
	if err != nil {
		return err
	}

	logger.Info().
		Str("addr", cfg.Addr()).
		Str("prefix", cfg.PathPrefix).
		Bool("cors", cfg.CORSEnabled).
		Msg("Starting API server")

	srv := server.New(svc, cfg, logger)
	srv.Start()

	return serve(cmd, srv, logger)
}

// serve runs the listener and the shutdown watcher in one group; whichever
// finishes first brings the other down.
func serve(cmd *cobra.Command, srv *server.Server, logger *zerolog.Logger) error {
	httpServer := srv.HTTPServer()
	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		fmt.Fprintf(cmd.OutOrStdout(), "%s API server listening on %s\n", emoji.Success, httpServer.Addr)
		fmt.Fprintln(cmd.OutOrStdout(), "   Press Ctrl+C to stop")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutdown signal received via context")
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s Shutting down API server...\n", emoji.Stop)

		// The group context is already done; cleanup gets its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Background services shutdown had issues")
		}

		logger.Info().Msg("Server stopped gracefully")
		fmt.Fprintf(cmd.OutOrStdout(), "%s Server stopped\n", emoji.Success)
		return nil
	})

	return g.Wait()
}

// parseConfig overlays the flags the user set on the configured defaults.
func parseConfig(cmd *cobra.Command, defaults *server.Config) server.Config {
	cfg := server.DefaultConfig()
	if defaults != nil {
		cfg = *defaults
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = mustGet(flags.GetInt("port"))
	}
	if flags.Changed("host") {
		cfg.Host = mustGet(flags.GetString("host"))
	}
	if flags.Changed("prefix") {
		cfg.PathPrefix = mustGet(flags.GetString("prefix"))
	}
	if flags.Changed("cors") {
		cfg.CORSEnabled = mustGet(flags.GetBool("cors"))
	}
	if flags.Changed("cors-origins") {
		cfg.CORSOrigins = mustGet(flags.GetStringSlice("cors-origins"))
	}
	if flags.Changed("read-timeout") {
		cfg.ReadTimeout = mustGet(flags.GetDuration("read-timeout"))
	}
	if flags.Changed("write-timeout") {
		cfg.WriteTimeout = mustGet(flags.GetDuration("write-timeout"))
	}
	if flags.Changed("idle-timeout") {
		cfg.IdleTimeout = mustGet(flags.GetDuration("idle-timeout"))
	}
	return cfg
}

// mustGet unwraps a flag lookup. Flags are defined in this package, so an
// error is a programming error.
func mustGet[T any](v T, err error) T {
	if err != nil {
		panic("programming error: " + err.Error())
	}
	return v
}
