// Package main provides the entry point for the fillmap CLI tool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	buildinfo "github.com/agentstation/fillmap/cmd/application"
	"github.com/agentstation/fillmap/cmd/fillmap/app"
	"github.com/agentstation/fillmap/pkg/constants"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	application, err := app.New(buildinfo.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
		BuiltBy: builtBy,
	})
	if err != nil {
		app.ExitOnError(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = application.Execute(ctx, os.Args[1:])

	// Shutdown with a fresh context; the signal context may be cancelled.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer shutdownCancel()
	if shutdownErr := application.Shutdown(shutdownCtx); shutdownErr != nil {
		application.Logger().Error().Err(shutdownErr).Msg("Shutdown error")
	}

	if err != nil {
		app.ExitOnError(err)
	}
}
