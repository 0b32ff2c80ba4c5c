// Package application is the surface fillmap subcommands see of the CLI
// app. Commands depend on it rather than on cmd/fillmap/app so tests can
// hand them application.Mock from internal/cmd/application.
package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/fillmap/internal/runs"
)

// BuildInfo is stamped into the binary at link time.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	BuiltBy string `json:"built_by"`
}

// Application is implemented by the CLI app. Methods are safe for
// concurrent use.
type Application interface {
	// Runs opens the store and seeds it from RunsDir on first use.
	Runs(ctx context.Context) (*runs.Service, error)

	// RunsDir is where run files are read from and saved to. It may be empty.
	RunsDir() string

	Logger() *zerolog.Logger

	// OutputFormat is one of table, wide, json or yaml.
	OutputFormat() string

	Build() BuildInfo
}
