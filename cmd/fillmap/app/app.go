// Package app provides the application context and dependency management
// for the fillmap CLI: configuration, logging, and the lazily opened run
// service shared by every command.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/fillmap/cmd/application"
	"github.com/agentstation/fillmap/internal/runs"
	"github.com/agentstation/fillmap/internal/store"
	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/workbook"
)

// App represents the fillmap application with all its dependencies.
type App struct {
	build application.BuildInfo

	config *Config
	logger *zerolog.Logger

	// Run service (lazy-initialized, singleton)
	mu        sync.Mutex
	store     store.Store
	workbooks *workbook.Registry
	runs      *runs.Service
}

// Option customizes an App.
type Option func(*App) error

// WithConfig replaces the loaded configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if config == nil {
			return errors.NewValidationError("config", nil, "cannot be nil")
		}
		a.config = config
		logger := NewLogger(config)
		a.logger = &logger
		return nil
	}
}

// WithLogger replaces the configured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = &logger
		return nil
	}
}

// New creates a new App with configuration loaded from the environment.
func New(build application.BuildInfo, opts ...Option) (*App, error) {
	app := &App{build: build}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Build returns the link-time build information.
func (a *App) Build() application.BuildInfo {
	return a.build
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the --format value, or "" for auto-detection.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// RunsDir returns the directory run files are seeded from.
func (a *App) RunsDir() string {
	return a.config.RunsDir
}

// Runs returns the run service, opening the store and seeding it from the
// runs directory on first use.
func (a *App) Runs(ctx context.Context) (*runs.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.runs != nil {
		return a.runs, nil
	}

	st, err := store.Open(a.config.Store)
	if err != nil {
		return nil, errors.WrapResource("open", "store", a.config.Store, err)
	}

	if a.config.RunsDir != "" {
		n, err := store.Seed(ctx, st, a.config.RunsDir)
		if err != nil {
			_ = st.Close()
			return nil, errors.WrapResource("seed", "store", a.config.RunsDir, err)
		}
		a.logger.Debug().Int("runs", n).Str("dir", a.config.RunsDir).Msg("Seeded run store")
	}

	a.store = st
	a.workbooks = workbook.NewRegistry(a.config.WorkbookCacheTTL,
		workbook.WithTemplatesDir(a.config.TemplatesDir),
		workbook.WithLogger(a.logger),
	)
	a.runs = runs.New(st, a.workbooks, runs.WithLogger(a.logger))
	return a.runs, nil
}

// Shutdown releases the store and any opened workbook templates.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.workbooks != nil {
		a.workbooks.Close()
		a.workbooks = nil
	}
	if a.store != nil {
		err := a.store.Close()
		a.store, a.runs = nil, nil
		if err != nil {
			return errors.WrapResource("close", "store", a.config.Store, err)
		}
	}
	return nil
}

// Ensure App implements application.Application at compile time.
var _ application.Application = (*App)(nil)
