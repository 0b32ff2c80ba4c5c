// Package application provides a test double for cmd/application.
package application

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/fillmap/cmd/application"
	"github.com/agentstation/fillmap/internal/runs"
)

// Mock is an application.Application with fixed answers. Zero fields get
// defaults: an in-memory service holding runs.NewTestService's fixture,
// json output, a no-op logger and a "dev" build.
//
//	mock := &application.Mock{Format: "table", Dir: t.TempDir()}
//	cmd := mapping.NewCommand(mock)
type Mock struct {
	Service *runs.Service
	Err     error
	Dir     string
	Format  string
	Log     *zerolog.Logger
	Info    application.BuildInfo

	once sync.Once
}

// Runs returns Err when set, otherwise Service, creating it on first use.
func (m *Mock) Runs(context.Context) (*runs.Service, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.once.Do(func() {
		if m.Service == nil {
			m.Service = runs.NewTestService(runs.WithLogger(m.Logger()))
		}
	})
	return m.Service, nil
}

// RunsDir returns Dir.
func (m *Mock) RunsDir() string { return m.Dir }

// Logger returns Log or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.Log != nil {
		return m.Log
	}
	nop := zerolog.Nop()
	return &nop
}

// OutputFormat returns Format or "json".
func (m *Mock) OutputFormat() string {
	if m.Format == "" {
		return "json"
	}
	return m.Format
}

// Build returns Info with "dev", "unknown" and "test" filling blanks.
func (m *Mock) Build() application.BuildInfo {
	info := m.Info
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	if info.BuiltBy == "" {
		info.BuiltBy = "test"
	}
	return info
}

var _ application.Application = (*Mock)(nil)
