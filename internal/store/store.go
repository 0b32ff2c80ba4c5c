// Package store persists fill runs. Writes are whole-run and last-write-wins.
package store

import (
	"context"
	"strings"

	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/fillrun"
)

// Store is the persistence boundary for runs. Implementations return
// copies; callers never share run memory with the store.
type Store interface {
	Get(ctx context.Context, id string) (*fillrun.FillRun, error)
	Put(ctx context.Context, run *fillrun.FillRun) error
	List(ctx context.Context) ([]*fillrun.FillRun, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open creates a store from a DSN: "memory" (or empty) or "sqlite:<path>".
func Open(dsn string) (Store, error) {
	switch {
	case dsn == "" || dsn == "memory":
		return NewMemory(), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		path := strings.TrimPrefix(dsn, "sqlite:")
		if path == "" {
			return nil, errors.NewConfigError("store", "sqlite path is empty", nil)
		}
		return OpenSQLite(path)
	default:
		return nil, errors.NewConfigError("store", "unknown store "+dsn, nil)
	}
}

// Seed loads every run file in dir into s and returns how many were
// written. A stored run updated after its file is kept.
func Seed(ctx context.Context, s Store, dir string) (int, error) {
	runs, err := fillrun.LoadDir(dir)
	if err != nil {
		return 0, err
	}
	written := 0
	for _, run := range runs {
		existing, err := s.Get(ctx, run.ID)
		switch {
		case err == nil && existing.UpdatedAt.Time.After(run.UpdatedAt.Time):
			continue
		case err != nil && !errors.IsNotFound(err):
			return written, err
		}
		if err := s.Put(ctx, run); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func checkRun(run *fillrun.FillRun) error {
	if run == nil {
		return errors.NewValidationError("run", nil, "cannot be nil")
	}
	if run.ID == "" {
		return errors.NewValidationError("id", run.ID, "cannot be empty")
	}
	return nil
}
