package store

import (
	"context"
	"sort"
	"sync"

	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/fillrun"
)

// Memory is an in-process store.
type Memory struct {
	mu   sync.RWMutex
	runs map[string]*fillrun.FillRun
}

// NewMemory creates an empty memory store.
func NewMemory() *Memory {
	return &Memory{runs: make(map[string]*fillrun.FillRun)}
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, id string) (*fillrun.FillRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, errors.NewNotFoundError("run", id)
	}
	return run.Clone(), nil
}

// Put implements Store.
func (m *Memory) Put(ctx context.Context, run *fillrun.FillRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkRun(run); err != nil {
		return err
	}
	m.mu.Lock()
	m.runs[run.ID] = run.Clone()
	m.mu.Unlock()
	return nil
}

// List implements Store. Runs are ordered by id.
func (m *Memory) List(ctx context.Context) ([]*fillrun.FillRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]*fillrun.FillRun, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, run.Clone())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[id]; !ok {
		return errors.NewNotFoundError("run", id)
	}
	delete(m.runs, id)
	return nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }
