package reconcile

import (
	"context"
	"sync"

	"github.com/agentstation/fillmap/pkg/fillrun"
)

// Op names a mapping mutation.
type Op string

// Mapping operations.
const (
	OpAdd    Op = "add"
	OpEdit   Op = "edit"
	OpRemove Op = "remove"
)

// Change describes one committed mutation.
type Change struct {
	RunID  string
	Op     Op
	Cell   fillrun.CellRef
	Before *fillrun.CellMapping // nil when the cell had no mapping
	After  *fillrun.CellMapping // nil when the mapping was removed
	Value  string               // value the cell resolves to afterwards
}

// Hook function types for reconciliation events
type (
	// MappingChangedHook is called after a mutation is committed
	MappingChangedHook func(ctx context.Context, change Change)

	// StatusResetHook is called when an edit moves a completed run back to review
	StatusResetHook func(ctx context.Context, runID string, from, to fillrun.Status)
)

// hooks manages event callbacks for mapping changes
type hooks struct {
	mu               sync.RWMutex
	onMappingChanged []MappingChangedHook
	onStatusReset    []StatusResetHook
}

// OnMappingChanged registers a callback for committed mutations
func (h *hooks) OnMappingChanged(fn MappingChangedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onMappingChanged = append(h.onMappingChanged, fn)
}

// OnStatusReset registers a callback for edit-triggered status resets
func (h *hooks) OnStatusReset(fn StatusResetHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStatusReset = append(h.onStatusReset, fn)
}

func (h *hooks) fire(ctx context.Context, change Change, reset *statusReset) {
	h.mu.RLock()
	changed := append([]MappingChangedHook(nil), h.onMappingChanged...)
	resets := append([]StatusResetHook(nil), h.onStatusReset...)
	h.mu.RUnlock()

	if reset != nil {
		for _, fn := range resets {
			fn(ctx, change.RunID, reset.from, reset.to)
		}
	}
	for _, fn := range changed {
		fn(ctx, change)
	}
}

type statusReset struct {
	from, to fillrun.Status
}
