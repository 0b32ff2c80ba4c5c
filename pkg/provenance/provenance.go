// Package provenance records where the current value of each cell came from.
//
// Only the latest write per cell is kept. Mapping history beyond
// last-write-wins is not retained.
package provenance

import (
	"sort"
	"sync"

	"github.com/agentstation/utc"

	"github.com/agentstation/fillmap/pkg/fillrun"
)

// Source identifies which store a cell value was written to.
type Source string

// Provenance sources.
const (
	SourceField   Source = "field"   // value written to llm_extracted through a mapping
	SourceManual  Source = "manual"  // value written to manual_edits
	SourceRemoved Source = "removed" // mapping removed, cell reverted
)

// Provenance describes the latest write to a cell.
type Provenance struct {
	Cell          string   `json:"cell" yaml:"cell"`
	Source        Source   `json:"source" yaml:"source"`
	FieldID       string   `json:"field_id,omitempty" yaml:"field_id,omitempty"`
	Value         string   `json:"value" yaml:"value"`
	PreviousValue string   `json:"previous_value,omitempty" yaml:"previous_value,omitempty"`
	Confidence    float64  `json:"confidence" yaml:"confidence"`
	Reason        string   `json:"reason,omitempty" yaml:"reason,omitempty"`
	Timestamp     utc.Time `json:"timestamp" yaml:"timestamp"`
}

// Map holds provenance keyed by fillrun.CellRef.Key.
type Map map[string]Provenance

// Tracker records provenance during reconciliation.
type Tracker interface {
	// Track records the latest write to a cell, replacing any earlier one.
	Track(ref fillrun.CellRef, p Provenance)

	// Find returns the latest write to a cell.
	Find(ref fillrun.CellRef) (Provenance, bool)

	// Map returns a copy of all tracked cells.
	Map() Map

	// Clear removes all provenance data.
	Clear()
}

type tracker struct {
	mu      sync.RWMutex
	cells   Map
	enabled bool
}

// NewTracker creates a tracker. A disabled tracker records nothing.
func NewTracker(enabled bool) Tracker {
	return &tracker{cells: make(Map), enabled: enabled}
}

func (t *tracker) Track(ref fillrun.CellRef, p Provenance) {
	if !t.enabled {
		return
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = utc.Now()
	}
	if p.Cell == "" {
		p.Cell = ref.String()
	}
	t.mu.Lock()
	t.cells[ref.Key()] = p
	t.mu.Unlock()
}

func (t *tracker) Find(ref fillrun.CellRef) (Provenance, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.cells[ref.Key()]
	return p, ok
}

func (t *tracker) Map() Map {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(Map, len(t.cells))
	for k, v := range t.cells {
		out[k] = v
	}
	return out
}

func (t *tracker) Clear() {
	t.mu.Lock()
	t.cells = make(Map)
	t.mu.Unlock()
}

// Sorted returns the entries newest first, ties broken by cell.
func (m Map) Sorted() []Provenance {
	out := make([]Provenance, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Time.Equal(out[j].Timestamp.Time) {
			return out[i].Timestamp.Time.After(out[j].Timestamp.Time)
		}
		return out[i].Cell < out[j].Cell
	})
	return out
}
