package provenance

import (
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fillmap/pkg/fillrun"
)

func TestTrackerLastWriteWins(t *testing.T) {
	tr := NewTracker(true)
	ref := fillrun.MustCellRef("Sheet1", "B4")

	tr.Track(ref, Provenance{Source: SourceField, FieldID: "F7", Value: "1,200,000", Confidence: 0.92})
	tr.Track(fillrun.MustCellRef("SHEET1", "B4"), Provenance{Source: SourceManual, Value: "1,250,000", PreviousValue: "1,200,000"})

	p, ok := tr.Find(ref)
	require.True(t, ok)
	assert.Equal(t, SourceManual, p.Source)
	assert.Equal(t, "1,200,000", p.PreviousValue)
	assert.Equal(t, "SHEET1!B4", p.Cell)
	assert.False(t, p.Timestamp.IsZero())
	assert.Len(t, tr.Map(), 1)

	tr.Clear()
	_, ok = tr.Find(ref)
	assert.False(t, ok)
}

func TestDisabledTracker(t *testing.T) {
	tr := NewTracker(false)
	tr.Track(fillrun.MustCellRef("Sheet1", "A1"), Provenance{Value: "x"})
	assert.Empty(t, tr.Map())
}

func TestMapSorted(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := Map{
		"a": {Cell: "Sheet1!A1", Timestamp: utc.New(base)},
		"b": {Cell: "Sheet1!B1", Timestamp: utc.New(base.Add(time.Minute))},
		"c": {Cell: "Sheet1!A2", Timestamp: utc.New(base)},
	}
	sorted := m.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, "Sheet1!B1", sorted[0].Cell)
	assert.Equal(t, "Sheet1!A1", sorted[1].Cell)
	assert.Equal(t, "Sheet1!A2", sorted[2].Cell)
}
