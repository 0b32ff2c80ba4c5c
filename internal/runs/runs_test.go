package runs

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/fillrun"
	"github.com/agentstation/fillmap/pkg/grid"
	"github.com/agentstation/fillmap/pkg/provenance"
	"github.com/agentstation/fillmap/pkg/reconcile"
)

const runID = "run-test"

var b4 = fillrun.MustCellRef("Sheet1", "B4")

type updates struct {
	mu   sync.Mutex
	list []Update
}

func (u *updates) record(_ context.Context, update Update) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.list = append(u.list, update)
}

func (u *updates) all() []Update {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Update(nil), u.list...)
}

func TestAddAndRemovePersist(t *testing.T) {
	ctx := context.Background()
	s := NewTestService()
	rec := &updates{}
	s.OnUpdated(rec.record)

	run, err := s.AddMapping(ctx, runID, b4, "F7")
	require.NoError(t, err)
	m, ok := run.Mapping(b4)
	require.True(t, ok)
	assert.Equal(t, "F7", m.FieldID())

	res, err := s.Resolve(ctx, runID, b4)
	require.NoError(t, err)
	assert.Equal(t, "1,200,000", res.Value)

	_, err = s.RemoveMapping(ctx, runID, b4)
	require.NoError(t, err)
	res, err = s.Resolve(ctx, runID, b4)
	require.NoError(t, err)
	assert.Equal(t, "950,000", res.Value)

	got := rec.all()
	require.Len(t, got, 2)
	assert.Equal(t, ReasonMappingAdded, got[0].Reason)
	assert.Equal(t, "1,200,000", got[0].Value)
	require.NotNil(t, got[0].Cell)
	assert.Equal(t, "Sheet1!B4", got[0].Cell.String())
	assert.Equal(t, ReasonMappingRemoved, got[1].Reason)
}

func TestFailedMutationPublishesNothing(t *testing.T) {
	ctx := context.Background()
	s := NewTestService()
	rec := &updates{}
	s.OnUpdated(rec.record)

	_, err := s.AddMapping(ctx, runID, fillrun.MustCellRef("Sheet1", "E9"), "F7")
	assert.True(t, errors.IsInvalidTarget(err))
	_, err = s.AddMapping(ctx, runID, b4, "F99")
	assert.True(t, errors.IsUnknownField(err))
	_, err = s.RemoveMapping(ctx, runID, b4)
	assert.True(t, errors.IsNotFound(err))
	_, err = s.AddMapping(ctx, "missing", b4, "F7")
	assert.True(t, errors.IsNotFound(err))

	assert.Empty(t, rec.all())
	run, err := s.Get(ctx, runID)
	require.NoError(t, err)
	assert.Len(t, run.Mappings, 1)
}

func TestEditOnCompletedRunResets(t *testing.T) {
	ctx := context.Background()
	s := NewTestService()
	rec := &updates{}
	s.OnUpdated(rec.record)

	run, err := s.ObserveStatus(ctx, runID, fillrun.StatusFilling)
	require.NoError(t, err)
	assert.Equal(t, fillrun.StatusFilling, run.Status)
	_, err = s.AttachArtifact(ctx, runID, "out/filled.xlsx")
	require.NoError(t, err)
	run, err = s.ObserveStatus(ctx, runID, fillrun.StatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, run.Artifact)

	run, err = s.EditMapping(ctx, runID, fillrun.MustCellRef("Sheet1", "C4"), reconcile.WithValue("90,000"))
	require.NoError(t, err)
	assert.Equal(t, fillrun.StatusAwaitingReview, run.Status)
	assert.Nil(t, run.Artifact)

	got := rec.all()
	require.Len(t, got, 4)
	assert.True(t, got[3].StatusReset)
	assert.Equal(t, fillrun.StatusAwaitingReview, got[3].Status)
}

func TestObserveSameStatusIsQuiet(t *testing.T) {
	s := NewTestService()
	rec := &updates{}
	s.OnUpdated(rec.record)

	_, err := s.ObserveStatus(context.Background(), runID, fillrun.StatusAwaitingReview)
	require.NoError(t, err)
	assert.Empty(t, rec.all())
}

func TestGrid(t *testing.T) {
	ctx := context.Background()
	s := NewTestService()

	res, err := s.Grid(ctx, runID, "", grid.Range{})
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", res.Projection.Sheet)
	assert.NotEmpty(t, res.Projection.Rows)

	r, err := grid.ParseRange("C4:C4")
	require.NoError(t, err)
	res, err = s.Grid(ctx, runID, "Sheet1", r)
	require.NoError(t, err)
	require.Len(t, res.Projection.Rows, 1)
	cell := res.Projection.Rows[0][0]
	assert.Equal(t, "85,000", cell.DisplayValue)
	assert.True(t, cell.MappingPresent)

	_, err = s.Grid(ctx, runID, "Nope", grid.Range{})
	assert.Error(t, err)
}

func TestCitations(t *testing.T) {
	s := NewTestService()
	res, err := s.Citations(context.Background(), runID, "see [D2:p4] and [D9:p1]")
	require.NoError(t, err)
	cites := res.Citations()
	require.Len(t, cites, 1)
	assert.Equal(t, "doc-appendix", cites[0].DocumentRef)
	assert.Len(t, res.Unresolved, 1)
}

func TestManualFillRestoresPriorEdit(t *testing.T) {
	ctx := context.Background()
	s := NewTestService()
	d2 := fillrun.MustCellRef("Sheet1", "D2")

	_, err := s.AddMapping(ctx, runID, d2, "", reconcile.WithValue("X"))
	require.NoError(t, err)
	res, err := s.Resolve(ctx, runID, d2)
	require.NoError(t, err)
	assert.Equal(t, "X", res.Value)

	_, err = s.RemoveMapping(ctx, runID, d2)
	require.NoError(t, err)
	res, err = s.Resolve(ctx, runID, d2)
	require.NoError(t, err)
	assert.Equal(t, "Q3", res.Value)
}

func TestProvenanceAccumulates(t *testing.T) {
	ctx := context.Background()
	s := NewTestService()

	_, err := s.AddMapping(ctx, runID, b4, "F7")
	require.NoError(t, err)
	_, err = s.EditMapping(ctx, runID, fillrun.MustCellRef("Sheet1", "D2"), reconcile.WithValue("Q4"))
	require.NoError(t, err)

	m := s.Provenance(runID)
	assert.Len(t, m, 2)
	assert.Equal(t, provenance.SourceField, m[b4.Key()].Source)
}

func TestConcurrentMutationsSerialize(t *testing.T) {
	ctx := context.Background()
	s := NewTestService()

	cells := []string{"B1", "B2", "B3", "B5", "B6", "B7", "B8", "B9"}
	var wg sync.WaitGroup
	for _, cell := range cells {
		wg.Add(1)
		go func(cell string) {
			defer wg.Done()
			_, err := s.AddMapping(ctx, runID, fillrun.MustCellRef("Sheet1", cell), "", reconcile.WithValue(cell))
			assert.NoError(t, err)
		}(cell)
	}
	wg.Wait()

	run, err := s.Get(ctx, runID)
	require.NoError(t, err)
	assert.Len(t, run.Mappings, 1+len(cells))
}
