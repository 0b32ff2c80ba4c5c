package reconcile

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/fillrun"
	"github.com/agentstation/fillmap/pkg/provenance"
	"github.com/agentstation/fillmap/pkg/workbook"
)

var (
	b4 = fillrun.MustCellRef("Sheet1", "B4")
	c4 = fillrun.MustCellRef("Sheet1", "C4")
	d2 = fillrun.MustCellRef("Sheet1", "D2")
	e9 = fillrun.MustCellRef("Sheet1", "E9")
	g1 = fillrun.MustCellRef("Sheet1", "G1")
)

func testSource(t *testing.T) *workbook.Memory {
	t.Helper()
	src := workbook.NewMemory("Sheet1")
	require.NoError(t, src.SetValue("Sheet1", "B4", "950,000"))
	require.NoError(t, src.SetValue("Sheet1", "C4", "80,000"))
	require.NoError(t, src.SetValue("Sheet1", "D2", "Q1"))
	require.NoError(t, src.SetFormula("Sheet1", "E9", "SUM(B1:B8)", "42"))
	return src
}

func newTestReconciler(t *testing.T, mutate ...func(*fillrun.FillRun)) *Reconciler {
	t.Helper()
	run := fillrun.NewTestRun()
	for _, fn := range mutate {
		fn(run)
	}
	r, err := New(run, testSource(t))
	require.NoError(t, err)
	return r
}

func resolve(t *testing.T, r *Reconciler, ref fillrun.CellRef) Resolution {
	t.Helper()
	res, err := r.ResolveValue(ref)
	require.NoError(t, err)
	return res
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, workbook.NewMemory())
	assert.True(t, errors.IsValidationError(err))
	_, err = New(fillrun.NewTestRun(), nil)
	assert.True(t, errors.IsValidationError(err))
}

func TestResolvePriority(t *testing.T) {
	r := newTestReconciler(t)

	res := resolve(t, r, e9)
	assert.Equal(t, "=SUM(B1:B8)", res.Value)
	assert.Equal(t, SourceFormula, res.Source)
	assert.True(t, res.IsFormula())

	res = resolve(t, r, c4)
	assert.Equal(t, "85,000", res.Value)
	assert.Equal(t, SourceField, res.Source)
	assert.Equal(t, "F8", res.FieldID)
	assert.InDelta(t, 0.65, res.Confidence, 1e-9)

	res = resolve(t, r, d2)
	assert.Equal(t, "Q3", res.Value)
	assert.Equal(t, SourceManual, res.Source)

	res = resolve(t, r, b4)
	assert.Equal(t, "950,000", res.Value)
	assert.Equal(t, SourceRaw, res.Source)
	assert.False(t, res.HasConfidence)

	res = resolve(t, r, g1)
	assert.Equal(t, "", res.Value)
	assert.Equal(t, SourceEmpty, res.Source)

	_, err := r.ResolveValue(fillrun.MustCellRef("Missing", "A1"))
	assert.True(t, errors.IsNotFound(err))
}

func TestResolveFallsBackToSampleValue(t *testing.T) {
	r := newTestReconciler(t, func(run *fillrun.FillRun) {
		delete(run.ExtractedData.LLMExtracted, "F8")
	})
	res := resolve(t, r, c4)
	assert.Equal(t, "85,000", res.Value)
	assert.Equal(t, SourceFieldSample, res.Source)
}

func TestAddRemoveScenario(t *testing.T) {
	ctx := context.Background()
	r := newTestReconciler(t)

	require.NoError(t, r.AddMapping(ctx, b4, "F7"))
	res := resolve(t, r, b4)
	assert.Equal(t, "1,200,000", res.Value)
	assert.Equal(t, SourceField, res.Source)

	m, ok := r.Mapping(b4)
	require.True(t, ok)
	assert.Equal(t, "F7", m.FieldID())
	assert.True(t, m.UserEdited)
	assert.Equal(t, "Total assets", m.ExcelLabel)

	require.NoError(t, r.RemoveMapping(ctx, b4))
	res = resolve(t, r, b4)
	assert.Equal(t, "950,000", res.Value)
	assert.Equal(t, SourceRaw, res.Source)

	_, kept := r.Snapshot().ExtractedData.Extracted("F7")
	assert.True(t, kept, "extracted value survives mapping removal")
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	cells := []fillrun.CellRef{b4, c4, d2, g1}

	for _, cell := range cells {
		t.Run(cell.String(), func(t *testing.T) {
			r := newTestReconciler(t)
			if _, mapped := r.Mapping(cell); mapped {
				require.NoError(t, r.RemoveMapping(ctx, cell))
			}
			before := resolve(t, r, cell).Value

			require.NoError(t, r.AddMapping(ctx, cell, "F9", WithValue("Jones LLP")))
			assert.Equal(t, "Jones LLP", resolve(t, r, cell).Value)

			require.NoError(t, r.RemoveMapping(ctx, cell))
			assert.Equal(t, before, resolve(t, r, cell).Value)
		})
	}
}

func TestManualRoundTrip(t *testing.T) {
	ctx := context.Background()
	cells := []fillrun.CellRef{b4, d2, g1}

	for _, cell := range cells {
		t.Run(cell.String(), func(t *testing.T) {
			r := newTestReconciler(t)
			before := resolve(t, r, cell)

			require.NoError(t, r.AddMapping(ctx, cell, "", WithValue("X")))
			assert.Equal(t, "X", resolve(t, r, cell).Value)

			require.NoError(t, r.RemoveMapping(ctx, cell))
			after := resolve(t, r, cell)
			assert.Equal(t, before.Value, after.Value)
			assert.Equal(t, before.Source, after.Source)
		})
	}

	t.Run("restored edit survives a second fill", func(t *testing.T) {
		r := newTestReconciler(t)
		require.NoError(t, r.AddMapping(ctx, d2, "", WithValue("X")))
		require.NoError(t, r.RemoveMapping(ctx, d2))
		require.NoError(t, r.AddMapping(ctx, d2, "", WithValue("Y")))
		require.NoError(t, r.RemoveMapping(ctx, d2))

		edit, ok := r.Snapshot().ExtractedData.ManualEdit(d2)
		require.True(t, ok)
		assert.Equal(t, "Q3", edit.Value)
	})
}

func TestConfidenceRange(t *testing.T) {
	ctx := context.Background()
	for _, c := range []float64{-0.1, 1.7, math.NaN(), math.Inf(1)} {
		r := newTestReconciler(t)
		before := r.Snapshot()

		err := r.AddMapping(ctx, b4, "F7", WithConfidence(c))
		assert.True(t, errors.IsValidationError(err), "confidence %v", c)
		err = r.EditMapping(ctx, c4, WithConfidence(c))
		assert.True(t, errors.IsValidationError(err), "confidence %v", c)

		after := r.Snapshot()
		assert.Equal(t, before.Mappings, after.Mappings)
		assert.Equal(t, before.ExtractedData, after.ExtractedData)
	}

	r := newTestReconciler(t)
	require.NoError(t, r.AddMapping(ctx, b4, "F7", WithConfidence(0)))
	require.NoError(t, r.EditMapping(ctx, b4, WithConfidence(1)))
	m, ok := r.Mapping(b4)
	require.True(t, ok)
	assert.InDelta(t, 1.0, m.Confidence, 1e-9)
}

func TestFormulaImmunity(t *testing.T) {
	ctx := context.Background()
	r := newTestReconciler(t)
	before := r.Snapshot()

	err := r.AddMapping(ctx, e9, "F7")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidTarget(err))

	err = r.AddMapping(ctx, e9, "", WithValue("x"))
	assert.True(t, errors.IsInvalidTarget(err))

	assert.Equal(t, before.Mappings, r.Snapshot().Mappings)
	assert.Equal(t, "=SUM(B1:B8)", resolve(t, r, e9).Value)
}

func TestFormulaWinsOverLoadedMapping(t *testing.T) {
	r := newTestReconciler(t, func(run *fillrun.FillRun) {
		run.Mappings = append(run.Mappings, fillrun.CellMapping{
			SheetName: "Sheet1", CellAddress: e9.Address, PdfFieldID: fillrun.FieldRef("F7"),
		})
	})
	res := resolve(t, r, e9)
	assert.Equal(t, SourceFormula, res.Source)
	assert.NotNil(t, res.Mapping)
}

func TestUnknownFieldRejectsAtomically(t *testing.T) {
	ctx := context.Background()
	r := newTestReconciler(t)
	before := r.Snapshot()

	err := r.AddMapping(ctx, b4, "F99", WithValue("x"))
	require.Error(t, err)
	assert.True(t, errors.IsUnknownField(err))

	err = r.EditMapping(ctx, c4, WithField("F99"), WithValue("x"))
	assert.True(t, errors.IsUnknownField(err))

	after := r.Snapshot()
	assert.Equal(t, before.Mappings, after.Mappings)
	assert.Equal(t, before.ExtractedData, after.ExtractedData)
}

func TestManualAdd(t *testing.T) {
	ctx := context.Background()
	r := newTestReconciler(t)

	err := r.AddMapping(ctx, b4, "")
	assert.True(t, errors.IsValidationError(err))

	require.NoError(t, r.AddMapping(ctx, b4, "", WithValue("1,000,000"), WithLabel("Assets")))
	res := resolve(t, r, b4)
	assert.Equal(t, "1,000,000", res.Value)
	assert.Equal(t, SourceManual, res.Source)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
	require.NotNil(t, res.Mapping)
	assert.False(t, res.Mapping.HasField())

	require.NoError(t, r.AddMapping(ctx, c4, "", WithValue("90,000")))
	res = resolve(t, r, c4)
	assert.Equal(t, "90,000", res.Value)
	assert.Equal(t, SourceManual, res.Source)
	assert.Equal(t, "Net income", res.Mapping.ExcelLabel)
}

func TestEditMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("value of field mapping", func(t *testing.T) {
		r := newTestReconciler(t)
		require.NoError(t, r.EditMapping(ctx, c4, WithValue("86,500")))
		res := resolve(t, r, c4)
		assert.Equal(t, "86,500", res.Value)
		ev, _ := r.Snapshot().ExtractedData.Extracted("F8")
		assert.True(t, ev.UserEdited)
		m, _ := r.Mapping(c4)
		assert.True(t, m.UserEdited)
	})

	t.Run("relink to another field", func(t *testing.T) {
		r := newTestReconciler(t)
		require.NoError(t, r.EditMapping(ctx, c4, WithField("F7")))
		res := resolve(t, r, c4)
		assert.Equal(t, "1,200,000", res.Value)
		assert.Equal(t, "F7", res.FieldID)
	})

	t.Run("unlink to manual keeps current value", func(t *testing.T) {
		r := newTestReconciler(t)
		require.NoError(t, r.EditMapping(ctx, c4, WithField("")))
		res := resolve(t, r, c4)
		assert.Equal(t, "85,000", res.Value)
		assert.Equal(t, SourceManual, res.Source)
	})

	t.Run("manual edit without mapping", func(t *testing.T) {
		r := newTestReconciler(t)
		require.NoError(t, r.EditMapping(ctx, d2, WithValue("Q4")))
		assert.Equal(t, "Q4", resolve(t, r, d2).Value)
	})

	t.Run("missing cell", func(t *testing.T) {
		r := newTestReconciler(t)
		err := r.EditMapping(ctx, b4, WithValue("x"))
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("nothing to edit", func(t *testing.T) {
		r := newTestReconciler(t)
		err := r.EditMapping(ctx, c4)
		assert.True(t, errors.IsValidationError(err))
	})
}

func TestRemoveMissingMappingMutatesNothing(t *testing.T) {
	r := newTestReconciler(t, func(run *fillrun.FillRun) {
		run.Status = fillrun.StatusCompleted
		run.Artifact = fillrun.NewArtifact("out.xlsx")
	})

	err := r.RemoveMapping(context.Background(), b4)
	assert.True(t, errors.IsNotFound(err))

	snap := r.Snapshot()
	assert.Equal(t, fillrun.StatusCompleted, snap.Status)
	assert.NotNil(t, snap.Artifact)
}

func TestStatusReset(t *testing.T) {
	ops := map[string]func(ctx context.Context, r *Reconciler) error{
		"add": func(ctx context.Context, r *Reconciler) error {
			return r.AddMapping(ctx, b4, "F7")
		},
		"edit": func(ctx context.Context, r *Reconciler) error {
			return r.EditMapping(ctx, c4, WithValue("1"))
		},
		"remove": func(ctx context.Context, r *Reconciler) error {
			return r.RemoveMapping(ctx, c4)
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			r := newTestReconciler(t, func(run *fillrun.FillRun) {
				run.Status = fillrun.StatusCompleted
				run.Artifact = fillrun.NewArtifact("out.xlsx")
			})

			var resets int
			r.OnStatusReset(func(_ context.Context, runID string, from, to fillrun.Status) {
				resets++
				assert.Equal(t, fillrun.StatusCompleted, from)
				assert.Equal(t, fillrun.StatusAwaitingReview, to)
			})

			require.NoError(t, op(context.Background(), r))
			snap := r.Snapshot()
			assert.Equal(t, fillrun.StatusAwaitingReview, snap.Status)
			assert.Nil(t, snap.Artifact)
			assert.Equal(t, 1, resets)
		})
	}
}

func TestNotEditable(t *testing.T) {
	r := newTestReconciler(t, func(run *fillrun.FillRun) {
		run.Status = fillrun.StatusFilling
	})
	err := r.AddMapping(context.Background(), b4, "F7")
	assert.True(t, errors.IsNotEditable(err))
}

func TestCanceledContext(t *testing.T) {
	r := newTestReconciler(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.AddMapping(ctx, b4, "F7")
	assert.True(t, errors.IsCanceled(err))
	_, mapped := r.Mapping(b4)
	assert.False(t, mapped)
}

func TestOneMappingPerCell(t *testing.T) {
	ctx := context.Background()
	r := newTestReconciler(t)

	require.NoError(t, r.AddMapping(ctx, b4, "F7"))
	require.NoError(t, r.AddMapping(ctx, fillrun.MustCellRef("sheet1", "b4"), "F8"))
	require.NoError(t, r.EditMapping(ctx, b4, WithField("F9")))
	require.NoError(t, r.AddMapping(ctx, b4, "", WithValue("manual")))
	require.NoError(t, r.AddMapping(ctx, c4, "F7"))

	seen := map[string]int{}
	for _, m := range r.Snapshot().Mappings {
		seen[m.Ref().Key()]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, key)
	}
}

func TestDuplicateMappingsCollapseOnMutation(t *testing.T) {
	r := newTestReconciler(t, func(run *fillrun.FillRun) {
		run.Mappings = append(run.Mappings, fillrun.CellMapping{
			SheetName: "SHEET1", CellAddress: c4.Address, PdfFieldID: fillrun.FieldRef("F7"),
		})
	})

	warnings := r.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "C4", warnings[0].Cell)
	assert.Equal(t, 2, warnings[0].Count)
	assert.ErrorIs(t, warnings[0], errors.ErrDuplicateMapping)

	assert.Equal(t, "F8", resolve(t, r, c4).FieldID, "first mapping in input order wins")

	require.NoError(t, r.EditMapping(context.Background(), c4, WithValue("1")))
	assert.Empty(t, r.Warnings())
	assert.Len(t, r.Snapshot().Mappings, 1)
}

func TestHooksAndProvenance(t *testing.T) {
	ctx := context.Background()
	r := newTestReconciler(t)

	var changes []Change
	r.OnMappingChanged(func(_ context.Context, c Change) {
		changes = append(changes, c)
	})

	require.NoError(t, r.AddMapping(ctx, b4, "F7", WithReasoning("row label")))
	require.NoError(t, r.RemoveMapping(ctx, b4))

	require.Len(t, changes, 2)
	assert.Equal(t, OpAdd, changes[0].Op)
	assert.Nil(t, changes[0].Before)
	require.NotNil(t, changes[0].After)
	assert.Equal(t, "row label", changes[0].After.Reasoning)
	assert.Equal(t, "1,200,000", changes[0].Value)
	assert.Equal(t, OpRemove, changes[1].Op)
	assert.Nil(t, changes[1].After)
	assert.Equal(t, "950,000", changes[1].Value)

	p, ok := r.Provenance(b4)
	require.True(t, ok)
	assert.Equal(t, provenance.SourceRemoved, p.Source)
	assert.Equal(t, "1,200,000", p.PreviousValue)
	assert.Equal(t, "950,000", p.Value)
}

func TestObserveStatusAndArtifact(t *testing.T) {
	ctx := context.Background()
	r := newTestReconciler(t)

	err := r.AttachArtifact(ctx, fillrun.NewArtifact("out.xlsx"))
	assert.True(t, errors.IsValidationError(err))

	require.NoError(t, r.ObserveStatus(ctx, fillrun.StatusFilling))
	require.NoError(t, r.AttachArtifact(ctx, fillrun.NewArtifact("out.xlsx")))
	require.NoError(t, r.ObserveStatus(ctx, fillrun.StatusCompleted))
	require.NoError(t, r.ObserveStatus(ctx, fillrun.StatusCompleted))

	err = r.ObserveStatus(ctx, fillrun.StatusMapping)
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)

	snap := r.Snapshot()
	assert.Equal(t, fillrun.StatusCompleted, snap.Status)
	assert.NotNil(t, snap.Artifact)
}

func TestObserveStatusWithArtifactIsAtomic(t *testing.T) {
	ctx := context.Background()
	r := newTestReconciler(t)

	err := r.ObserveStatusWithArtifact(ctx, fillrun.StatusFailed, fillrun.NewArtifact("out.xlsx"))
	assert.True(t, errors.IsValidationError(err))
	snap := r.Snapshot()
	assert.Equal(t, fillrun.StatusAwaitingReview, snap.Status)
	assert.Nil(t, snap.Artifact)

	err = r.ObserveStatusWithArtifact(ctx, fillrun.StatusQueued, fillrun.NewArtifact("out.xlsx"))
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)

	require.NoError(t, r.ObserveStatusWithArtifact(ctx, fillrun.StatusFilling, fillrun.NewArtifact("out.xlsx")))
	snap = r.Snapshot()
	assert.Equal(t, fillrun.StatusFilling, snap.Status)
	require.NotNil(t, snap.Artifact)
	assert.Equal(t, "out.xlsx", snap.Artifact.Path)
}
