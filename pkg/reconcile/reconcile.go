// Package reconcile owns the mapping state of a fill run.
//
// A Reconciler is the single authority over one FillRun's cell mappings and
// extracted values. Every add, edit and remove goes through it, is validated
// in full before anything is written, and on success invalidates the run's
// artifact. A completed run that is edited returns to awaiting_review.
//
// Value resolution is deterministic:
//
//	formula text > mapped field's extracted value (or its sample value)
//	             > manual edit > raw stored value > empty
package reconcile

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/fillrun"
	"github.com/agentstation/fillmap/pkg/provenance"
	"github.com/agentstation/fillmap/pkg/workbook"
)

// ValueSource says which store a resolved value came from.
type ValueSource string

// Resolution sources in priority order.
const (
	SourceFormula     ValueSource = "formula"
	SourceField       ValueSource = "field"
	SourceFieldSample ValueSource = "field_sample"
	SourceManual      ValueSource = "manual"
	SourceRaw         ValueSource = "raw"
	SourceEmpty       ValueSource = "empty"
)

// Resolution is the value a cell displays and where it came from.
type Resolution struct {
	Cell          fillrun.CellRef      `json:"-"`
	Value         string               `json:"value"`
	Source        ValueSource          `json:"source"`
	Confidence    float64              `json:"confidence"`
	HasConfidence bool                 `json:"has_confidence"`
	FieldID       string               `json:"field_id,omitempty"`
	Mapping       *fillrun.CellMapping `json:"mapping,omitempty"`
	Raw           workbook.RawCell     `json:"raw"`
}

// IsFormula reports whether the cell is a read-only formula cell.
func (r Resolution) IsFormula() bool {
	return r.Source == SourceFormula
}

// Reconciler owns one run's mapping and extracted-data state.
// It is safe for concurrent use; mutations are serialized.
type Reconciler struct {
	hooks

	mu      sync.Mutex
	run     *fillrun.FillRun
	source  workbook.Source
	logger  *zerolog.Logger
	tracker provenance.Tracker

	index map[string]int // cell key -> first mapping in input order
	dupes []*errors.DuplicateMappingError
}

// New creates a Reconciler over a copy of run. source supplies raw cell
// content and formula flags for the run's template.
func New(run *fillrun.FillRun, source workbook.Source, opts ...Option) (*Reconciler, error) {
	if run == nil {
		return nil, errors.NewValidationError("run", nil, "cannot be nil")
	}
	if source == nil {
		return nil, errors.NewValidationError("source", nil, "cannot be nil")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	r := &Reconciler{
		run:     run.Clone(),
		source:  source,
		logger:  o.logger,
		tracker: o.tracker,
	}
	r.reindex()
	for _, d := range r.dupes {
		r.logger.Warn().
			Err(d).
			Str("run_id", r.run.ID).
			Str("sheet", d.Sheet).
			Str("cell", d.Cell).
			Int("count", d.Count).
			Msg("Duplicate cell mappings in run data")
	}
	return r, nil
}

// RunID returns the id of the owned run.
func (r *Reconciler) RunID() string {
	return r.run.ID
}

// Status returns the run's current status.
func (r *Reconciler) Status() fillrun.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run.Status
}

// Snapshot returns a deep copy of the run.
func (r *Reconciler) Snapshot() *fillrun.FillRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run.Clone()
}

// Warnings returns the duplicate mappings present in the data. Mutating a
// duplicated cell collapses it to a single mapping and clears its warning.
func (r *Reconciler) Warnings() []*errors.DuplicateMappingError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*errors.DuplicateMappingError(nil), r.dupes...)
}

// Mapping returns the effective mapping for a cell.
func (r *Reconciler) Mapping(ref fillrun.CellRef) (fillrun.CellMapping, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.mappingLocked(ref)
	if m == nil {
		return fillrun.CellMapping{}, false
	}
	return *m, true
}

// Provenance returns the latest recorded write to a cell.
func (r *Reconciler) Provenance(ref fillrun.CellRef) (provenance.Provenance, bool) {
	return r.tracker.Find(ref)
}

// Provenances returns all recorded writes.
func (r *Reconciler) Provenances() provenance.Map {
	return r.tracker.Map()
}

// ResolveValue returns the value a cell displays.
func (r *Reconciler) ResolveValue(ref fillrun.CellRef) (Resolution, error) {
	raw, err := r.source.RawCell(ref.Sheet, ref.Address)
	if err != nil {
		return Resolution{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolve(ref, raw), nil
}

// AddMapping links a cell to a field, or fills it by hand when fieldID is
// empty (a value is then required).
//
// With a field, the cell's mapping is created or replaced and the field's
// extracted value is set to the supplied value, else kept, else seeded from
// the field's sample value. Without a field, the cell gets a manual mapping
// and its value is written to the manual edits.
func (r *Reconciler) AddMapping(ctx context.Context, ref fillrun.CellRef, fieldID string, opts ...MutationOption) error {
	m := newMutation(opts...)
	return r.mutate(ctx, OpAdd, ref, func(raw workbook.RawCell) (*fillrun.CellMapping, provenance.Provenance, error) {
		if err := m.validate(); err != nil {
			return nil, provenance.Provenance{}, err
		}
		if err := r.checkTarget(ref, raw); err != nil {
			return nil, provenance.Provenance{}, err
		}
		before := r.mappingLocked(ref)
		if fieldID != "" {
			return r.linkField(ref, raw, fieldID, m, before)
		}
		if m.value == nil {
			return nil, provenance.Provenance{}, errors.NewValidationError("value", nil, "required when no field is given")
		}
		return r.fillManual(ref, raw, m, before)
	})
}

// EditMapping changes the field a cell maps to and/or its stored value.
// The cell must already have a mapping or a manual edit.
func (r *Reconciler) EditMapping(ctx context.Context, ref fillrun.CellRef, opts ...MutationOption) error {
	m := newMutation(opts...)
	return r.mutate(ctx, OpEdit, ref, func(raw workbook.RawCell) (*fillrun.CellMapping, provenance.Provenance, error) {
		if m.empty() {
			return nil, provenance.Provenance{}, errors.NewValidationError("options", nil, "nothing to edit")
		}
		if err := m.validate(); err != nil {
			return nil, provenance.Provenance{}, err
		}
		if err := r.checkTarget(ref, raw); err != nil {
			return nil, provenance.Provenance{}, err
		}

		before := r.mappingLocked(ref)
		_, hasEdit := r.run.ExtractedData.ManualEdit(ref)
		if before == nil && !hasEdit {
			return nil, provenance.Provenance{}, errors.NewNotFoundError("mapping", ref.String())
		}

		switch {
		case m.field != nil && *m.field != "":
			return r.linkField(ref, raw, *m.field, m, before)
		case m.field != nil:
			if m.value == nil {
				current := r.resolve(ref, raw).Value
				m.value = &current
			}
			return r.fillManual(ref, raw, m, before)
		case before != nil && before.HasField():
			return r.linkField(ref, raw, before.FieldID(), m, before)
		default:
			return r.fillManual(ref, raw, m, before)
		}
	})
}

// RemoveMapping deletes a cell's mapping. A field's extracted value is kept
// since other cells may map the same field; a manual mapping takes its
// manual edit with it, restoring any unmapped edit it replaced. The cell
// reverts to whatever it showed before the mapping was added.
func (r *Reconciler) RemoveMapping(ctx context.Context, ref fillrun.CellRef) error {
	return r.mutate(ctx, OpRemove, ref, func(raw workbook.RawCell) (*fillrun.CellMapping, provenance.Provenance, error) {
		before := r.mappingLocked(ref)
		if before == nil {
			return nil, provenance.Provenance{}, errors.NewNotFoundError("mapping", ref.String())
		}
		previous := r.resolve(ref, raw).Value

		r.deleteMapping(ref)
		switch {
		case before.ReplacedEdit != nil:
			r.run.ExtractedData.SetManualEdit(ref, *before.ReplacedEdit)
		case !before.HasField():
			r.run.ExtractedData.DeleteManualEdit(ref)
		}
		r.reindex()

		return nil, provenance.Provenance{
			Source:        provenance.SourceRemoved,
			FieldID:       before.FieldID(),
			Value:         r.resolve(ref, raw).Value,
			PreviousValue: previous,
		}, nil
	})
}

// ObserveStatus applies a status change reported by the external pipeline.
// Observing the current status is a no-op.
func (r *Reconciler) ObserveStatus(ctx context.Context, to fillrun.Status) error {
	return r.observe(to, nil)
}

// ObserveStatusWithArtifact applies a status change and attaches artifact
// as one step. Nothing changes unless both are accepted.
func (r *Reconciler) ObserveStatusWithArtifact(ctx context.Context, to fillrun.Status, artifact *fillrun.Artifact) error {
	if artifact == nil {
		return errors.NewValidationError("artifact", nil, "cannot be nil")
	}
	return r.observe(to, artifact)
}

// AttachArtifact records a spreadsheet generated from the current mapping
// state. Artifacts attach while the run is filling or completed.
func (r *Reconciler) AttachArtifact(ctx context.Context, artifact *fillrun.Artifact) error {
	if artifact == nil {
		return errors.NewValidationError("artifact", nil, "cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := acceptsArtifact(r.run.Status); err != nil {
		return err
	}
	r.attach(artifact)
	return nil
}

func (r *Reconciler) observe(to fillrun.Status, artifact *fillrun.Artifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	from := r.run.Status
	next := from
	if from != to {
		var err error
		if next, err = fillrun.Transition(r.run.ID, from, to); err != nil {
			return err
		}
	}
	if artifact != nil {
		if err := acceptsArtifact(next); err != nil {
			return err
		}
	}

	if next != from {
		r.run.Status = next
		r.run.Touch()
		r.logger.Info().
			Str("run_id", r.run.ID).
			Stringer("from", from).
			Stringer("to", next).
			Msg("Run status changed")
	}
	if artifact != nil {
		r.attach(artifact)
	}
	return nil
}

// attach stores a copy of artifact. Caller holds r.mu.
func (r *Reconciler) attach(artifact *fillrun.Artifact) {
	a := *artifact
	r.run.Artifact = &a
	r.run.Touch()
	r.logger.Info().Str("run_id", r.run.ID).Str("artifact_id", a.ID).Msg("Artifact attached")
}

func acceptsArtifact(status fillrun.Status) error {
	switch status {
	case fillrun.StatusFilling, fillrun.StatusCompleted:
		return nil
	default:
		return errors.NewValidationError("status", status, "artifacts attach only while filling or completed")
	}
}

// mutate runs apply under the lock and commits its result. apply must
// validate everything before its first write.
func (r *Reconciler) mutate(
	ctx context.Context,
	op Op,
	ref fillrun.CellRef,
	apply func(raw workbook.RawCell) (*fillrun.CellMapping, provenance.Provenance, error),
) error {
	if err := ctx.Err(); err != nil {
		return errors.WrapResource(string(op), "mapping", ref.String(), errors.ErrCanceled)
	}
	raw, err := r.source.RawCell(ref.Sheet, ref.Address)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if !r.run.Status.Editable() {
		status := r.run.Status
		r.mu.Unlock()
		return &errors.NotEditableError{RunID: r.run.ID, Status: status.String()}
	}

	var before *fillrun.CellMapping
	if m := r.mappingLocked(ref); m != nil {
		copied := *m
		before = &copied
	}

	after, prov, err := apply(raw)
	if err != nil {
		r.mu.Unlock()
		r.logger.Debug().Err(err).
			Str("run_id", r.run.ID).
			Str("op", string(op)).
			Str("sheet", ref.Sheet).
			Str("cell", ref.Address.String()).
			Msg("Mapping mutation rejected")
		return err
	}

	change, reset := r.commit(ctx, op, ref, raw, before, after, prov)
	r.mu.Unlock()

	r.fire(ctx, change, reset)
	return nil
}

// commit performs the side effects shared by every successful mutation.
func (r *Reconciler) commit(
	ctx context.Context,
	op Op,
	ref fillrun.CellRef,
	raw workbook.RawCell,
	before, after *fillrun.CellMapping,
	prov provenance.Provenance,
) (Change, *statusReset) {
	log := r.logger.With().Str("run_id", r.run.ID).Logger()

	if r.run.Artifact != nil {
		log.Info().
			Err(errors.ErrStaleArtifact).
			Str("artifact_id", r.run.Artifact.ID).
			Msg("Artifact invalidated by mapping change")
		r.run.Artifact = nil
	}

	var reset *statusReset
	if next, changed := fillrun.Reset(r.run.Status); changed {
		reset = &statusReset{from: r.run.Status, to: next}
		r.run.Status = next
		log.Info().
			Stringer("from", reset.from).
			Stringer("to", reset.to).
			Msg("Run returned to review after edit")
	}

	r.run.Touch()
	r.tracker.Track(ref, prov)

	change := Change{
		RunID:  r.run.ID,
		Op:     op,
		Cell:   ref,
		Before: before,
		After:  after,
		Value:  r.resolve(ref, raw).Value,
	}
	log.Debug().
		Str("op", string(op)).
		Str("sheet", ref.Sheet).
		Str("cell", ref.Address.String()).
		Str("field_id", prov.FieldID).
		Msg("Mapping committed")
	return change, reset
}

// linkField maps ref to fieldID. Validation happens before any write.
func (r *Reconciler) linkField(
	ref fillrun.CellRef,
	raw workbook.RawCell,
	fieldID string,
	m *mutation,
	before *fillrun.CellMapping,
) (*fillrun.CellMapping, provenance.Provenance, error) {
	field, ok := r.run.Field(fieldID)
	if !ok {
		return nil, provenance.Provenance{}, errors.NewUnknownFieldError(fieldID, r.run.ID)
	}
	previous := r.resolve(ref, raw).Value

	existing, had := r.run.ExtractedData.Extracted(fieldID)
	ev := fillrun.ExtractedValue{
		Value:      field.SampleValue,
		Confidence: field.Confidence,
		SourcePage: field.SourcePage,
		Citations:  field.Citations,
	}
	if had {
		ev = existing
	}
	if m.value != nil {
		ev.Value = *m.value
		ev.UserEdited = true
		ev.Confidence = 1
	}
	if m.confidence != nil {
		ev.Confidence = *m.confidence
	}
	if m.citations != nil {
		ev.Citations = m.citations
	}

	mapping := fillrun.CellMapping{
		SheetName:    sheetName(ref, before),
		CellAddress:  ref.Address,
		PdfFieldID:   fillrun.FieldRef(fieldID),
		ExcelLabel:   field.Name,
		Confidence:   1,
		UserEdited:   true,
		ReplacedEdit: replacedEdit(before),
	}
	if before != nil {
		if before.ExcelLabel != "" {
			mapping.ExcelLabel = before.ExcelLabel
		}
		if before.FieldID() == fieldID {
			mapping.Reasoning = before.Reasoning
		}
	}
	applyMappingOptions(&mapping, m)

	r.run.ExtractedData.SetExtracted(fieldID, ev)
	r.setMapping(ref, mapping)
	r.reindex()

	return &mapping, provenance.Provenance{
		Source:        provenance.SourceField,
		FieldID:       fieldID,
		Value:         ev.Value,
		PreviousValue: previous,
		Confidence:    ev.Confidence,
		Reason:        mapping.Reasoning,
	}, nil
}

// fillManual gives ref a manual mapping and writes its manual edit.
func (r *Reconciler) fillManual(
	ref fillrun.CellRef,
	raw workbook.RawCell,
	m *mutation,
	before *fillrun.CellMapping,
) (*fillrun.CellMapping, provenance.Provenance, error) {
	previous := r.resolve(ref, raw).Value

	edit, hadEdit := r.run.ExtractedData.ManualEdit(ref)
	replaced := replacedEdit(before)
	if before == nil && hadEdit {
		prior := edit
		replaced = &prior
	}
	if m.value != nil {
		edit.Value = *m.value
		edit.Confidence = 1
	}
	if m.confidence != nil {
		edit.Confidence = *m.confidence
	}
	if m.citations != nil {
		edit.Citations = m.citations
	}
	edit.UserEdited = true

	mapping := fillrun.CellMapping{
		SheetName:    sheetName(ref, before),
		CellAddress:  ref.Address,
		Confidence:   edit.Confidence,
		UserEdited:   true,
		ReplacedEdit: replaced,
	}
	if before != nil {
		mapping.ExcelLabel = before.ExcelLabel
		if !before.HasField() {
			mapping.Reasoning = before.Reasoning
		}
	}
	applyMappingOptions(&mapping, m)

	r.run.ExtractedData.SetManualEdit(ref, edit)
	r.setMapping(ref, mapping)
	r.reindex()

	return &mapping, provenance.Provenance{
		Source:        provenance.SourceManual,
		Value:         edit.Value,
		PreviousValue: previous,
		Confidence:    edit.Confidence,
		Reason:        mapping.Reasoning,
	}, nil
}

// replacedEdit carries the unmapped edit a manual mapping displaced onto
// whatever mapping replaces it.
func replacedEdit(before *fillrun.CellMapping) *fillrun.ManualEdit {
	if before == nil || before.ReplacedEdit == nil {
		return nil
	}
	prior := *before.ReplacedEdit
	return &prior
}

func applyMappingOptions(mapping *fillrun.CellMapping, m *mutation) {
	if m.label != nil {
		mapping.ExcelLabel = *m.label
	}
	if m.reasoning != nil {
		mapping.Reasoning = *m.reasoning
	}
	if m.confidence != nil {
		mapping.Confidence = *m.confidence
	}
}

// checkTarget rejects formula cells.
func (r *Reconciler) checkTarget(ref fillrun.CellRef, raw workbook.RawCell) error {
	if raw.IsFormula() {
		return errors.NewInvalidTargetError(ref.Sheet, ref.Address.String(), raw.Formula)
	}
	return nil
}

// resolve computes a cell's value. Caller holds r.mu.
func (r *Reconciler) resolve(ref fillrun.CellRef, raw workbook.RawCell) Resolution {
	res := Resolution{Cell: ref, Raw: raw}

	m := r.mappingLocked(ref)
	if m != nil {
		copied := *m
		res.Mapping = &copied
		res.FieldID = m.FieldID()
	}

	if raw.IsFormula() {
		res.Value = formulaText(raw.Formula)
		res.Source = SourceFormula
		return res
	}

	if m != nil && m.HasField() {
		if ev, ok := r.run.ExtractedData.Extracted(m.FieldID()); ok {
			res.Value, res.Source = ev.Value, SourceField
			res.Confidence, res.HasConfidence = ev.Confidence, true
			return res
		}
		if field, ok := r.run.Field(m.FieldID()); ok {
			res.Value, res.Source = field.SampleValue, SourceFieldSample
			res.Confidence, res.HasConfidence = field.Confidence, true
			return res
		}
	}

	if edit, ok := r.run.ExtractedData.ManualEdit(ref); ok {
		res.Value, res.Source = edit.Value, SourceManual
		res.Confidence, res.HasConfidence = edit.Confidence, true
		return res
	}

	if raw.Value != "" {
		res.Value, res.Source = raw.Value, SourceRaw
		return res
	}
	res.Source = SourceEmpty
	return res
}

func (r *Reconciler) mappingLocked(ref fillrun.CellRef) *fillrun.CellMapping {
	i, ok := r.index[ref.Key()]
	if !ok {
		return nil
	}
	return &r.run.Mappings[i]
}

// setMapping replaces every mapping of ref with m, keeping the position of
// the first one.
func (r *Reconciler) setMapping(ref fillrun.CellRef, m fillrun.CellMapping) {
	key := ref.Key()
	out := r.run.Mappings[:0:0]
	placed := false
	for _, existing := range r.run.Mappings {
		if existing.Ref().Key() != key {
			out = append(out, existing)
			continue
		}
		if !placed {
			out = append(out, m)
			placed = true
		}
	}
	if !placed {
		out = append(out, m)
	}
	r.run.Mappings = out
}

func (r *Reconciler) deleteMapping(ref fillrun.CellRef) {
	key := ref.Key()
	out := r.run.Mappings[:0:0]
	for _, existing := range r.run.Mappings {
		if existing.Ref().Key() != key {
			out = append(out, existing)
		}
	}
	r.run.Mappings = out
}

// reindex rebuilds the cell index and the duplicate warnings.
func (r *Reconciler) reindex() {
	r.index = make(map[string]int, len(r.run.Mappings))
	counts := make(map[string]int)
	for i, m := range r.run.Mappings {
		key := m.Ref().Key()
		counts[key]++
		if _, seen := r.index[key]; !seen {
			r.index[key] = i
		}
	}

	r.dupes = r.dupes[:0]
	for key, n := range counts {
		if n < 2 {
			continue
		}
		m := r.run.Mappings[r.index[key]]
		r.dupes = append(r.dupes, &errors.DuplicateMappingError{
			Sheet: m.SheetName,
			Cell:  m.CellAddress.String(),
			Count: n,
		})
	}
	sort.Slice(r.dupes, func(i, j int) bool {
		a := fillrun.CellRef{Sheet: r.dupes[i].Sheet}
		b := fillrun.CellRef{Sheet: r.dupes[j].Sheet}
		if a.Key() != b.Key() {
			return a.Key() < b.Key()
		}
		return r.dupes[i].Cell < r.dupes[j].Cell
	})
}

// sheetName keeps the stored spelling of an existing mapping's sheet.
func sheetName(ref fillrun.CellRef, before *fillrun.CellMapping) string {
	if before != nil {
		return before.SheetName
	}
	return ref.Sheet
}

func formulaText(formula string) string {
	if strings.HasPrefix(formula, "=") {
		return formula
	}
	return "=" + formula
}
