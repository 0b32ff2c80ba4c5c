// Package runs serves fill runs to the HTTP server and the CLI.
//
// A Service loads a run from the store, builds a reconciler over the run's
// template, applies one operation and persists the whole run again.
// Mutations of the same run are serialized; the store itself is
// last-write-wins.
package runs

import (
	"context"
	"sync"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/agentstation/fillmap/internal/store"
	"github.com/agentstation/fillmap/pkg/citation"
	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/fillrun"
	"github.com/agentstation/fillmap/pkg/grid"
	"github.com/agentstation/fillmap/pkg/logging"
	"github.com/agentstation/fillmap/pkg/provenance"
	"github.com/agentstation/fillmap/pkg/reconcile"
	"github.com/agentstation/fillmap/pkg/workbook"
)

// Reason says why a run changed.
type Reason string

// Update reasons.
const (
	ReasonMappingAdded     Reason = "mapping_added"
	ReasonMappingEdited    Reason = "mapping_edited"
	ReasonMappingRemoved   Reason = "mapping_removed"
	ReasonStatusChanged    Reason = "status_changed"
	ReasonArtifactAttached Reason = "artifact_attached"
)

// Update is published after a run is persisted. Windows reload the whole
// run when they receive one.
type Update struct {
	RunID       string           `json:"run_id"`
	Reason      Reason           `json:"reason"`
	Status      fillrun.Status   `json:"status"`
	Cell        *fillrun.CellRef `json:"cell,omitempty"`
	Value       string           `json:"value,omitempty"`
	StatusReset bool             `json:"status_reset,omitempty"`
	UpdatedAt   utc.Time         `json:"updated_at"`
}

// UpdatedHook is called after an update is persisted.
type UpdatedHook func(ctx context.Context, update Update)

// Service coordinates the store, the workbook registry and reconcilers.
type Service struct {
	store     store.Store
	workbooks *workbook.Registry
	logger    *zerolog.Logger

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	trackers map[string]provenance.Tracker

	hooksMu   sync.RWMutex
	onUpdated []UpdatedHook
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a service.
func New(st store.Store, workbooks *workbook.Registry, opts ...Option) *Service {
	s := &Service{
		store:     st,
		workbooks: workbooks,
		locks:     make(map[string]*sync.Mutex),
		trackers:  make(map[string]provenance.Tracker),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)
	return s
}

// OnUpdated registers a callback for persisted updates.
func (s *Service) OnUpdated(fn UpdatedHook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.onUpdated = append(s.onUpdated, fn)
}

// List returns every stored run.
func (s *Service) List(ctx context.Context) ([]*fillrun.FillRun, error) {
	return s.store.List(ctx)
}

// Get returns one run.
func (s *Service) Get(ctx context.Context, id string) (*fillrun.FillRun, error) {
	return s.store.Get(ctx, id)
}

// Save validates and stores a run, replacing any run with the same id.
func (s *Service) Save(ctx context.Context, run *fillrun.FillRun) error {
	if run == nil {
		return errors.NewValidationError("run", nil, "cannot be nil")
	}
	if err := run.Validate(); err != nil {
		return err
	}
	return s.store.Put(ctx, run)
}

// Source returns the template workbook of a run.
func (s *Service) Source(run *fillrun.FillRun) (workbook.Source, error) {
	if s.workbooks == nil {
		return nil, errors.NewConfigError("runs", "no workbook registry", nil)
	}
	return s.workbooks.Get(run.TemplateID)
}

// Resolve returns the display value of one cell.
func (s *Service) Resolve(ctx context.Context, id string, ref fillrun.CellRef) (reconcile.Resolution, error) {
	rec, _, err := s.reconciler(ctx, id)
	if err != nil {
		return reconcile.Resolution{}, err
	}
	return rec.ResolveValue(ref)
}

// GridResult is a projection plus the data-quality warnings of its sheet.
type GridResult struct {
	Projection grid.Projection                 `json:"projection"`
	Bounds     workbook.Bounds                 `json:"bounds"`
	Warnings   []*errors.DuplicateMappingError `json:"warnings,omitempty"`
}

// Grid projects r on sheet. An empty sheet selects the first sheet; a zero
// range selects the initial window.
func (s *Service) Grid(ctx context.Context, id, sheet string, r grid.Range) (GridResult, error) {
	rec, src, err := s.reconciler(ctx, id)
	if err != nil {
		return GridResult{}, err
	}
	if sheet == "" {
		sheets := src.Sheets()
		if len(sheets) == 0 {
			return GridResult{}, errors.NewNotFoundError("sheet", "")
		}
		sheet = sheets[0]
	}
	l := s.logger.With().Str("run_id", id).Logger()
	g, err := grid.New(rec, src, sheet, grid.WithLogger(&l))
	if err != nil {
		return GridResult{}, err
	}

	var p grid.Projection
	if r == (grid.Range{}) {
		p, err = g.View()
	} else {
		p, err = g.Project(r)
	}
	if err != nil {
		return GridResult{}, err
	}
	return GridResult{Projection: p, Bounds: g.Bounds(), Warnings: g.Warnings()}, nil
}

// Citations parses citation tokens against the run's documents.
func (s *Service) Citations(ctx context.Context, id, text string) (citation.Result, error) {
	run, err := s.store.Get(ctx, id)
	if err != nil {
		return citation.Result{}, err
	}
	return citation.ParseContext(logging.WithRunID(ctx, id), text, run.Documents), nil
}

// Provenance returns the latest write per cell recorded by this service.
func (s *Service) Provenance(id string) provenance.Map {
	return s.tracker(id).Map()
}

// AddMapping links ref to fieldID, or writes a manual value when fieldID
// is empty.
func (s *Service) AddMapping(ctx context.Context, id string, ref fillrun.CellRef, fieldID string, opts ...reconcile.MutationOption) (*fillrun.FillRun, error) {
	return s.mutate(ctx, id, ReasonMappingAdded, func(ctx context.Context, rec *reconcile.Reconciler) error {
		return rec.AddMapping(ctx, ref, fieldID, opts...)
	})
}

// EditMapping changes the mapping or manual value at ref.
func (s *Service) EditMapping(ctx context.Context, id string, ref fillrun.CellRef, opts ...reconcile.MutationOption) (*fillrun.FillRun, error) {
	return s.mutate(ctx, id, ReasonMappingEdited, func(ctx context.Context, rec *reconcile.Reconciler) error {
		return rec.EditMapping(ctx, ref, opts...)
	})
}

// RemoveMapping deletes the mapping at ref.
func (s *Service) RemoveMapping(ctx context.Context, id string, ref fillrun.CellRef) (*fillrun.FillRun, error) {
	return s.mutate(ctx, id, ReasonMappingRemoved, func(ctx context.Context, rec *reconcile.Reconciler) error {
		return rec.RemoveMapping(ctx, ref)
	})
}

// ObserveStatus records a status reported by the extraction pipeline.
func (s *Service) ObserveStatus(ctx context.Context, id string, status fillrun.Status) (*fillrun.FillRun, error) {
	return s.mutate(ctx, id, ReasonStatusChanged, func(ctx context.Context, rec *reconcile.Reconciler) error {
		return rec.ObserveStatus(ctx, status)
	})
}

// ObserveStatusWithArtifact records a reported status and the spreadsheet
// generated for it. A rejected artifact leaves the status unchanged.
func (s *Service) ObserveStatusWithArtifact(ctx context.Context, id string, status fillrun.Status, path string) (*fillrun.FillRun, error) {
	return s.mutate(ctx, id, ReasonStatusChanged, func(ctx context.Context, rec *reconcile.Reconciler) error {
		return rec.ObserveStatusWithArtifact(ctx, status, fillrun.NewArtifact(path))
	})
}

// AttachArtifact records a generated spreadsheet for the run.
func (s *Service) AttachArtifact(ctx context.Context, id, path string) (*fillrun.FillRun, error) {
	return s.mutate(ctx, id, ReasonArtifactAttached, func(ctx context.Context, rec *reconcile.Reconciler) error {
		return rec.AttachArtifact(ctx, fillrun.NewArtifact(path))
	})
}

func (s *Service) mutate(
	ctx context.Context,
	id string,
	reason Reason,
	apply func(context.Context, *reconcile.Reconciler) error,
) (*fillrun.FillRun, error) {
	ctx = logging.WithRunID(ctx, id)
	update, run, err := s.commit(ctx, id, reason, apply)
	if err != nil {
		return nil, err
	}
	if update != nil {
		s.fire(ctx, *update)
	}
	return run, nil
}

// commit runs under the per-run lock; hooks fire after it is released.
func (s *Service) commit(
	ctx context.Context,
	id string,
	reason Reason,
	apply func(context.Context, *reconcile.Reconciler) error,
) (*Update, *fillrun.FillRun, error) {
	lock := s.lock(id)
	lock.Lock()
	defer lock.Unlock()

	rec, _, err := s.reconciler(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	before := rec.Snapshot()

	var (
		change *reconcile.Change
		reset  bool
	)
	rec.OnMappingChanged(func(_ context.Context, c reconcile.Change) { change = &c })
	rec.OnStatusReset(func(context.Context, string, fillrun.Status, fillrun.Status) { reset = true })

	if err := apply(ctx, rec); err != nil {
		return nil, nil, err
	}

	after := rec.Snapshot()
	if change == nil && before.Status == after.Status && artifactID(before) == artifactID(after) {
		return nil, after, nil
	}
	if err := s.store.Put(ctx, after); err != nil {
		return nil, nil, err
	}

	update := &Update{
		RunID:       id,
		Reason:      reason,
		Status:      after.Status,
		StatusReset: reset,
		UpdatedAt:   after.UpdatedAt,
	}
	if change != nil {
		cell := change.Cell
		update.Cell = &cell
		update.Value = change.Value
	}
	logging.FromContext(ctx).Info().
		Str("reason", string(reason)).
		Str("status", string(after.Status)).
		Bool("status_reset", reset).
		Msg("Run updated")
	return update, after, nil
}

func (s *Service) fire(ctx context.Context, update Update) {
	s.hooksMu.RLock()
	hooks := append([]UpdatedHook(nil), s.onUpdated...)
	s.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(ctx, update)
	}
}

func (s *Service) reconciler(ctx context.Context, id string) (*reconcile.Reconciler, workbook.Source, error) {
	run, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	src, err := s.Source(run)
	if err != nil {
		return nil, nil, err
	}
	l := s.logger.With().Str("run_id", id).Logger()
	rec, err := reconcile.New(run, src,
		reconcile.WithLogger(&l),
		reconcile.WithTracker(s.tracker(id)),
	)
	if err != nil {
		return nil, nil, err
	}
	return rec, src, nil
}

func (s *Service) lock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *Service) tracker(id string) provenance.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trackers[id]
	if !ok {
		t = provenance.NewTracker(true)
		s.trackers[id] = t
	}
	return t
}

func artifactID(run *fillrun.FillRun) string {
	if run.Artifact == nil {
		return ""
	}
	return run.Artifact.ID
}
