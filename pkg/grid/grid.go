// Package grid projects a sheet of a fill run into render-ready cells.
//
// Each CellView combines the template's raw content with the value the
// reconciler resolves for the cell. Only a window of the sheet is
// materialized at a time; Grow extends it through a RangeLoader and drops
// results that arrive after the grid was reset or a newer Grow started.
package grid

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/fillmap/pkg/constants"
	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/fillrun"
	"github.com/agentstation/fillmap/pkg/logging"
	"github.com/agentstation/fillmap/pkg/reconcile"
	"github.com/agentstation/fillmap/pkg/workbook"
)

// Resolver is the part of the reconciler the grid reads from.
type Resolver interface {
	ResolveValue(ref fillrun.CellRef) (reconcile.Resolution, error)
	Snapshot() *fillrun.FillRun
	Warnings() []*errors.DuplicateMappingError
}

// CellView is the render model of one cell.
type CellView struct {
	Address        string                `json:"address" yaml:"address"`
	Row            int                   `json:"row" yaml:"row"`
	Col            int                   `json:"col" yaml:"col"`
	DisplayValue   string                `json:"display_value" yaml:"display_value"`
	Formatted      string                `json:"formatted,omitempty" yaml:"formatted,omitempty"`
	IsFormula      bool                  `json:"is_formula" yaml:"is_formula"`
	MappingPresent bool                  `json:"mapping_present" yaml:"mapping_present"`
	FieldID        string                `json:"field_id,omitempty" yaml:"field_id,omitempty"`
	Label          string                `json:"label,omitempty" yaml:"label,omitempty"`
	UserEdited     bool                  `json:"user_edited,omitempty" yaml:"user_edited,omitempty"`
	Confidence     float64               `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	ConfidenceTier Tier                  `json:"confidence_tier,omitempty" yaml:"confidence_tier,omitempty"`
	Source         reconcile.ValueSource `json:"source" yaml:"source"`
	Style          *workbook.CellStyle   `json:"style,omitempty" yaml:"style,omitempty"`
}

// Projection is a row-major block of cell views.
type Projection struct {
	Sheet string       `json:"sheet" yaml:"sheet"`
	Range Range        `json:"range" yaml:"range"`
	Rows  [][]CellView `json:"rows" yaml:"rows"`
}

// RangeLoader materializes a range. It may block on an external fetch and
// must honor ctx.
type RangeLoader func(ctx context.Context, sheet string, r Range) (Projection, error)

// GrowResult reports the outcome of Grow.
type GrowResult struct {
	Range      Range      // window after the call
	Applied    bool       // false when nothing grew or the result was stale
	Projection Projection // the newly materialized window when Applied
}

// Grid is a virtualized projection of one sheet.
type Grid struct {
	resolver Resolver
	source   workbook.Source
	logger   *zerolog.Logger
	loader   RangeLoader
	rows     int
	cols     int

	mu         sync.Mutex
	sheet      string
	bounds     workbook.Bounds
	window     Range
	generation uint64
}

// Option configures a Grid.
type Option func(*Grid)

// WithLogger sets the grid logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(g *Grid) {
		g.logger = logging.OrNop(logger)
	}
}

// WithLoader replaces the range loader. The default projects synchronously.
func WithLoader(loader RangeLoader) Option {
	return func(g *Grid) {
		if loader != nil {
			g.loader = loader
		}
	}
}

// WithInitialSize sets how many rows and columns the first window covers.
func WithInitialSize(rows, cols int) Option {
	return func(g *Grid) {
		if rows > 0 {
			g.rows = rows
		}
		if cols > 0 {
			g.cols = cols
		}
	}
}

// New creates a grid over one sheet.
func New(resolver Resolver, source workbook.Source, sheet string, opts ...Option) (*Grid, error) {
	if resolver == nil || source == nil {
		return nil, errors.NewValidationError("resolver", nil, "resolver and source are required")
	}
	g := &Grid{
		resolver: resolver,
		source:   source,
		logger:   logging.OrNop(nil),
		rows:     constants.DefaultGridRows,
		cols:     constants.DefaultGridCols,
	}
	g.loader = g.load
	for _, opt := range opts {
		opt(g)
	}
	if err := g.Reset(sheet); err != nil {
		return nil, err
	}
	return g, nil
}

// Sheet returns the projected sheet.
func (g *Grid) Sheet() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sheet
}

// Window returns the materialized range.
func (g *Grid) Window() Range {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.window
}

// Bounds returns the sheet extent: populated template cells plus every
// mapped or manually edited cell of the sheet.
func (g *Grid) Bounds() workbook.Bounds {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bounds
}

// Reset switches the grid to sheet, recomputes its bounds and shrinks the
// window to the initial size. In-flight growth is invalidated.
func (g *Grid) Reset(sheet string) error {
	bounds, err := g.sheetBounds(sheet)
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.generation++
	g.sheet = sheet
	g.bounds = bounds
	g.window = Range{FirstRow: 1, LastRow: g.rows, FirstCol: 1, LastCol: g.cols}.clamp(bounds)
	g.mu.Unlock()

	for _, w := range g.Warnings() {
		g.logger.Warn().Err(w).Str("sheet", w.Sheet).Str("cell", w.Cell).Msg("Duplicate mapping, using first")
	}
	return nil
}

// Warnings returns the duplicate mappings on the projected sheet.
func (g *Grid) Warnings() []*errors.DuplicateMappingError {
	sheet := g.Sheet()
	var out []*errors.DuplicateMappingError
	for _, w := range g.resolver.Warnings() {
		if fillrun.FoldSheet(w.Sheet) == fillrun.FoldSheet(sheet) {
			out = append(out, w)
		}
	}
	return out
}

// View projects the current window.
func (g *Grid) View() (Projection, error) {
	g.mu.Lock()
	sheet, window := g.sheet, g.window
	g.mu.Unlock()
	return g.project(sheet, window)
}

// Project builds the views of r on the grid's sheet. Any range up to
// constants.MaxProjectedCells cells may be projected; materialization only
// affects what View and Grow return.
func (g *Grid) Project(r Range) (Projection, error) {
	if !r.Valid() {
		return Projection{}, errors.NewValidationError("range", r, "rows and columns must be positive and ordered")
	}
	if r.Rows()*r.Cols() > constants.MaxProjectedCells {
		return Projection{}, errors.NewValidationError("range", r.String(),
			fmt.Sprintf("spans %d cells, more than %d", r.Rows()*r.Cols(), constants.MaxProjectedCells))
	}
	return g.project(g.Sheet(), r)
}

func (g *Grid) project(sheet string, r Range) (Projection, error) {
	p := Projection{Sheet: sheet, Range: r, Rows: make([][]CellView, 0, r.Rows())}
	for row := r.FirstRow; row <= r.LastRow; row++ {
		views := make([]CellView, 0, r.Cols())
		for col := r.FirstCol; col <= r.LastCol; col++ {
			v, err := g.cell(sheet, fillrun.CellAddress{Col: col, Row: row})
			if err != nil {
				return Projection{}, err
			}
			views = append(views, v)
		}
		p.Rows = append(p.Rows, views)
	}
	return p, nil
}

// Grow extends the window by rows and cols, clamped to the sheet bounds.
// A result that completes after Reset, or after a later Grow started, is
// discarded.
func (g *Grid) Grow(ctx context.Context, rows, cols int) (GrowResult, error) {
	if rows < 0 || cols < 0 {
		return GrowResult{}, errors.NewValidationError("grow", [2]int{rows, cols}, "cannot shrink")
	}

	g.mu.Lock()
	sheet, current := g.sheet, g.window
	target := Range{
		FirstRow: current.FirstRow, LastRow: current.LastRow + rows,
		FirstCol: current.FirstCol, LastCol: current.LastCol + cols,
	}.clamp(g.bounds)
	if target == current {
		g.mu.Unlock()
		return GrowResult{Range: current}, nil
	}
	g.generation++
	gen := g.generation
	g.mu.Unlock()

	p, err := g.loader(ctx, sheet, target)
	if err != nil {
		if ctx.Err() != nil {
			return GrowResult{Range: current}, errors.WrapResource("grow", "grid", sheet, errors.ErrCanceled)
		}
		return GrowResult{Range: current}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.generation {
		g.logger.Debug().
			Err(errors.ErrStale).
			Str("sheet", sheet).
			Str("range", target.String()).
			Msg("Discarding superseded grid growth")
		return GrowResult{Range: g.window}, nil
	}
	g.window = target
	return GrowResult{Range: target, Applied: true, Projection: p}, nil
}

// load is the default RangeLoader.
func (g *Grid) load(ctx context.Context, sheet string, r Range) (Projection, error) {
	if err := ctx.Err(); err != nil {
		return Projection{}, err
	}
	return g.project(sheet, r)
}

func (g *Grid) cell(sheet string, addr fillrun.CellAddress) (CellView, error) {
	ref := fillrun.CellRef{Sheet: sheet, Address: addr}
	res, err := g.resolver.ResolveValue(ref)
	if err != nil {
		return CellView{}, err
	}

	v := CellView{
		Address:      addr.String(),
		Row:          addr.Row,
		Col:          addr.Col,
		DisplayValue: res.Value,
		Formatted:    res.Raw.Formatted,
		IsFormula:    res.IsFormula(),
		Source:       res.Source,
		Style:        res.Raw.Style,
	}
	if v.IsFormula {
		return v, nil
	}
	if res.Mapping != nil {
		v.MappingPresent = true
		v.FieldID = res.Mapping.FieldID()
		v.Label = res.Mapping.ExcelLabel
		v.UserEdited = res.Mapping.UserEdited
	}
	if res.HasConfidence {
		v.Confidence = res.Confidence
		v.ConfidenceTier = TierFor(res.Confidence)
	}
	if res.Source != reconcile.SourceRaw {
		v.Formatted = res.Value
	}
	return v, nil
}

func (g *Grid) sheetBounds(sheet string) (workbook.Bounds, error) {
	bounds, err := g.source.SheetRange(sheet)
	if err != nil {
		return workbook.Bounds{}, err
	}
	run := g.resolver.Snapshot()
	for _, m := range run.Mappings {
		if m.Ref().SameSheet(sheet) {
			bounds = bounds.Include(m.CellAddress)
		}
	}
	for name, cells := range run.ExtractedData.ManualEdits {
		if fillrun.FoldSheet(name) != fillrun.FoldSheet(sheet) {
			continue
		}
		for a1 := range cells {
			if addr, err := fillrun.ParseCellAddress(a1); err == nil {
				bounds = bounds.Include(addr)
			}
		}
	}
	return bounds, nil
}
