// Package workbook is the read side of spreadsheet templates: raw cell
// content, formulas, styles and the populated bounds of each sheet.
//
// Parsing spreadsheet binaries is not fillmap's job; the Source interface is
// the seam. Memory backs tests and generated templates, XLSX reads real
// templates through excelize, and Registry keeps opened templates warm.
package workbook

import (
	"github.com/agentstation/fillmap/pkg/fillrun"
)

// CellStyle is the presentation subset the grid passes to renderers.
type CellStyle struct {
	Bold         bool   `json:"bold,omitempty" yaml:"bold,omitempty"`
	Italic       bool   `json:"italic,omitempty" yaml:"italic,omitempty"`
	NumberFormat int    `json:"number_format,omitempty" yaml:"number_format,omitempty"`
	FillColor    string `json:"fill_color,omitempty" yaml:"fill_color,omitempty"`
}

// RawCell is what the template stores in a cell.
type RawCell struct {
	Value     string     `json:"value" yaml:"value"`
	Formatted string     `json:"formatted" yaml:"formatted"`
	Formula   string     `json:"formula,omitempty" yaml:"formula,omitempty"`
	Style     *CellStyle `json:"style,omitempty" yaml:"style,omitempty"`
}

// IsFormula reports whether the cell holds a formula. Formula cells are read-only.
func (c RawCell) IsFormula() bool {
	return c.Formula != ""
}

// Bounds is the populated rectangle of a sheet, 1-based and inclusive.
// An empty sheet has zero bounds.
type Bounds struct {
	MinRow int `json:"min_row" yaml:"min_row"`
	MaxRow int `json:"max_row" yaml:"max_row"`
	MinCol int `json:"min_col" yaml:"min_col"`
	MaxCol int `json:"max_col" yaml:"max_col"`
}

// Empty reports whether the bounds cover no cells.
func (b Bounds) Empty() bool {
	return b.MaxRow < 1 || b.MaxCol < 1
}

// Include returns the bounds grown to cover addr.
func (b Bounds) Include(addr fillrun.CellAddress) Bounds {
	if b.Empty() {
		return Bounds{MinRow: addr.Row, MaxRow: addr.Row, MinCol: addr.Col, MaxCol: addr.Col}
	}
	b.MinRow = min(b.MinRow, addr.Row)
	b.MaxRow = max(b.MaxRow, addr.Row)
	b.MinCol = min(b.MinCol, addr.Col)
	b.MaxCol = max(b.MaxCol, addr.Col)
	return b
}

// Source provides raw template content.
type Source interface {
	// RawCell returns the stored content of a cell. Unpopulated cells
	// return a zero RawCell; unknown sheets return a not found error.
	RawCell(sheet string, addr fillrun.CellAddress) (RawCell, error)

	// SheetRange returns the populated bounds of a sheet.
	SheetRange(sheet string) (Bounds, error)

	// Sheets lists sheet names in workbook order.
	Sheets() []string
}

// resolveSheet finds the stored name of sheet among names, ignoring case.
func resolveSheet(names []string, sheet string) (string, bool) {
	folded := fillrun.FoldSheet(sheet)
	for _, name := range names {
		if name == sheet {
			return name, true
		}
	}
	for _, name := range names {
		if fillrun.FoldSheet(name) == folded {
			return name, true
		}
	}
	return "", false
}
