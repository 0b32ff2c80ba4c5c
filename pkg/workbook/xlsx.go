package workbook

import (
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/fillrun"
)

// XLSX is a Source backed by an excelize workbook.
//
// excelize reads are not safe alongside writes, and fillmap never writes
// templates, but the mutex keeps style lookups and bounds caching simple.
type XLSX struct {
	mu     sync.Mutex
	file   *excelize.File
	path   string
	bounds map[string]Bounds
}

// OpenXLSX opens a template from disk.
func OpenXLSX(path string) (*XLSX, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.WrapResource("open", "workbook", path, err)
	}
	return NewXLSX(f, path), nil
}

// NewXLSX wraps an already opened workbook.
func NewXLSX(f *excelize.File, path string) *XLSX {
	return &XLSX{file: f, path: path, bounds: make(map[string]Bounds)}
}

// Path returns the file the workbook was opened from.
func (x *XLSX) Path() string {
	return x.path
}

// Close releases the underlying file.
func (x *XLSX) Close() error {
	return x.file.Close()
}

// Sheets implements Source.
func (x *XLSX) Sheets() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.file.GetSheetList()
}

// RawCell implements Source.
func (x *XLSX) RawCell(sheet string, addr fillrun.CellAddress) (RawCell, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	name, ok := resolveSheet(x.file.GetSheetList(), sheet)
	if !ok {
		return RawCell{}, errors.NewNotFoundError("sheet", sheet)
	}
	cell := addr.String()
	if cell == "" {
		return RawCell{}, errors.NewValidationError("cell_address", addr, "out of range")
	}

	raw, err := x.file.GetCellValue(name, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		return RawCell{}, errors.WrapResource("read", "cell", name+"!"+cell, err)
	}
	formatted, err := x.file.GetCellValue(name, cell)
	if err != nil {
		return RawCell{}, errors.WrapResource("read", "cell", name+"!"+cell, err)
	}
	formula, err := x.file.GetCellFormula(name, cell)
	if err != nil {
		return RawCell{}, errors.WrapResource("read", "formula", name+"!"+cell, err)
	}

	out := RawCell{Value: raw, Formatted: formatted, Formula: formula}
	if styleID, err := x.file.GetCellStyle(name, cell); err == nil && styleID > 0 {
		if style, err := x.file.GetStyle(styleID); err == nil && style != nil {
			out.Style = convertStyle(style)
		}
	}
	return out, nil
}

// SheetRange implements Source. Bounds cover the populated rows, widened by
// the stored dimension so formula cells without cached values count.
func (x *XLSX) SheetRange(sheet string) (Bounds, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	name, ok := resolveSheet(x.file.GetSheetList(), sheet)
	if !ok {
		return Bounds{}, errors.NewNotFoundError("sheet", sheet)
	}
	if b, ok := x.bounds[name]; ok {
		return b, nil
	}

	rows, err := x.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return Bounds{}, errors.WrapResource("read", "sheet", name, err)
	}
	var b Bounds
	for r, row := range rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			b = b.Include(fillrun.CellAddress{Col: c + 1, Row: r + 1})
		}
	}
	if dim, err := x.file.GetSheetDimension(name); err == nil {
		for _, corner := range strings.Split(dim, ":") {
			if addr, err := fillrun.ParseCellAddress(corner); err == nil && (corner != "A1" || !b.Empty()) {
				b = b.Include(addr)
			}
		}
	}
	x.bounds[name] = b
	return b, nil
}

func convertStyle(s *excelize.Style) *CellStyle {
	out := &CellStyle{NumberFormat: s.NumFmt}
	if s.Font != nil {
		out.Bold = s.Font.Bold
		out.Italic = s.Font.Italic
	}
	if len(s.Fill.Color) > 0 {
		out.FillColor = s.Fill.Color[0]
	}
	if *out == (CellStyle{}) {
		return nil
	}
	return out
}
