package workbook

import (
	"sync"

	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/fillrun"
)

// Memory is an in-memory Source.
type Memory struct {
	mu     sync.RWMutex
	order  []string
	sheets map[string]map[fillrun.CellAddress]RawCell
}

// NewMemory creates a workbook with the named sheets.
func NewMemory(sheets ...string) *Memory {
	m := &Memory{sheets: make(map[string]map[fillrun.CellAddress]RawCell)}
	for _, s := range sheets {
		m.AddSheet(s)
	}
	return m
}

// AddSheet adds an empty sheet if no sheet of that name exists.
func (m *Memory) AddSheet(sheet string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := resolveSheet(m.order, sheet); ok {
		return
	}
	m.order = append(m.order, sheet)
	m.sheets[sheet] = make(map[fillrun.CellAddress]RawCell)
}

// Set stores a cell, creating the sheet when needed.
func (m *Memory) Set(sheet, address string, cell RawCell) error {
	addr, err := fillrun.ParseCellAddress(address)
	if err != nil {
		return err
	}
	m.AddSheet(sheet)

	m.mu.Lock()
	defer m.mu.Unlock()
	name, _ := resolveSheet(m.order, sheet)
	if cell.Formatted == "" {
		cell.Formatted = cell.Value
	}
	m.sheets[name][addr] = cell
	return nil
}

// SetValue stores a plain value.
func (m *Memory) SetValue(sheet, address, value string) error {
	return m.Set(sheet, address, RawCell{Value: value})
}

// SetFormula stores a formula cell with its cached result.
func (m *Memory) SetFormula(sheet, address, formula, cached string) error {
	return m.Set(sheet, address, RawCell{Value: cached, Formula: formula})
}

// RawCell implements Source.
func (m *Memory) RawCell(sheet string, addr fillrun.CellAddress) (RawCell, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := resolveSheet(m.order, sheet)
	if !ok {
		return RawCell{}, errors.NewNotFoundError("sheet", sheet)
	}
	return m.sheets[name][addr], nil
}

// SheetRange implements Source.
func (m *Memory) SheetRange(sheet string) (Bounds, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := resolveSheet(m.order, sheet)
	if !ok {
		return Bounds{}, errors.NewNotFoundError("sheet", sheet)
	}
	var b Bounds
	for addr := range m.sheets[name] {
		b = b.Include(addr)
	}
	return b, nil
}

// Sheets implements Source.
func (m *Memory) Sheets() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}
