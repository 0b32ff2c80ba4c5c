package workbook

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/fillrun"
)

func addr(t *testing.T, s string) fillrun.CellAddress {
	t.Helper()
	a, err := fillrun.ParseCellAddress(s)
	require.NoError(t, err)
	return a
}

func TestMemory(t *testing.T) {
	m := NewMemory("Sheet1")
	require.NoError(t, m.SetValue("Sheet1", "B4", "raw"))
	require.NoError(t, m.SetFormula("sheet1", "E9", "=SUM(B1:B8)", "42"))
	require.NoError(t, m.SetValue("Notes", "A1", "hello"))

	cell, err := m.RawCell("SHEET1", addr(t, "B4"))
	require.NoError(t, err)
	assert.Equal(t, "raw", cell.Value)
	assert.Equal(t, "raw", cell.Formatted)
	assert.False(t, cell.IsFormula())

	cell, err = m.RawCell("Sheet1", addr(t, "E9"))
	require.NoError(t, err)
	assert.True(t, cell.IsFormula())

	cell, err = m.RawCell("Sheet1", addr(t, "Z99"))
	require.NoError(t, err)
	assert.Equal(t, RawCell{}, cell)

	_, err = m.RawCell("Missing", addr(t, "A1"))
	assert.True(t, errors.IsNotFound(err))

	b, err := m.SheetRange("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, Bounds{MinRow: 4, MaxRow: 9, MinCol: 2, MaxCol: 5}, b)

	assert.Equal(t, []string{"Sheet1", "Notes"}, m.Sheets())
}

func writeTemplate(t *testing.T, dir, id string) string {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Total assets"))
	require.NoError(t, f.SetCellValue("Sheet1", "B4", 1200))
	require.NoError(t, f.SetCellFormula("Sheet1", "C6", "=B4*2"))
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "A1", "A1", style))
	path := filepath.Join(dir, id+".xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestXLSX(t *testing.T) {
	path := writeTemplate(t, t.TempDir(), "balance")

	x, err := OpenXLSX(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = x.Close() })

	cell, err := x.RawCell("sheet1", addr(t, "B4"))
	require.NoError(t, err)
	assert.Equal(t, "1200", cell.Value)
	assert.False(t, cell.IsFormula())

	cell, err = x.RawCell("Sheet1", addr(t, "C6"))
	require.NoError(t, err)
	assert.Equal(t, "B4*2", strings.TrimPrefix(cell.Formula, "="))
	assert.True(t, cell.IsFormula())

	cell, err = x.RawCell("Sheet1", addr(t, "A1"))
	require.NoError(t, err)
	require.NotNil(t, cell.Style)
	assert.True(t, cell.Style.Bold)

	b, err := x.SheetRange("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, 1, b.MinRow)
	assert.GreaterOrEqual(t, b.MaxRow, 4)
	assert.GreaterOrEqual(t, b.MaxCol, 2)

	_, err = x.SheetRange("Nope")
	assert.True(t, errors.IsNotFound(err))
}

func TestRegistry(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "balance")

	r := NewRegistry(time.Minute, WithTemplatesDir(dir))
	t.Cleanup(r.Close)

	src, err := r.Get("balance")
	require.NoError(t, err)
	again, err := r.Get("balance")
	require.NoError(t, err)
	assert.Same(t, src, again)
	assert.Equal(t, 1, r.ItemCount())

	_, err = r.Get("missing")
	assert.True(t, errors.IsNotFound(err))
	_, err = r.Get("../balance")
	assert.True(t, errors.IsNotFound(err))

	mem := NewMemory("Sheet1")
	r.Register("memory", mem)
	got, err := r.Get("memory")
	require.NoError(t, err)
	assert.Same(t, mem, got)
}
