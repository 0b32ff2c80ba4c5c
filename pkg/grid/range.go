package grid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/fillrun"
	"github.com/agentstation/fillmap/pkg/workbook"
)

// Range is a rectangle of cells, 1-based and inclusive.
type Range struct {
	FirstRow int `json:"first_row" yaml:"first_row"`
	LastRow  int `json:"last_row" yaml:"last_row"`
	FirstCol int `json:"first_col" yaml:"first_col"`
	LastCol  int `json:"last_col" yaml:"last_col"`
}

// Valid reports whether the range covers at least one cell.
func (r Range) Valid() bool {
	return r.FirstRow >= 1 && r.FirstCol >= 1 && r.LastRow >= r.FirstRow && r.LastCol >= r.FirstCol
}

// Rows returns the number of rows covered.
func (r Range) Rows() int {
	if !r.Valid() {
		return 0
	}
	return r.LastRow - r.FirstRow + 1
}

// Cols returns the number of columns covered.
func (r Range) Cols() int {
	if !r.Valid() {
		return 0
	}
	return r.LastCol - r.FirstCol + 1
}

// String returns the A1 form, e.g. "A1:J50".
func (r Range) String() string {
	if !r.Valid() {
		return ""
	}
	first := fillrun.CellAddress{Col: r.FirstCol, Row: r.FirstRow}
	last := fillrun.CellAddress{Col: r.LastCol, Row: r.LastRow}
	return first.String() + ":" + last.String()
}

// clamp limits r to bounds, keeping at least the first cell of bounds.
func (r Range) clamp(b workbook.Bounds) Range {
	maxRow, maxCol := max(b.MaxRow, 1), max(b.MaxCol, 1)
	r.LastRow = min(r.LastRow, maxRow)
	r.LastCol = min(r.LastCol, maxCol)
	r.FirstRow = min(max(r.FirstRow, 1), r.LastRow)
	r.FirstCol = min(max(r.FirstCol, 1), r.LastCol)
	return r
}

// ParseRange parses an A1 range such as "A1:J50" or a single cell "B4".
func ParseRange(s string) (Range, error) {
	first, last, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		last = first
	}
	a, err := fillrun.ParseCellAddress(first)
	if err != nil {
		return Range{}, err
	}
	b, err := fillrun.ParseCellAddress(last)
	if err != nil {
		return Range{}, err
	}
	return Range{
		FirstRow: min(a.Row, b.Row), LastRow: max(a.Row, b.Row),
		FirstCol: min(a.Col, b.Col), LastCol: max(a.Col, b.Col),
	}, nil
}

// ParseSpans builds a range from row and column spans such as "1-50" and
// "1-10" or "A-J". A single number or letter is a one-wide span.
func ParseSpans(rows, cols string) (Range, error) {
	r0, r1, err := parseSpan(rows, false)
	if err != nil {
		return Range{}, err
	}
	c0, c1, err := parseSpan(cols, true)
	if err != nil {
		return Range{}, err
	}
	return Range{FirstRow: r0, LastRow: r1, FirstCol: c0, LastCol: c1}, nil
}

func parseSpan(s string, columns bool) (int, int, error) {
	lo, hi, found := strings.Cut(strings.TrimSpace(s), "-")
	if !found {
		hi = lo
	}
	a, err := parseIndex(lo, columns)
	if err != nil {
		return 0, 0, err
	}
	b, err := parseIndex(hi, columns)
	if err != nil {
		return 0, 0, err
	}
	if b < a {
		return 0, 0, errors.NewParseError("range", "", fmt.Sprintf("span %q is reversed", s), nil)
	}
	return a, b, nil
}

func parseIndex(s string, columns bool) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 {
			return 0, errors.NewParseError("range", "", fmt.Sprintf("index %d must be positive", n), nil)
		}
		return n, nil
	}
	if columns {
		n, err := excelize.ColumnNameToNumber(s)
		if err != nil {
			return 0, errors.WrapParse("range", "", err)
		}
		return n, nil
	}
	return 0, errors.NewParseError("range", "", fmt.Sprintf("invalid row index %q", s), nil)
}
