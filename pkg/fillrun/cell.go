package fillrun

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"

	"github.com/agentstation/fillmap/pkg/errors"
)

// CellAddress is a 1-based column and row pair.
// Its text form is A1 notation, which is how it serializes.
type CellAddress struct {
	Col int
	Row int
}

// ParseCellAddress parses an A1 reference such as "B4" or "$B$4".
func ParseCellAddress(s string) (CellAddress, error) {
	col, row, err := excelize.CellNameToCoordinates(strings.TrimSpace(s))
	if err != nil {
		return CellAddress{}, errors.NewParseError("a1", "", fmt.Sprintf("invalid cell address %q", s), err)
	}
	return CellAddress{Col: col, Row: row}, nil
}

// Valid reports whether both coordinates are inside the sheet grid.
func (a CellAddress) Valid() bool {
	return a.Col >= 1 && a.Row >= 1 && a.Col <= excelize.MaxColumns && a.Row <= excelize.TotalRows
}

// String returns the A1 form, or an empty string for an invalid address.
func (a CellAddress) String() string {
	if !a.Valid() {
		return ""
	}
	name, err := excelize.CoordinatesToCellName(a.Col, a.Row)
	if err != nil {
		return ""
	}
	return name
}

// MarshalText implements encoding.TextMarshaler.
func (a CellAddress) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, errors.NewValidationError("cell_address", a, "column and row must be positive")
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *CellAddress) UnmarshalText(text []byte) error {
	parsed, err := ParseCellAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// CellRef identifies one cell of one sheet.
type CellRef struct {
	Sheet   string
	Address CellAddress
}

// NewCellRef builds a reference from a sheet name and an A1 address.
func NewCellRef(sheet, address string) (CellRef, error) {
	if strings.TrimSpace(sheet) == "" {
		return CellRef{}, errors.NewValidationError("sheet", sheet, "cannot be empty")
	}
	addr, err := ParseCellAddress(address)
	if err != nil {
		return CellRef{}, err
	}
	return CellRef{Sheet: sheet, Address: addr}, nil
}

// MustCellRef is NewCellRef that panics on error. Intended for tests and literals.
func MustCellRef(sheet, address string) CellRef {
	ref, err := NewCellRef(sheet, address)
	if err != nil {
		panic(err)
	}
	return ref
}

// ParseCellRef parses the "Sheet!A1" form. Quoted sheet names ('My Sheet'!A1)
// are unquoted.
func ParseCellRef(s string) (CellRef, error) {
	i := strings.LastIndex(s, "!")
	if i <= 0 {
		return CellRef{}, errors.NewParseError("a1", "", fmt.Sprintf("cell reference %q has no sheet", s), nil)
	}
	sheet := s[:i]
	if len(sheet) >= 2 && sheet[0] == '\'' && sheet[len(sheet)-1] == '\'' {
		sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
	}
	return NewCellRef(sheet, s[i+1:])
}

// String returns the "Sheet!A1" form.
func (r CellRef) String() string {
	sheet := r.Sheet
	if strings.ContainsAny(sheet, " !'") {
		sheet = "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	}
	return sheet + "!" + r.Address.String()
}

// MarshalText implements encoding.TextMarshaler.
func (r CellRef) MarshalText() ([]byte, error) {
	if r.Sheet == "" || !r.Address.Valid() {
		return nil, errors.NewValidationError("cell", r, "sheet and address are required")
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *CellRef) UnmarshalText(text []byte) error {
	ref, err := ParseCellRef(string(text))
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

// Key returns the canonical identity of the cell: the folded sheet name
// joined with the A1 address.
func (r CellRef) Key() string {
	return FoldSheet(r.Sheet) + "!" + r.Address.String()
}

// SameSheet reports whether the reference points into sheet.
func (r CellRef) SameSheet(sheet string) bool {
	return FoldSheet(r.Sheet) == FoldSheet(sheet)
}

// FoldSheet case-folds a sheet name for comparison.
func FoldSheet(sheet string) string {
	// A Caser holds state, so each call gets its own.
	return cases.Fold().String(strings.TrimSpace(sheet))
}
