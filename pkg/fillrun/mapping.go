package fillrun

// CellMapping binds one spreadsheet cell to an optional PDF field.
//
// A nil PdfFieldID means the cell was filled by hand and its value lives in
// ExtractedData.ManualEdits. At most one mapping may exist per cell, the
// referenced field must exist, and formula cells are never targets.
type CellMapping struct {
	SheetName   string      `json:"sheet_name" yaml:"sheet_name"`
	CellAddress CellAddress `json:"cell_address" yaml:"cell_address"`
	PdfFieldID  *string     `json:"pdf_field_id" yaml:"pdf_field_id"`
	ExcelLabel  string      `json:"excel_label,omitempty" yaml:"excel_label,omitempty"`
	Confidence  float64     `json:"confidence" yaml:"confidence"`
	Reasoning   string      `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	UserEdited  bool        `json:"user_edited" yaml:"user_edited"`

	// ReplacedEdit is the unmapped manual edit this mapping displaced.
	// Removing the mapping restores it.
	ReplacedEdit *ManualEdit `json:"replaced_edit,omitempty" yaml:"replaced_edit,omitempty"`
}

// Ref returns the cell the mapping targets.
func (m CellMapping) Ref() CellRef {
	return CellRef{Sheet: m.SheetName, Address: m.CellAddress}
}

// FieldID returns the linked field id, or "" for a manual mapping.
func (m CellMapping) FieldID() string {
	if m.PdfFieldID == nil {
		return ""
	}
	return *m.PdfFieldID
}

// HasField reports whether the mapping links a PDF field.
func (m CellMapping) HasField() bool {
	return m.PdfFieldID != nil && *m.PdfFieldID != ""
}

// FieldRef returns a pointer suitable for CellMapping.PdfFieldID.
// An empty id yields nil.
func FieldRef(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
