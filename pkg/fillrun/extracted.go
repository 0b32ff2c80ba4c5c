package fillrun

// ExtractedValue is the stored value of a field-linked cell.
type ExtractedValue struct {
	Value      string     `json:"value" yaml:"value"`
	Confidence float64    `json:"confidence" yaml:"confidence"`
	SourcePage *int       `json:"source_page,omitempty" yaml:"source_page,omitempty"`
	UserEdited bool       `json:"user_edited" yaml:"user_edited"`
	Citations  []Citation `json:"citations,omitempty" yaml:"citations,omitempty"`
}

// ManualEdit is the stored value of a cell with no field link.
type ManualEdit struct {
	Value      string     `json:"value" yaml:"value"`
	Confidence float64    `json:"confidence" yaml:"confidence"`
	UserEdited bool       `json:"user_edited" yaml:"user_edited"`
	Citations  []Citation `json:"citations,omitempty" yaml:"citations,omitempty"`
}

// ExtractedData holds the two value maps. Whether a cell reads from
// LLMExtracted or ManualEdits is decided by the presence of a mapping.
type ExtractedData struct {
	LLMExtracted map[string]ExtractedValue        `json:"llm_extracted" yaml:"llm_extracted"`
	ManualEdits  map[string]map[string]ManualEdit `json:"manual_edits" yaml:"manual_edits"`
}

// Extracted returns the value stored for a field.
func (d ExtractedData) Extracted(fieldID string) (ExtractedValue, bool) {
	v, ok := d.LLMExtracted[fieldID]
	return v, ok
}

// SetExtracted stores the value for a field.
func (d *ExtractedData) SetExtracted(fieldID string, v ExtractedValue) {
	if d.LLMExtracted == nil {
		d.LLMExtracted = make(map[string]ExtractedValue)
	}
	d.LLMExtracted[fieldID] = v
}

// ManualEdit returns the manual edit stored for a cell.
func (d ExtractedData) ManualEdit(ref CellRef) (ManualEdit, bool) {
	cells, ok := d.ManualEdits[d.sheetKey(ref.Sheet)]
	if !ok {
		return ManualEdit{}, false
	}
	e, ok := cells[ref.Address.String()]
	return e, ok
}

// SetManualEdit stores a manual edit for a cell. An existing sheet entry
// whose name differs only in case is reused.
func (d *ExtractedData) SetManualEdit(ref CellRef, e ManualEdit) {
	if d.ManualEdits == nil {
		d.ManualEdits = make(map[string]map[string]ManualEdit)
	}
	sheet := d.sheetKey(ref.Sheet)
	if d.ManualEdits[sheet] == nil {
		d.ManualEdits[sheet] = make(map[string]ManualEdit)
	}
	d.ManualEdits[sheet][ref.Address.String()] = e
}

// DeleteManualEdit removes a cell's manual edit, dropping empty sheets.
func (d *ExtractedData) DeleteManualEdit(ref CellRef) {
	sheet := d.sheetKey(ref.Sheet)
	cells, ok := d.ManualEdits[sheet]
	if !ok {
		return
	}
	delete(cells, ref.Address.String())
	if len(cells) == 0 {
		delete(d.ManualEdits, sheet)
	}
}

// sheetKey returns the stored key matching sheet, or sheet itself.
func (d ExtractedData) sheetKey(sheet string) string {
	if _, ok := d.ManualEdits[sheet]; ok {
		return sheet
	}
	folded := FoldSheet(sheet)
	for k := range d.ManualEdits {
		if FoldSheet(k) == folded {
			return k
		}
	}
	return sheet
}

// Clone returns a deep copy.
func (d ExtractedData) Clone() ExtractedData {
	out := ExtractedData{
		LLMExtracted: make(map[string]ExtractedValue, len(d.LLMExtracted)),
		ManualEdits:  make(map[string]map[string]ManualEdit, len(d.ManualEdits)),
	}
	for id, v := range d.LLMExtracted {
		v.SourcePage = clonePage(v.SourcePage)
		v.Citations = cloneCitations(v.Citations)
		out.LLMExtracted[id] = v
	}
	for sheet, cells := range d.ManualEdits {
		copied := make(map[string]ManualEdit, len(cells))
		for addr, e := range cells {
			e.Citations = cloneCitations(e.Citations)
			copied[addr] = e
		}
		out.ManualEdits[sheet] = copied
	}
	return out
}

func clonePage(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneCitations(c []Citation) []Citation {
	if c == nil {
		return nil
	}
	return append([]Citation(nil), c...)
}
