package fillrun

import (
	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/agentstation/fillmap/pkg/errors"
)

// Artifact is a spreadsheet generated from the mapping state at GeneratedAt.
type Artifact struct {
	ID          string   `json:"id" yaml:"id"`
	GeneratedAt utc.Time `json:"generated_at" yaml:"generated_at"`
	Path        string   `json:"path,omitempty" yaml:"path,omitempty"`
}

// NewArtifact creates an artifact record stamped with the current time.
func NewArtifact(path string) *Artifact {
	return &Artifact{ID: uuid.NewString(), GeneratedAt: utc.Now(), Path: path}
}

// FillRun tracks one document-to-template fill attempt.
type FillRun struct {
	ID            string        `json:"id" yaml:"id"`
	TemplateID    string        `json:"template_id" yaml:"template_id"`
	DocumentID    string        `json:"document_id" yaml:"document_id"`
	Documents     []string      `json:"documents,omitempty" yaml:"documents,omitempty"` // citation index D1 is Documents[0]
	Status        Status        `json:"status" yaml:"status"`
	Mappings      []CellMapping `json:"mappings" yaml:"mappings"`
	PdfFields     []PdfField    `json:"pdf_fields" yaml:"pdf_fields"`
	ExtractedData ExtractedData `json:"extracted_data" yaml:"extracted_data"`
	Artifact      *Artifact     `json:"artifact" yaml:"artifact"`
	CreatedAt     utc.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt     utc.Time      `json:"updated_at" yaml:"updated_at"`
}

// New creates a queued run with a fresh id.
func New(templateID, documentID string) *FillRun {
	now := utc.Now()
	return &FillRun{
		ID:         uuid.NewString(),
		TemplateID: templateID,
		DocumentID: documentID,
		Documents:  []string{documentID},
		Status:     StatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Field returns the detected field with the given id.
func (r *FillRun) Field(id string) (PdfField, bool) {
	for _, f := range r.PdfFields {
		if f.ID == id {
			return f, true
		}
	}
	return PdfField{}, false
}

// Mapping returns the first mapping targeting ref in input order.
func (r *FillRun) Mapping(ref CellRef) (CellMapping, bool) {
	key := ref.Key()
	for _, m := range r.Mappings {
		if m.Ref().Key() == key {
			return m, true
		}
	}
	return CellMapping{}, false
}

// Document returns the document ref for a 1-based citation index.
func (r *FillRun) Document(index int) (string, bool) {
	if index < 1 || index > len(r.Documents) {
		return "", false
	}
	return r.Documents[index-1], true
}

// Touch stamps UpdatedAt.
func (r *FillRun) Touch() {
	r.UpdatedAt = utc.Now()
}

// Validate checks structural integrity of a loaded run. Duplicate mappings
// are not rejected here; they are a data-quality warning surfaced by the
// reconciler and the grid.
func (r *FillRun) Validate() error {
	if r.ID == "" {
		return errors.NewValidationError("id", r.ID, "cannot be empty")
	}
	if !r.Status.Valid() {
		return errors.NewValidationError("status", r.Status, "unknown status")
	}

	seen := make(map[string]struct{}, len(r.PdfFields))
	for _, f := range r.PdfFields {
		if f.ID == "" {
			return errors.NewValidationError("pdf_fields.id", f.ID, "cannot be empty")
		}
		if _, dup := seen[f.ID]; dup {
			return errors.NewValidationError("pdf_fields.id", f.ID, "duplicate field id")
		}
		if f.Confidence < 0 || f.Confidence > 1 {
			return errors.NewValidationError("pdf_fields.confidence", f.Confidence, "must be between 0 and 1")
		}
		seen[f.ID] = struct{}{}
	}

	for _, m := range r.Mappings {
		if m.SheetName == "" || !m.CellAddress.Valid() {
			return errors.NewValidationError("mappings", m.Ref().String(), "sheet and cell address are required")
		}
		if m.HasField() {
			if _, ok := seen[m.FieldID()]; !ok {
				return errors.NewUnknownFieldError(m.FieldID(), r.ID)
			}
		}
	}
	return nil
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r *FillRun) Clone() *FillRun {
	if r == nil {
		return nil
	}
	out := *r
	out.Documents = append([]string(nil), r.Documents...)
	out.Mappings = make([]CellMapping, len(r.Mappings))
	for i, m := range r.Mappings {
		if m.PdfFieldID != nil {
			m.PdfFieldID = FieldRef(*m.PdfFieldID)
		}
		if m.ReplacedEdit != nil {
			e := *m.ReplacedEdit
			e.Citations = cloneCitations(e.Citations)
			m.ReplacedEdit = &e
		}
		out.Mappings[i] = m
	}
	out.PdfFields = make([]PdfField, len(r.PdfFields))
	for i, f := range r.PdfFields {
		f.SourcePage = clonePage(f.SourcePage)
		f.Citations = cloneCitations(f.Citations)
		out.PdfFields[i] = f
	}
	out.ExtractedData = r.ExtractedData.Clone()
	if r.Artifact != nil {
		a := *r.Artifact
		out.Artifact = &a
	}
	return &out
}
