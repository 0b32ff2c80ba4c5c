package fillrun

// Citation points at a page of one of the run's source documents.
type Citation struct {
	DocumentRef string `json:"document_ref" yaml:"document_ref"`
	Page        int    `json:"page" yaml:"page"`
}

// PdfField is a value detected in the source document.
// Fields are immutable once detected; extraction happens outside fillmap.
type PdfField struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Type        string     `json:"type,omitempty" yaml:"type,omitempty"`
	SampleValue string     `json:"sample_value" yaml:"sample_value"`
	Confidence  float64    `json:"confidence" yaml:"confidence"`
	SourcePage  *int       `json:"source_page,omitempty" yaml:"source_page,omitempty"`
	Citations   []Citation `json:"citations,omitempty" yaml:"citations,omitempty"`
}
