package fillrun

import (
	"time"

	"github.com/agentstation/utc"
)

// NewTestRun returns a small run awaiting review, used across package tests.
//
// Fields: F7 "Total assets" (sample "1,200,000", 0.92), F8 "Net income"
// (sample "85,000", 0.65), F9 "Auditor" (sample "Smith & Co", 0.4).
// Mappings: Sheet1!C4 -> F8. Manual edits: Sheet1!D2 = "Q3".
func NewTestRun() *FillRun {
	page3, page5 := 3, 5
	at := utc.New(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return &FillRun{
		ID:         "run-test",
		TemplateID: "tmpl-balance",
		DocumentID: "doc-annual",
		Documents:  []string{"doc-annual", "doc-appendix"},
		Status:     StatusAwaitingReview,
		PdfFields: []PdfField{
			{ID: "F7", Name: "Total assets", Type: "currency", SampleValue: "1,200,000", Confidence: 0.92, SourcePage: &page3,
				Citations: []Citation{{DocumentRef: "doc-annual", Page: 3}}},
			{ID: "F8", Name: "Net income", Type: "currency", SampleValue: "85,000", Confidence: 0.65, SourcePage: &page5},
			{ID: "F9", Name: "Auditor", Type: "text", SampleValue: "Smith & Co", Confidence: 0.4},
		},
		Mappings: []CellMapping{
			{SheetName: "Sheet1", CellAddress: CellAddress{Col: 3, Row: 4}, PdfFieldID: FieldRef("F8"),
				ExcelLabel: "Net income", Confidence: 0.65, Reasoning: "label match"},
		},
		ExtractedData: ExtractedData{
			LLMExtracted: map[string]ExtractedValue{
				"F8": {Value: "85,000", Confidence: 0.65, SourcePage: &page5},
			},
			ManualEdits: map[string]map[string]ManualEdit{
				"Sheet1": {"D2": {Value: "Q3", Confidence: 1, UserEdited: true}},
			},
		},
		CreatedAt: at,
		UpdatedAt: at,
	}
}
