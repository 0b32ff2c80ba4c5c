package table

import (
	"sort"

	"github.com/agentstation/fillmap/internal/cmd/emoji"
	"github.com/agentstation/fillmap/pkg/fillrun"
)

// RunsToTableData lists runs one per row.
func RunsToTableData(runs []*fillrun.FillRun) Data {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		editable := "no"
		if r.Status.Editable() {
			editable = "yes"
		}
		rows = append(rows, []string{
			r.ID,
			string(r.Status),
			editable,
			r.TemplateID,
			r.DocumentID,
			FormatCount(len(r.PdfFields)),
			FormatCount(len(r.Mappings)),
			r.UpdatedAt.Time.Format("2006-01-02 15:04"),
		})
	}
	return Data{
		Headers:         []string{"ID", "Status", "Editable", "Template", "Document", "Fields", "Mappings", "Updated"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignCenter, AlignLeft, AlignLeft, AlignRight, AlignRight, AlignLeft},
	}
}

// MappingsToTableData lists a run's mappings sorted by cell, with the field
// each one links and its confidence tier.
func MappingsToTableData(run *fillrun.FillRun) Data {
	mappings := append([]fillrun.CellMapping(nil), run.Mappings...)
	sort.Slice(mappings, func(i, j int) bool {
		a, b := mappings[i].Ref(), mappings[j].Ref()
		if a.Sheet != b.Sheet {
			return a.Sheet < b.Sheet
		}
		if a.Address.Row != b.Address.Row {
			return a.Address.Row < b.Address.Row
		}
		return a.Address.Col < b.Address.Col
	})

	rows := make([][]string, 0, len(mappings))
	for _, m := range mappings {
		field := "manual"
		if m.HasField() {
			field = m.FieldID()
			if f, ok := run.Field(m.FieldID()); ok {
				field += " " + f.Name
			}
		}
		edited := ""
		if m.UserEdited {
			edited = emoji.Edited
		}
		rows = append(rows, []string{
			m.Ref().String(),
			field,
			Dash(m.ExcelLabel),
			Tier(m.Confidence),
			edited,
			Dash(Truncate(m.Reasoning, 48)),
		})
	}
	return Data{
		Headers: []string{"Cell", "Field", "Label", "Confidence", "Edited", "Reasoning"},
		Rows:    rows,
	}
}

// FieldsToTableData lists a run's detected fields.
func FieldsToTableData(run *fillrun.FillRun) Data {
	rows := make([][]string, 0, len(run.PdfFields))
	for _, f := range run.PdfFields {
		page := "-"
		if f.SourcePage != nil {
			page = FormatCount(*f.SourcePage)
		}
		rows = append(rows, []string{f.ID, f.Name, Dash(f.Type), Dash(f.SampleValue), Tier(f.Confidence), page})
	}
	return Data{
		Headers: []string{"ID", "Name", "Type", "Sample", "Confidence", "Page"},
		Rows:    rows,
	}
}
