package table

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/agentstation/fillmap/internal/cmd/emoji"
	"github.com/agentstation/fillmap/pkg/fillrun"
	"github.com/agentstation/fillmap/pkg/grid"
	"github.com/agentstation/fillmap/pkg/reconcile"
)

// ResolutionToTableData renders a resolved cell as a property table.
func ResolutionToTableData(ref fillrun.CellRef, res reconcile.Resolution) Data {
	confidence := "-"
	if res.HasConfidence {
		confidence = Tier(res.Confidence)
	}
	rows := [][]string{
		{"Cell", ref.String()},
		{"Value", Dash(res.Value)},
		{"Source", string(res.Source)},
		{"Confidence", confidence},
		{"Field", Dash(res.FieldID)},
		{"Template Value", Dash(res.Raw.Value)},
	}
	if res.Mapping != nil {
		rows = append(rows,
			[]string{"Label", Dash(res.Mapping.ExcelLabel)},
			[]string{"Reasoning", Dash(res.Mapping.Reasoning)},
		)
	}
	return Data{Headers: []string{"Property", "Value"}, Rows: rows}
}

// GridToTableData lays a projection out as a sheet: one column per sheet
// column, a leading row-number column, and markers for mapped (●),
// formula (ƒ) and edited (✎) cells.
func GridToTableData(p grid.Projection) Data {
	headers := []string{""}
	align := []Align{AlignRight}
	for col := p.Range.FirstCol; col <= p.Range.LastCol; col++ {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			name = strconv.Itoa(col)
		}
		headers = append(headers, name)
		align = append(align, AlignLeft)
	}

	rows := make([][]string, 0, len(p.Rows))
	for i, views := range p.Rows {
		row := []string{strconv.Itoa(p.Range.FirstRow + i)}
		for _, v := range views {
			row = append(row, cellText(v))
		}
		rows = append(rows, row)
	}
	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// CellsToTableData lists the non-empty cells of a projection, one per row.
func CellsToTableData(p grid.Projection) Data {
	var rows [][]string
	for _, views := range p.Rows {
		for _, v := range views {
			if v.DisplayValue == "" && !v.MappingPresent {
				continue
			}
			tier := "-"
			if v.ConfidenceTier != "" {
				tier = Tier(v.Confidence)
			}
			rows = append(rows, []string{
				v.Address,
				Dash(v.DisplayValue),
				string(v.Source),
				Dash(v.FieldID),
				Dash(v.Label),
				tier,
			})
		}
	}
	return Data{
		Headers: []string{"Cell", "Value", "Source", "Field", "Label", "Confidence"},
		Rows:    rows,
	}
}

func cellText(v grid.CellView) string {
	text := v.DisplayValue
	if v.Formatted != "" {
		text = v.Formatted
	}
	text = Truncate(text, 24)
	switch {
	case v.IsFormula:
		return fmt.Sprintf("%s %s", emoji.Formula, text)
	case v.MappingPresent && v.UserEdited:
		return fmt.Sprintf("%s %s", emoji.Edited, text)
	case v.MappingPresent:
		return fmt.Sprintf("%s %s", emoji.Mapped, text)
	default:
		return text
	}
}
