package table

import (
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/fillmap/pkg/citation"
	"github.com/agentstation/fillmap/pkg/overlay"
	"github.com/agentstation/fillmap/pkg/provenance"
)

// ProvenanceToTableData shows the latest write per cell.
func ProvenanceToTableData(m provenance.Map) Data {
	entries := m.Sorted()
	rows := make([][]string, 0, len(entries))
	for _, p := range entries {
		rows = append(rows, []string{
			p.Cell,
			formatValueAsYAML(p.Value),
			Dash(formatValueAsYAML(p.PreviousValue)),
			string(p.Source),
			Dash(p.FieldID),
			Percent(p.Confidence),
			formatTimestamp(p.Timestamp.Time),
			Dash(p.Reason),
		})
	}
	return Data{
		Headers: []string{"Cell", "Value", "Previous", "Source", "Field", "Confidence", "When", "Reason"},
		Rows:    rows,
	}
}

// CitationsToTableData lists resolved citations followed by inert tokens.
func CitationsToTableData(res citation.Result) Data {
	rows := make([][]string, 0, len(res.Segments))
	for _, c := range res.Citations() {
		rows = append(rows, []string{c.Token, "D" + FormatCount(c.DocumentIndex), c.DocumentRef, FormatCount(c.Page), ""})
	}
	for _, u := range res.Unresolved {
		rows = append(rows, []string{u.Token, "-", "-", "-", u.Reason})
	}
	return Data{
		Headers: []string{"Token", "Document", "Reference", "Page", "Unresolved"},
		Rows:    rows,
	}
}

// RectToTableData shows a normalized highlight next to its inch box.
func RectToTableData(b overlay.BBox, size overlay.PageSize, r overlay.Rect) Data {
	return Data{
		Headers: []string{"Property", "Value"},
		Rows: [][]string{
			{"Page", FormatCount(b.Page)},
			{"Box (in)", formatFloats(b.X0, b.Y0, b.X1, b.Y1)},
			{"Page Size (pt)", formatFloats(size.WidthPts, size.HeightPts)},
			{"Left", formatPercent(r.Left)},
			{"Top", formatPercent(r.Top)},
			{"Width", formatPercent(r.Width)},
			{"Height", formatPercent(r.Height)},
		},
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// formatValueAsYAML renders a value the way it would appear in a run file,
// so numbers stored as text keep their quotes.
func formatValueAsYAML(value string) string {
	if value == "" {
		return ""
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return value
	}
	return Truncate(strings.TrimSpace(string(data)), 32)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatFloats(vs ...float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}
