package output

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/fillmap/internal/cmd/table"
)

// narrowWidth bounds cell text unless the wide format was asked for.
const narrowWidth = 40

var twAlign = map[table.Align]tw.Align{
	table.AlignLeft:   tw.AlignLeft,
	table.AlignCenter: tw.AlignCenter,
	table.AlignRight:  tw.AlignRight,
}

// renderTable draws data with tablewriter.
func renderTable(w io.Writer, data Data, wide bool) error {
	if len(data.Rows) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}

	var cfg tablewriter.Config
	if n := len(data.ColumnAlignment); n > 0 {
		per := make([]tw.Align, n)
		for i, a := range data.ColumnAlignment {
			if mapped, ok := twAlign[a]; ok {
				per[i] = mapped
			} else {
				per[i] = tw.Skip
			}
		}
		cfg.Header.Alignment = tw.CellAlignment{PerColumn: per}
		cfg.Row.Alignment = tw.CellAlignment{PerColumn: per}
	}

	tbl := tablewriter.NewTable(w, tablewriter.WithConfig(cfg))
	if len(data.Headers) > 0 {
		tbl.Header(toAny(data.Headers, 0)...)
	}
	limit := narrowWidth
	if wide {
		limit = 0
	}
	for _, row := range data.Rows {
		if err := tbl.Append(toAny(row, limit)...); err != nil {
			return err
		}
	}
	return tbl.Render()
}

// Table renders any value in table mode: Data as is, a struct as a
// property table, anything else as JSON.
func Table(w io.Writer, v any, wide bool) error {
	switch d := v.(type) {
	case Data:
		return renderTable(w, d, wide)
	case *Data:
		return renderTable(w, *d, wide)
	}
	if props, ok := properties(v); ok {
		return renderTable(w, props, wide)
	}
	return encodeJSON(w, v)
}

// properties lists the exported fields of a struct under their title-cased
// JSON names.
func properties(v any) (Data, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return Data{}, false
	}

	title := cases.Title(language.English)
	props := Data{Headers: []string{"Property", "Value"}}
	rt := rv.Type()
	for i := range rt.NumField() {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		default:
			name = title.String(strings.ReplaceAll(name, "_", " "))
		}
		props.Rows = append(props.Rows, []string{name, fmt.Sprint(rv.Field(i).Interface())})
	}
	return props, true
}

func toAny(cells []string, limit int) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		if limit > 0 {
			c = table.Truncate(c, limit)
		}
		out[i] = c
	}
	return out
}
