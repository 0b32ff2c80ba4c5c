// Package output renders command results as tables, JSON or YAML.
//
// Commands hand Print both the raw value and its table projection:
// JSON and YAML encode the raw value so no field is lost, while table and
// wide render the projection.
package output

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"

	"github.com/agentstation/fillmap/internal/cmd/table"
	"github.com/agentstation/fillmap/pkg/errors"
)

// Format is an output encoding selected with --format.
type Format string

const (
	FormatTable Format = "table"
	FormatWide  Format = "wide"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Data is the table projection of a result.
type Data = table.Data

var encoders = map[Format]func(io.Writer, any) error{
	FormatJSON: encodeJSON,
	FormatYAML: encodeYAML,
}

// Print writes raw as JSON or YAML, or tableData as a table. A tableData
// without headers renders raw through Table instead.
func Print(w io.Writer, format Format, raw any, tableData Data) error {
	if encode, ok := encoders[format]; ok {
		return encode(w, raw)
	}
	wide := format == FormatWide
	if len(tableData.Headers) == 0 {
		return Table(w, raw, wide)
	}
	return renderTable(w, tableData, wide)
}

// ParseFormat validates a --format value. The empty string means detect.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "", FormatTable, FormatWide, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", errors.NewValidationError("format", s, "must be one of table, wide, json, yaml")
}

// DetectFormat returns the explicit format, or table on a terminal and
// JSON when stdout is piped.
func DetectFormat(explicit string) Format {
	if explicit != "" {
		return Format(strings.ToLower(explicit))
	}
	fd := os.Stdout.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return FormatTable
	}
	return FormatJSON
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func encodeYAML(w io.Writer, v any) error {
	b, err := yaml.MarshalWithOptions(v,
		yaml.Indent(2),
		yaml.IndentSequence(false),
		yaml.UseJSONMarshaler(),
	)
	if err != nil {
		return errors.WrapParse("yaml", "", err)
	}
	_, err = w.Write(b)
	return err
}
