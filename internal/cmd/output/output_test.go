package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fillmap/internal/cmd/table"
	"github.com/agentstation/fillmap/pkg/errors"
)

type sample struct {
	RunID  string `json:"run_id" yaml:"run_id"`
	Status string `json:"status" yaml:"status"`
	Hidden string `json:"-"`
}

func TestPrint(t *testing.T) {
	raw := sample{RunID: "run-1", Status: "mapped"}
	data := Data{
		Headers: []string{"ID", "Status"},
		Rows:    [][]string{{"run-1", "mapped"}},
	}

	t.Run("json encodes raw", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatJSON, raw, data))
		var got map[string]string
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "run-1", got["run_id"])
		assert.NotContains(t, got, "Hidden")
	})

	t.Run("yaml encodes raw", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatYAML, raw, data))
		assert.Contains(t, buf.String(), "run_id: run-1")
		assert.Contains(t, buf.String(), "status: mapped")
	})

	t.Run("table renders rows", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatTable, raw, data))
		assert.Contains(t, buf.String(), "run-1")
		assert.Contains(t, strings.ToUpper(buf.String()), "STATUS")
	})

	t.Run("table without projection lists properties", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatWide, raw, Data{}))
		assert.Contains(t, buf.String(), "Run Id")
		assert.Contains(t, buf.String(), "mapped")
	})
}

func TestTable(t *testing.T) {
	long := strings.Repeat("x", 60)
	data := Data{
		Headers:         []string{"Cell", "Reasoning"},
		Rows:            [][]string{{"Sheet1!B4", long}},
		ColumnAlignment: []table.Align{table.AlignLeft, table.AlignRight},
	}

	t.Run("narrow truncates", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Table(&buf, data, false))
		assert.NotContains(t, buf.String(), long)
		assert.Contains(t, buf.String(), "...")
	})

	t.Run("wide keeps full cells", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Table(&buf, &data, true))
		assert.Contains(t, buf.String(), long)
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Table(&buf, Data{Headers: []string{"ID"}}, false))
		assert.Equal(t, "No results.\n", buf.String())
	})

	t.Run("struct becomes a property table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Table(&buf, sample{RunID: "run-9", Status: "queued"}, false))
		assert.Contains(t, buf.String(), "Run Id")
		assert.Contains(t, buf.String(), "run-9")
		assert.NotContains(t, buf.String(), "Hidden")
	})

	t.Run("other values fall back to json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Table(&buf, []int{1, 2}, false))
		assert.JSONEq(t, "[1,2]", buf.String())
	})
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "yaml", "wide", ""} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("csv")
	assert.True(t, errors.IsValidationError(err))
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
	assert.Equal(t, FormatWide, DetectFormat("wide"))
}
