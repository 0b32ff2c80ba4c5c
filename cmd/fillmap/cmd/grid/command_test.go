package grid

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fillmap/internal/cmd/application"
	"github.com/agentstation/fillmap/pkg/grid"
)

func run(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(&application.Mock{Format: format})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SilenceUsage = true
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGridCommand(t *testing.T) {
	t.Run("spans", func(t *testing.T) {
		out, err := run(t, "json", "run-test", "--sheet", "Sheet1", "--rows", "1-4", "--cols", "A-D")
		require.NoError(t, err)

		var res struct {
			Projection struct {
				Rows [][]struct {
					Address        string `json:"address"`
					DisplayValue   string `json:"display_value"`
					MappingPresent bool   `json:"mapping_present"`
				} `json:"rows"`
			} `json:"projection"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		require.Len(t, res.Projection.Rows, 4)
		c4 := res.Projection.Rows[3][2]
		assert.Equal(t, "C4", c4.Address)
		assert.Equal(t, "85,000", c4.DisplayValue)
		assert.True(t, c4.MappingPresent)
	})

	t.Run("range", func(t *testing.T) {
		out, err := run(t, "json", "run-test", "--range", "B4:C4")
		require.NoError(t, err)
		assert.Contains(t, out, `"950,000"`)
	})

	t.Run("cells table", func(t *testing.T) {
		out, err := run(t, "table", "run-test", "--range", "A1:D4", "--cells")
		require.NoError(t, err)
		assert.Contains(t, out, "Q3")
		assert.Contains(t, out, "Total assets")
	})

	t.Run("rows without cols", func(t *testing.T) {
		_, err := run(t, "json", "run-test", "--rows", "1-4")
		require.Error(t, err)
	})

	t.Run("range with rows", func(t *testing.T) {
		_, err := run(t, "json", "run-test", "--range", "A1:B2", "--rows", "1-2")
		require.Error(t, err)
	})
}

func TestParseRange(t *testing.T) {
	r, err := (&options{}).parseRange()
	require.NoError(t, err)
	assert.Equal(t, grid.Range{}, r)

	r, err = (&options{rows: "2-5", cols: "B-C"}).parseRange()
	require.NoError(t, err)
	assert.Equal(t, grid.Range{FirstRow: 2, LastRow: 5, FirstCol: 2, LastCol: 3}, r)
}
