package mapping

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fillmap/internal/cmd/application"
	"github.com/agentstation/fillmap/pkg/errors"
	"github.com/agentstation/fillmap/pkg/fillrun"
)

type mutationOutput struct {
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	Cell       string `json:"cell"`
	Resolution struct {
		Value   string `json:"value"`
		Source  string `json:"source"`
		FieldID string `json:"field_id"`
	} `json:"resolution"`
	Provenance struct {
		Source        string `json:"source"`
		Value         string `json:"value"`
		PreviousValue string `json:"previous_value"`
	} `json:"provenance"`
	SavedTo string `json:"saved_to"`
}

func run(t *testing.T, mock *application.Mock, args ...string) (mutationOutput, error) {
	t.Helper()
	cmd := NewCommand(mock)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		return mutationOutput{}, err
	}

	var res mutationOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &res), out.String())
	return res, nil
}

func TestAddCommand(t *testing.T) {
	t.Run("links a field", func(t *testing.T) {
		res, err := run(t, &application.Mock{}, "add", "run-test", "Sheet1!B4", "--field", "F7")
		require.NoError(t, err)
		assert.Equal(t, "Sheet1!B4", res.Cell)
		assert.Equal(t, "1,200,000", res.Resolution.Value)
		assert.Equal(t, "F7", res.Resolution.FieldID)
		assert.Equal(t, "field", res.Provenance.Source)
		assert.Equal(t, "950,000", res.Provenance.PreviousValue)
	})

	t.Run("manual value", func(t *testing.T) {
		res, err := run(t, &application.Mock{}, "add", "run-test", "Sheet1!B5", "--value", "2024")
		require.NoError(t, err)
		assert.Equal(t, "2024", res.Resolution.Value)
		assert.Equal(t, "manual", res.Resolution.Source)
	})

	t.Run("formula cell", func(t *testing.T) {
		_, err := run(t, &application.Mock{}, "add", "run-test", "Sheet1!E9", "--value", "1")
		require.Error(t, err)
		assert.True(t, errors.IsInvalidTarget(err))
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := run(t, &application.Mock{}, "add", "run-test", "Sheet1!B5", "--field", "F99")
		require.Error(t, err)
		assert.True(t, errors.IsUnknownField(err))
	})
}

func TestEditCommand(t *testing.T) {
	res, err := run(t, &application.Mock{}, "edit", "run-test", "Sheet1!C4", "--value", "90,000", "--reasoning", "restated")
	require.NoError(t, err)
	assert.Equal(t, "90,000", res.Resolution.Value)
	assert.Equal(t, "85,000", res.Provenance.PreviousValue)
}

func TestRemoveCommand(t *testing.T) {
	res, err := run(t, &application.Mock{}, "remove", "run-test", "Sheet1!C4")
	require.NoError(t, err)
	assert.Equal(t, "80,000", res.Resolution.Value)
	assert.Equal(t, "raw", res.Resolution.Source)
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	mock := &application.Mock{Dir: dir}

	res, err := run(t, mock, "add", "run-test", "Sheet1!B4", "--field", "F7", "--save")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run-test.yaml"), res.SavedTo)

	saved, err := fillrun.LoadFile(res.SavedTo)
	require.NoError(t, err)
	m, ok := saved.Mapping(fillrun.MustCellRef("Sheet1", "B4"))
	require.True(t, ok)
	assert.Equal(t, "F7", m.FieldID())
}
