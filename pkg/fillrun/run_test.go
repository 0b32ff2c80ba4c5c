package fillrun

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fillmap/pkg/errors"
)

func TestRunLookups(t *testing.T) {
	run := NewTestRun()

	f, ok := run.Field("F7")
	require.True(t, ok)
	assert.Equal(t, "1,200,000", f.SampleValue)

	_, ok = run.Field("F99")
	assert.False(t, ok)

	m, ok := run.Mapping(MustCellRef("sheet1", "C4"))
	require.True(t, ok)
	assert.Equal(t, "F8", m.FieldID())

	doc, ok := run.Document(2)
	require.True(t, ok)
	assert.Equal(t, "doc-appendix", doc)
	_, ok = run.Document(3)
	assert.False(t, ok)
}

func TestRunValidate(t *testing.T) {
	require.NoError(t, NewTestRun().Validate())

	run := NewTestRun()
	run.Mappings[0].PdfFieldID = FieldRef("F99")
	assert.True(t, errors.IsUnknownField(run.Validate()))

	run = NewTestRun()
	run.Status = "archived"
	assert.True(t, errors.IsValidationError(run.Validate()))

	run = NewTestRun()
	run.PdfFields = append(run.PdfFields, run.PdfFields[0])
	assert.True(t, errors.IsValidationError(run.Validate()))
}

func TestRunCloneIsDeep(t *testing.T) {
	run := NewTestRun()
	run.Artifact = NewArtifact("/tmp/out.xlsx")
	run.Mappings[0].ReplacedEdit = &ManualEdit{Value: "Q2"}
	clone := run.Clone()

	*clone.Mappings[0].PdfFieldID = "F7"
	clone.ExtractedData.ManualEdits["Sheet1"]["D2"] = ManualEdit{Value: "changed"}
	clone.Artifact.Path = "elsewhere"
	*clone.PdfFields[0].SourcePage = 99
	clone.Mappings[0].ReplacedEdit.Value = "changed"

	assert.Equal(t, "F8", run.Mappings[0].FieldID())
	assert.Equal(t, "Q3", run.ExtractedData.ManualEdits["Sheet1"]["D2"].Value)
	assert.Equal(t, "/tmp/out.xlsx", run.Artifact.Path)
	assert.Equal(t, 3, *run.PdfFields[0].SourcePage)
	assert.Equal(t, "Q2", run.Mappings[0].ReplacedEdit.Value)
}

func TestManualEditSheetFolding(t *testing.T) {
	run := NewTestRun()
	e, ok := run.ExtractedData.ManualEdit(MustCellRef("SHEET1", "D2"))
	require.True(t, ok)
	assert.Equal(t, "Q3", e.Value)

	run.ExtractedData.SetManualEdit(MustCellRef("sheet1", "E2"), ManualEdit{Value: "Q4"})
	assert.Len(t, run.ExtractedData.ManualEdits, 1)

	run.ExtractedData.DeleteManualEdit(MustCellRef("Sheet1", "D2"))
	run.ExtractedData.DeleteManualEdit(MustCellRef("Sheet1", "E2"))
	assert.Empty(t, run.ExtractedData.ManualEdits)
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	run := NewTestRun()

	for _, name := range []string{"run.yaml", "run.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, SaveFile(path, run))

			loaded, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, run.ID, loaded.ID)
			assert.Equal(t, run.Status, loaded.Status)
			require.Len(t, loaded.Mappings, 1)
			assert.Equal(t, CellAddress{Col: 3, Row: 4}, loaded.Mappings[0].CellAddress)
			assert.Equal(t, "F8", loaded.Mappings[0].FieldID())
			assert.Equal(t, "Q3", loaded.ExtractedData.ManualEdits["Sheet1"]["D2"].Value)
			assert.Equal(t, run.PdfFields[0].Citations, loaded.PdfFields[0].Citations)
			assert.Nil(t, loaded.Artifact)
		})
	}

	runs, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.IsNotFound(err))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("id: [unclosed"), 0o600))
	_, err = LoadFile(path)
	assert.True(t, errors.IsValidationError(err))
}
