package runfile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fillmap/pkg/fillrun"
)

func TestSave(t *testing.T) {
	t.Run("writes a new file named after the run", func(t *testing.T) {
		dir := t.TempDir()
		run := fillrun.NewTestRun()

		path, err := Save(dir, run)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "run-test.yaml"), path)

		loaded, err := fillrun.LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, run.ID, loaded.ID)
	})

	t.Run("rewrites the existing file holding the run", func(t *testing.T) {
		dir := t.TempDir()
		run := fillrun.NewTestRun()
		existing := filepath.Join(dir, "balance.json")
		require.NoError(t, fillrun.SaveFile(existing, run))

		run.Status = fillrun.StatusFilling
		path, err := Save(dir, run)
		require.NoError(t, err)
		assert.Equal(t, existing, path)

		loaded, err := fillrun.LoadFile(existing)
		require.NoError(t, err)
		assert.Equal(t, fillrun.StatusFilling, loaded.Status)
	})

	t.Run("requires a runs directory", func(t *testing.T) {
		_, err := Save("", fillrun.NewTestRun())
		require.Error(t, err)
	})
}
