package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/agentstation/fillmap/cmd/application"
	"github.com/agentstation/fillmap/internal/cmd/application"
)

func TestVersionCommand(t *testing.T) {
	cmd := NewCommand(&application.Mock{
		Format: "table",
		Info:   app.BuildInfo{Version: "1.2.3", Commit: "abc123"},
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "fillmap version 1.2.3")
	assert.Contains(t, out.String(), "commit: abc123")
	assert.Contains(t, out.String(), "built by: test")
}

func TestVersionCommandJSON(t *testing.T) {
	cmd := NewCommand(&application.Mock{Info: app.BuildInfo{Version: "1.2.3"}})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), `"version": "1.2.3"`)
	assert.Contains(t, out.String(), `"built_by": "test"`)
	assert.Contains(t, out.String(), `"go_version"`)
}
