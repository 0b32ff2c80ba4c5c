package citations

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fillmap/internal/cmd/application"
)

func TestCitationsCommand(t *testing.T) {
	cmd := NewCommand(&application.Mock{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"run-test", "Total", "assets", "[D1:p3]", "and", "[D9:p1]"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var res struct {
		Segments  []json.RawMessage `json:"segments"`
		Citations []struct {
			DocumentRef string `json:"document_ref"`
			Page        int    `json:"page"`
		} `json:"citations"`
		Unresolved []string `json:"unresolved"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	require.Len(t, res.Citations, 1)
	assert.Equal(t, "doc-annual", res.Citations[0].DocumentRef)
	assert.Equal(t, 3, res.Citations[0].Page)
	assert.Equal(t, []string{"[D9:p1]"}, res.Unresolved)
	assert.NotEmpty(t, res.Segments)
}

func TestCitationsCommand_UnknownRun(t *testing.T) {
	cmd := NewCommand(&application.Mock{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"nope", "[D1:p1]"})
	require.Error(t, cmd.ExecuteContext(context.Background()))
}
