package runs

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fillmap/internal/cmd/application"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListCommand(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		out, err := execute(t, NewCommand(&application.Mock{}), "list")
		require.NoError(t, err)

		var list []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &list))
		require.Len(t, list, 1)
		assert.Equal(t, "run-test", list[0].ID)
		assert.Equal(t, "awaiting_review", list[0].Status)
	})

	t.Run("status filter", func(t *testing.T) {
		out, err := execute(t, NewCommand(&application.Mock{}), "list", "--status", "queued")
		require.NoError(t, err)
		assert.JSONEq(t, "[]", out)
	})
}

func TestShowCommand(t *testing.T) {
	table := &application.Mock{Format: "table"}

	t.Run("mappings table", func(t *testing.T) {
		out, err := execute(t, NewCommand(table), "show", "run-test")
		require.NoError(t, err)
		assert.Contains(t, out, "Sheet1!C4")
		assert.Contains(t, out, "F8 Net income")
	})

	t.Run("fields table", func(t *testing.T) {
		out, err := execute(t, NewCommand(table), "show", "run-test", "--fields")
		require.NoError(t, err)
		assert.Contains(t, out, "Total assets")
		assert.Contains(t, out, "Smith & Co")
	})

	t.Run("unknown run", func(t *testing.T) {
		_, err := execute(t, NewCommand(&application.Mock{}), "show", "nope")
		require.Error(t, err)
	})
}
