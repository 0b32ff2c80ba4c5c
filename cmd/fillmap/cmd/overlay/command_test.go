package overlay

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fillmap/internal/cmd/application"
)

func run(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()
	cmd := NewCommand(&application.Mock{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SilenceUsage = true
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.Bytes(), err
}

func TestOverlayCommand(t *testing.T) {
	out, err := run(t, "1", "1.0", "1.0", "2.0", "1.5")
	require.NoError(t, err)

	var res struct {
		Rect struct {
			Left, Top, Width, Height float64
		} `json:"rect"`
	}
	require.NoError(t, json.Unmarshal(out, &res))
	assert.InDelta(t, 11.76, res.Rect.Left, 0.01)
	assert.InDelta(t, 9.09, res.Rect.Top, 0.01)
	assert.InDelta(t, 11.76, res.Rect.Width, 0.01)
	assert.InDelta(t, 4.55, res.Rect.Height, 0.01)
}

func TestOverlayCommand_PageSize(t *testing.T) {
	out, err := run(t, "2", "0", "0", "8.5", "11", "--width", "1224", "--height", "1584")
	require.NoError(t, err)

	var res struct {
		Rect struct {
			Width, Height float64
		} `json:"rect"`
	}
	require.NoError(t, json.Unmarshal(out, &res))
	assert.InDelta(t, 50.0, res.Rect.Width, 0.001)
	assert.InDelta(t, 50.0, res.Rect.Height, 0.001)
}

func TestOverlayCommand_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"page not a number", []string{"one", "1", "1", "2", "2"}},
		{"coordinate not a number", []string{"1", "1", "x", "2", "2"}},
		{"inverted box", []string{"1", "2", "1", "1", "2"}},
		{"page zero", []string{"0", "1", "1", "2", "2"}},
		{"zero width page", []string{"1", "1", "1", "2", "2", "--width", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
		})
	}
}
