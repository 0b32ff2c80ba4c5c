package serve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fillmap/internal/cmd/application"
	"github.com/agentstation/fillmap/internal/server"
	"github.com/agentstation/fillmap/pkg/errors"
)

func TestParseConfig(t *testing.T) {
	defaults := server.DefaultConfig()
	defaults.Port = 9000
	defaults.CORSOrigins = []string{"https://a.example.com"}

	t.Run("unset flags keep configured values", func(t *testing.T) {
		cmd := NewCommand(&application.Mock{}, &defaults)
		require.NoError(t, cmd.ParseFlags(nil))

		cfg := parseConfig(cmd, &defaults)
		assert.Equal(t, 9000, cfg.Port)
		assert.Equal(t, []string{"https://a.example.com"}, cfg.CORSOrigins)
	})

	t.Run("set flags win", func(t *testing.T) {
		cmd := NewCommand(&application.Mock{}, &defaults)
		require.NoError(t, cmd.ParseFlags([]string{
			"--port", "3000",
			"--host", "0.0.0.0",
			"--cors=false",
			"--cors-origins", "https://b.example.com,https://c.example.com",
			"--write-timeout", "1m",
		}))

		cfg := parseConfig(cmd, &defaults)
		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, "0.0.0.0", cfg.Host)
		assert.False(t, cfg.CORSEnabled)
		assert.Equal(t, []string{"https://b.example.com", "https://c.example.com"}, cfg.CORSOrigins)
		assert.Equal(t, time.Minute, cfg.WriteTimeout)
		assert.Equal(t, "0.0.0.0:3000", cfg.Addr())
	})

	t.Run("nil defaults", func(t *testing.T) {
		cmd := NewCommand(&application.Mock{}, nil)
		require.NoError(t, cmd.ParseFlags(nil))
		assert.Equal(t, server.DefaultConfig().Port, parseConfig(cmd, nil).Port)
	})
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	defaults := server.DefaultConfig()
	cmd := NewCommand(&application.Mock{}, &defaults)
	cmd.SetArgs([]string{"--port", "0"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}
