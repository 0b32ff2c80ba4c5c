package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/fillmap/pkg/logging"
)

func TestNew(t *testing.T) {
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prevLevel) })

	t.Run("defaults", func(t *testing.T) {
		cfg := logging.DefaultConfig()
		assert.Equal(t, "info", cfg.Level)
		assert.Equal(t, "auto", cfg.Format)
		assert.Equal(t, "stderr", cfg.Output)
		assert.False(t, cfg.AddCaller)
	})

	t.Run("file output is JSON with fields", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fillmap.log")
		logger := logging.New(logging.Config{
			Level:  "info",
			Format: "auto",
			Output: path,
			Fields: map[string]any{"service": "fillmap"},
		})
		logger.Info().Str("cell", "Q3!D2").Msg("mapping added")
		logger.Debug().Msg("below threshold")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"service":"fillmap"`)
		assert.Contains(t, string(data), `"cell":"Q3!D2"`)
		assert.NotContains(t, string(data), "below threshold")
	})

	t.Run("level names", func(t *testing.T) {
		assert.Equal(t, zerolog.DebugLevel, logging.ParseLevel("DEBUG"))
		assert.Equal(t, zerolog.WarnLevel, logging.ParseLevel("warning"))
		assert.Equal(t, zerolog.Disabled, logging.ParseLevel("off"))
		assert.Equal(t, zerolog.InfoLevel, logging.ParseLevel("loud"))
		assert.Equal(t, zerolog.InfoLevel, logging.ParseLevel(""))
	})
}

func TestSetDefault(t *testing.T) {
	prev := *logging.Default()
	t.Cleanup(func() { logging.SetDefault(prev) })

	rec := logging.NewRecorder(t)
	logging.SetDefault(*rec.Logger)
	logging.Default().Info().Msg("swapped")
	rec.Expect(t, "swapped")
}

func TestContextLoggers(t *testing.T) {
	assert.Equal(t, logging.Default(), logging.FromContext(context.Background()))

	rec := logging.NewRecorder(t)
	ctx := logging.WithLogger(context.Background(), rec.Logger)

	logging.Ctx(logging.WithRunID(ctx, "run-42")).Info().Msg("reloaded")
	logging.Ctx(logging.WithWindow(ctx, "pdf", "w-1")).Info().Msg("ready")

	rec.Expect(t, `"run_id":"run-42"`, `"role":"pdf"`, `"window_id":"w-1"`)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, logging.OrNop(nil))
	logger := zerolog.Nop()
	assert.Same(t, &logger, logging.OrNop(&logger))
}
