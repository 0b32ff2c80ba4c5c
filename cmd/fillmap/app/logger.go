package app

import (
	"fmt"
	"os"
	"slices"

	"github.com/rs/zerolog"

	"github.com/agentstation/fillmap/pkg/logging"
)

var logLevels = []string{"trace", "debug", "info", "warn", "error"}

// NewLogger builds the CLI logger from config. An explicit log level,
// from --log-level or the log_level key, beats -q, and -q beats -v.
func NewLogger(config *Config) zerolog.Logger {
	level, warning := resolveLogLevel(config)
	if warning != "" {
		fmt.Fprintln(os.Stderr, "Warning: "+warning)
	}
	return logging.New(logging.Config{
		Level:     level,
		Format:    config.LogFormat,
		Output:    config.LogOutput,
		NoColor:   config.NoColor,
		AddCaller: level == "debug" || level == "trace",
	})
}

// resolveLogLevel returns the effective level and a warning for the user
// when the flags conflict or the level is unknown.
func resolveLogLevel(config *Config) (level, warning string) {
	if config.Verbose && config.Quiet {
		warning = "both --verbose and --quiet specified, using --quiet"
	}
	switch {
	case config.LogLevel != "":
		if slices.Contains(logLevels, config.LogLevel) {
			return config.LogLevel, warning
		}
		return "info", fmt.Sprintf("invalid log level %q, using \"info\"", config.LogLevel)
	case config.Quiet:
		return "warn", warning
	case config.Verbose:
		return "debug", warning
	}
	return "info", warning
}
