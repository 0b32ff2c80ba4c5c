// Package logging wires zerolog for fillmap.
//
// The process logger lives behind Default and SetDefault. Request and run
// scoped loggers travel on a context.Context:
//
//	ctx = logging.WithRunID(ctx, run.ID)
//	logging.Ctx(ctx).Info().Str("cell", "Q3!D2").Msg("Mapping added")
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agentstation/fillmap/pkg/constants"
)

var current atomic.Pointer[zerolog.Logger]

func init() {
	l := New(Config{Level: os.Getenv("LOG_LEVEL"), Format: os.Getenv("LOG_FORMAT")})
	current.Store(&l)
}

// Config selects the level, encoding and destination of a logger.
type Config struct {
	Level  string // trace, debug, info, warn, error, off
	Format string // json, console or auto (console on a terminal)
	Output string // stderr, stdout, discard or a file path

	NoColor   bool
	AddCaller bool

	// Fields are attached to every event.
	Fields map[string]any
}

// DefaultConfig is info level, auto format, written to stderr.
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Format:  "auto",
		Output:  "stderr",
		NoColor: os.Getenv("NO_COLOR") != "",
	}
}

// New builds a logger from cfg. It also moves zerolog's global level so
// library code logging through log.Logger follows the same threshold.
func New(cfg Config) zerolog.Logger {
	level := ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	lc := zerolog.New(writer(cfg)).Level(level).With().Timestamp()
	if cfg.AddCaller || level <= zerolog.DebugLevel {
		lc = lc.Caller()
	}
	for k, v := range cfg.Fields {
		lc = lc.Interface(k, v)
	}
	return lc.Logger()
}

// Default returns the process logger.
func Default() *zerolog.Logger {
	return current.Load()
}

// SetDefault replaces the process logger and zerolog's global log.Logger.
func SetDefault(logger zerolog.Logger) {
	current.Store(&logger)
	log.Logger = logger
}

// OrNop returns logger, or a discarding logger when it is nil.
func OrNop(logger *zerolog.Logger) *zerolog.Logger {
	if logger != nil {
		return logger
	}
	nop := zerolog.Nop()
	return &nop
}

// ParseLevel maps a level name to a zerolog level. Unknown names are info.
func ParseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "":
		return zerolog.InfoLevel
	case "warning":
		return zerolog.WarnLevel
	case "off", "none", "disabled":
		return zerolog.Disabled
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}

func writer(cfg Config) io.Writer {
	var (
		out  io.Writer
		file *os.File
	)
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		file, out = os.Stderr, os.Stderr
	case "stdout":
		file, out = os.Stdout, os.Stdout
	case "discard", "none":
		out = io.Discard
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
		if err != nil {
			file, out = os.Stderr, os.Stderr
		} else {
			out = f
		}
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return out
	case "console", "pretty":
	default:
		if file == nil || !isatty.IsTerminal(file.Fd()) && !isatty.IsCygwinTerminal(file.Fd()) {
			return out
		}
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: cfg.NoColor}
}
