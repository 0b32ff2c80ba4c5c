package server

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/fillmap/pkg/constants"
	"github.com/agentstation/fillmap/pkg/errors"
)

// Config is the listener, routing and CORS setup of the review API.
type Config struct {
	Host string
	Port int

	// PathPrefix is mounted in front of every route except /health.
	PathPrefix string

	// An empty CORSOrigins list allows any origin.
	CORSEnabled bool
	CORSOrigins []string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig listens on localhost:8080 under /api/v1 with CORS open.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         8080,
		PathPrefix:   "/api/v1",
		CORSEnabled:  true,
		ReadTimeout:  constants.ReadTimeout,
		WriteTimeout: constants.WriteTimeout,
		IdleTimeout:  constants.IdleTimeout,
	}
}

// Validate rejects ports outside 1-65535, prefixes without a leading
// slash and negative timeouts.
func (c Config) Validate() error {
	switch {
	case c.Port < 1 || c.Port > 65535:
		return errors.NewValidationError("port", c.Port, "must be between 1 and 65535")
	case c.PathPrefix != "" && !strings.HasPrefix(c.PathPrefix, "/"):
		return errors.NewValidationError("prefix", c.PathPrefix, "must start with /")
	case c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0:
		return errors.NewValidationError("timeout", nil, "cannot be negative")
	}
	return nil
}

// Addr is host:port for net.Listen.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
