package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/fillmap/internal/server"
	"github.com/agentstation/fillmap/pkg/constants"
	"github.com/agentstation/fillmap/pkg/errors"
)

// EnvPrefix prefixes environment overrides of config keys, e.g. FILLMAP_STORE.
const EnvPrefix = "FILLMAP"

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Run data
	Store            string
	RunsDir          string
	TemplatesDir     string
	WorkbookCacheTTL time.Duration

	// Server
	Server server.Config

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.fillmap.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	return loadConfig(viper.New())
}

func loadConfig(v *viper.Viper) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults(v)

	configFile := v.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".fillmap")
	}

	// A missing default config file is fine; an explicit one must load.
	if err := v.ReadInConfig(); err != nil && configFile != "" {
		return nil, errors.NewConfigError("config", "cannot read "+configFile, err)
	}

	srv := server.DefaultConfig()
	srv.Host = v.GetString("host")
	srv.Port = v.GetInt("port")
	srv.PathPrefix = v.GetString("prefix")
	srv.CORSEnabled = v.GetBool("cors")
	srv.CORSOrigins = v.GetStringSlice("cors_origins")

	config := &Config{
		Verbose:    v.GetBool("verbose"),
		Quiet:      v.GetBool("quiet"),
		NoColor:    v.GetBool("no-color"),
		Format:     v.GetString("format"),
		ConfigFile: v.ConfigFileUsed(),

		Store:            v.GetString("store"),
		RunsDir:          v.GetString("runs_dir"),
		TemplatesDir:     v.GetString("templates_dir"),
		WorkbookCacheTTL: v.GetDuration("workbook_cache_ttl"),

		Server: srv,

		LogLevel:  firstNonEmpty(v.GetString("log_level"), os.Getenv("LOG_LEVEL")),
		LogFormat: firstNonEmpty(v.GetString("log_format"), os.Getenv("LOG_FORMAT"), "auto"),
		LogOutput: firstNonEmpty(v.GetString("log_output"), os.Getenv("LOG_OUTPUT"), "stderr"),
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	def := server.DefaultConfig()
	v.SetDefault("store", "memory")
	v.SetDefault("workbook_cache_ttl", constants.WorkbookCacheTTL)
	v.SetDefault("host", def.Host)
	v.SetDefault("port", def.Port)
	v.SetDefault("prefix", def.PathPrefix)
	v.SetDefault("cors", def.CORSEnabled)
	v.SetDefault("cors_origins", []string{})
}

// reloadConfig loads path in place of the startup configuration. The
// Config pointer is kept because command flags are bound to its fields.
func (a *App) reloadConfig(path string) error {
	v := viper.New()
	v.Set("config", path)
	config, err := loadConfig(v)
	if err != nil {
		return err
	}
	*a.config = *config
	return nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		// godotenv.Load never overrides variables that are already set,
		// so the more specific file goes first.
		_ = godotenv.Load(envFile)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
