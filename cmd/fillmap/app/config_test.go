package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// TestLoadConfig verifies defaults.
func TestLoadConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.Store != "memory" {
		t.Errorf("Store = %q, want memory", config.Store)
	}
	if config.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", config.Server.Port)
	}
	if config.Server.PathPrefix != "/api/v1" {
		t.Errorf("Server.PathPrefix = %q, want /api/v1", config.Server.PathPrefix)
	}
	if config.LogFormat == "" {
		t.Error("LogFormat not set to default")
	}
	if config.WorkbookCacheTTL <= 0 {
		t.Errorf("WorkbookCacheTTL = %v, want a positive default", config.WorkbookCacheTTL)
	}
}

// TestConfig_EnvironmentVariables verifies FILLMAP_ prefixed overrides.
func TestConfig_EnvironmentVariables(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FILLMAP_STORE", "sqlite:runs.db")
	t.Setenv("FILLMAP_RUNS_DIR", "/srv/runs")
	t.Setenv("FILLMAP_PORT", "9090")
	t.Setenv("FILLMAP_WORKBOOK_CACHE_TTL", "2m")
	t.Setenv("LOG_LEVEL", "debug")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.Store != "sqlite:runs.db" {
		t.Errorf("Store = %q, want sqlite:runs.db", config.Store)
	}
	if config.RunsDir != "/srv/runs" {
		t.Errorf("RunsDir = %q, want /srv/runs", config.RunsDir)
	}
	if config.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", config.Server.Port)
	}
	if config.WorkbookCacheTTL != 2*time.Minute {
		t.Errorf("WorkbookCacheTTL = %v, want 2m", config.WorkbookCacheTTL)
	}
	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", config.LogLevel)
	}
}

// TestConfig_DotEnv verifies .env loading without overriding set variables.
func TestConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("FILLMAP_PORT", "7070")

	env := "FILLMAP_TEMPLATES_DIR=/srv/templates\nFILLMAP_PORT=1111\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("FILLMAP_TEMPLATES_DIR") })

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if config.TemplatesDir != "/srv/templates" {
		t.Errorf("TemplatesDir = %q, want /srv/templates", config.TemplatesDir)
	}
	if config.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070 from the environment", config.Server.Port)
	}
}

// TestConfig_File verifies an explicit config file.
func TestConfig_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "fillmap.yaml")
	content := "store: sqlite:state/runs.db\nruns_dir: ./runs\nport: 3000\ncors_origins:\n  - https://review.example.com\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	v.Set("config", path)
	config, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig() failed: %v", err)
	}

	if config.Store != "sqlite:state/runs.db" {
		t.Errorf("Store = %q", config.Store)
	}
	if config.RunsDir != "./runs" {
		t.Errorf("RunsDir = %q", config.RunsDir)
	}
	if config.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", config.Server.Port)
	}
	if len(config.Server.CORSOrigins) != 1 || config.Server.CORSOrigins[0] != "https://review.example.com" {
		t.Errorf("Server.CORSOrigins = %v", config.Server.CORSOrigins)
	}
	if config.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", config.ConfigFile, path)
	}
}

// TestConfig_MissingFile verifies an explicit config file must exist.
func TestConfig_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	v := viper.New()
	v.Set("config", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := loadConfig(v); err == nil {
		t.Fatal("loadConfig() succeeded for a missing explicit file")
	}
}

// TestConfig_UpdateFromFlags verifies flag precedence.
func TestConfig_UpdateFromFlags(t *testing.T) {
	config := &Config{Format: "yaml", LogLevel: "warn"}

	config.UpdateFromFlags(true, false, true, "", "")
	if !config.Verbose || !config.NoColor {
		t.Error("bool flags not applied")
	}
	if config.Format != "yaml" || config.LogLevel != "warn" {
		t.Error("empty string flags must keep configured values")
	}

	config.UpdateFromFlags(false, false, false, "json", "trace")
	if config.Format != "json" || config.LogLevel != "trace" {
		t.Errorf("Format = %q, LogLevel = %q", config.Format, config.LogLevel)
	}
}
