package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9190, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Observability.EnableTelemetry)
	assert.Equal(t, "optimd", cfg.Observability.ServiceName)
	assert.Equal(t, 10, cfg.Optimizer.MaxRecentMessages)
	assert.Equal(t, 100, cfg.Store.MaxCacheMB)
	assert.Equal(t, 10, cfg.Store.MaxFileMB)
	assert.Equal(t, time.Hour, cfg.Store.SweepInterval)
	assert.Equal(t, 24*time.Hour, cfg.Store.MaxEntryAge)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  http_port: 8080

store:
  max_cache_mb: 50
  sweep_interval: 30m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Store.MaxCacheMB)
	assert.Equal(t, 30*time.Minute, cfg.Store.SweepInterval)
	// Untouched sections keep defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Store.MaxFileMB)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9190, cfg.Server.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 8080\n"), 0o600))

	t.Setenv("SERVER_HTTP_PORT", "7070")
	t.Setenv("LOGGING_LEVEL", "debug")
	t.Setenv("STORE_MAX_ENTRY_AGE", "12h")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 12*time.Hour, cfg.Store.MaxEntryAge)
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SERVER_HTTP_PORT", "server.http_port"},
		{"STORE_MAX_CACHE_MB", "store.max_cache_mb"},
		{"LOGGING_LEVEL", "logging.level"},
		{"OBSERVABILITY_ENABLE_TELEMETRY", "observability.enable_telemetry"},
		{"NOSECTION", "nosection"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, envTransform(tt.in), tt.in)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"zero shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"telemetry without endpoint", func(c *Config) {
			c.Observability.EnableTelemetry = true
			c.Observability.OTLPEndpoint = ""
		}},
		{"zero recent messages", func(c *Config) { c.Optimizer.MaxRecentMessages = 0 }},
		{"zero cache size", func(c *Config) { c.Store.MaxCacheMB = 0 }},
		{"file larger than cache", func(c *Config) { c.Store.MaxFileMB = 200 }},
		{"zero sweep interval", func(c *Config) { c.Store.SweepInterval = 0 }},
		{"zero entry age", func(c *Config) { c.Store.MaxEntryAge = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	big := make([]byte, maxConfigFileSize+1)
	require.NoError(t, os.WriteFile(path, big, 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
