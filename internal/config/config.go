// Package config provides configuration loading for optimd.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// defaultYAML holds the built-in defaults, loaded before any file or
// environment override.
const defaultYAML = `
server:
  host: "0.0.0.0"
  http_port: 9190
  shutdown_timeout: 10s

logging:
  level: "info"
  format: "json"

observability:
  enable_telemetry: false
  service_name: "optimd"
  otlp_endpoint: "localhost:4318"
  otlp_insecure: true

optimizer:
  max_recent_messages: 10

store:
  max_cache_mb: 100
  max_file_mb: 10
  sweep_interval: 1h
  max_entry_age: 24h
`

// Config holds the complete optimd configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Logging       LoggingConfig       `koanf:"logging"`
	Observability ObservabilityConfig `koanf:"observability"`
	Optimizer     OptimizerConfig     `koanf:"optimizer"`
	Store         StoreConfig         `koanf:"store"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	OTLPEndpoint    string `koanf:"otlp_endpoint"`
	OTLPInsecure    bool   `koanf:"otlp_insecure"`
}

// OptimizerConfig holds optimization tuning knobs.
type OptimizerConfig struct {
	MaxRecentMessages int `koanf:"max_recent_messages"`
}

// StoreConfig holds content store limits and maintenance intervals.
type StoreConfig struct {
	MaxCacheMB    int           `koanf:"max_cache_mb"`
	MaxFileMB     int           `koanf:"max_file_mb"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
	MaxEntryAge   time.Duration `koanf:"max_entry_age"`
}

// Load loads configuration from defaults, an optional YAML file, and
// environment variables, in ascending precedence.
//
// Environment variables use underscore separators and map onto YAML fields
// by splitting on the first underscore:
//
//	SERVER_HTTP_PORT       -> server.http_port
//	STORE_MAX_CACHE_MB     -> store.max_cache_mb
//	LOGGING_LEVEL          -> logging.level
//
// An empty configPath skips the file layer entirely.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaultYAML)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load default config: %w", err)
	}

	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// readConfigFile returns the file contents, or nil if the file does not
// exist. The file is read through a single descriptor so the size check and
// the read see the same file.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return content, nil
}

// envTransform maps SECTION_FIELD_NAME onto section.field_name. The split
// happens on the first underscore only, underscores inside field names are
// kept.
func envTransform(s string) string {
	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}

	if c.Observability.EnableTelemetry {
		if c.Observability.ServiceName == "" {
			return errors.New("service name required when telemetry is enabled")
		}
		if c.Observability.OTLPEndpoint == "" {
			return errors.New("otlp endpoint required when telemetry is enabled")
		}
	}

	if c.Optimizer.MaxRecentMessages < 1 {
		return errors.New("max recent messages must be at least 1")
	}

	if c.Store.MaxCacheMB < 1 {
		return errors.New("max cache size must be at least 1 MB")
	}
	if c.Store.MaxFileMB < 1 {
		return errors.New("max file size must be at least 1 MB")
	}
	if c.Store.MaxFileMB > c.Store.MaxCacheMB {
		return errors.New("max file size cannot exceed max cache size")
	}
	if c.Store.SweepInterval <= 0 {
		return errors.New("sweep interval must be positive")
	}
	if c.Store.MaxEntryAge <= 0 {
		return errors.New("max entry age must be positive")
	}
	return nil
}
