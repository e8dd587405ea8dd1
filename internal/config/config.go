// Package config loads the server configuration from defaults, an optional YAML file, a .env file
// and the environment, in increasing order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/kataras/figma-structured-mcp/pkg/imager"
	"github.com/kataras/figma-structured-mcp/pkg/storage"
)

// Config is the complete configuration of the server and the CLI.
type Config struct {
	Figma    FigmaConfig    `mapstructure:"figma"`
	Storage  storage.Config `mapstructure:"storage"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// FigmaConfig holds the Figma API credentials and client settings.
type FigmaConfig struct {
	AccessToken string  `mapstructure:"access_token"`
	OAuth       bool    `mapstructure:"oauth"`
	BaseURL     string  `mapstructure:"base_url"`
	RateLimit   float64 `mapstructure:"rate_limit"`
}

// PipelineConfig holds the export limits and timeouts.
type PipelineConfig struct {
	DownloadConcurrency int           `mapstructure:"download_concurrency"`
	UploadConcurrency   int           `mapstructure:"upload_concurrency"`
	DownloadTimeout     time.Duration `mapstructure:"download_timeout"`
	UploadTimeout       time.Duration `mapstructure:"upload_timeout"`
	BatchTimeout        time.Duration `mapstructure:"batch_timeout"`
	DownloadRetries     int           `mapstructure:"download_retries"`
}

// ServerConfig selects the MCP transport.
type ServerConfig struct {
	Mode            string        `mapstructure:"mode"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig configures the log handlers. An empty File disables the log file.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Normalize lowercases and trims the enumerated fields. Load calls it; call it again after
// overriding fields from another source such as command line flags.
func (c *Config) Normalize() {
	c.Storage.Provider = strings.ToLower(strings.TrimSpace(c.Storage.Provider))
	c.Server.Mode = strings.ToLower(strings.TrimSpace(c.Server.Mode))
}

// ImagerConfig converts the pipeline section into imager settings.
func (c PipelineConfig) ImagerConfig() imager.Config {
	cfg := imager.DefaultConfig()
	cfg.DownloadConcurrency = c.DownloadConcurrency
	cfg.UploadConcurrency = c.UploadConcurrency
	cfg.DownloadTimeout = c.DownloadTimeout
	cfg.UploadTimeout = c.UploadTimeout
	cfg.BatchTimeout = c.BatchTimeout
	cfg.DownloadRetries = c.DownloadRetries
	return cfg
}

// ListenPort returns the configured port, or the default port of the transport when unset.
func (c ServerConfig) ListenPort() int {
	if c.Port > 0 {
		return c.Port
	}
	if c.Mode == ModeSSE {
		return DefaultSSEPort
	}
	return DefaultHTTPPort
}
