package config

import (
	"time"

	"github.com/kataras/figma-structured-mcp/pkg/figma"
	"github.com/kataras/figma-structured-mcp/pkg/imager"
	"github.com/kataras/figma-structured-mcp/pkg/storage"
)

// Transport modes.
const (
	ModeStdio = "stdio"
	ModeHTTP  = "http"
	ModeSSE   = "sse"
)

// Default values.
const (
	DefaultMode            = ModeStdio
	DefaultHost            = "0.0.0.0"
	DefaultHTTPPort        = 8000
	DefaultSSEPort         = 8001
	DefaultShutdownTimeout = 10 * time.Second

	DefaultLogLevel      = "info"
	DefaultLogFile       = ""
	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 28

	DefaultStorageProvider = storage.ProviderCustom
	DefaultLocalDir        = "figma-images"
)

// NewDefaultConfig returns the configuration used when nothing is set.
func NewDefaultConfig() Config {
	p := imager.DefaultConfig()
	return Config{
		Figma: FigmaConfig{
			BaseURL:   figma.DefaultBaseURL,
			RateLimit: figma.DefaultRateLimit,
		},
		Storage: storage.Config{
			Provider: DefaultStorageProvider,
			Local:    storage.LocalConfig{Dir: DefaultLocalDir},
		},
		Pipeline: PipelineConfig{
			DownloadConcurrency: p.DownloadConcurrency,
			UploadConcurrency:   p.UploadConcurrency,
			DownloadTimeout:     p.DownloadTimeout,
			UploadTimeout:       p.UploadTimeout,
			BatchTimeout:        p.BatchTimeout,
			DownloadRetries:     p.DownloadRetries,
		},
		Server: ServerConfig{
			Mode:            DefaultMode,
			Host:            DefaultHost,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			File:       DefaultLogFile,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
		},
	}
}
