// Package imager turns Figma nodes into hosted images.
//
// A [Pipeline] resolves the nodes to export, asks the Figma render API for download links in one
// batched call, then fans out one task per image: download, recompress, upload. Each task ends in
// exactly one [Outcome]; the outcomes are partitioned into a [Report]. Per-image failures never
// abort the batch; only request validation and render-link transport failures do.
package imager

import (
	"context"
	"net/http"
	"time"

	"github.com/kataras/figma-structured-mcp/pkg/figma"
)

// Defaults used by DefaultConfig.
const (
	DefaultDownloadConcurrency = 5
	DefaultUploadConcurrency   = 3
	DefaultDownloadTimeout     = 120 * time.Second
	DefaultUploadTimeout       = 60 * time.Second
	DefaultBatchTimeout        = 5 * time.Minute
	DefaultDownloadRetries     = 2
	DefaultRetryBackoff        = time.Second

	// maxNodesPerRequest bounds the ids sent in one render request (URL length limit).
	maxNodesPerRequest = 100
)

// Logger receives progress messages. A nil Logger means silent operation.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NodeSource looks up nodes of a Figma file.
type NodeSource interface {
	GetFileNodes(ctx context.Context, fileKey string, nodeIDs []string, depth int) (*figma.NodesResponse, error)
}

// RenderSource asks Figma to render nodes and returns their download URLs.
type RenderSource interface {
	GetImages(ctx context.Context, fileKey string, nodeIDs []string, format string, scale float64) (*figma.ImagesResponse, error)
}

// FigmaAPI is the part of the Figma API the pipeline needs. *figma.Client implements it.
type FigmaAPI interface {
	NodeSource
	RenderSource
}

// Config tunes the pipeline limits and timeouts. Zero values fall back to the defaults, except
// DownloadRetries where zero disables retries; start from DefaultConfig to keep them.
type Config struct {
	DownloadConcurrency int
	UploadConcurrency   int
	DownloadTimeout     time.Duration
	UploadTimeout       time.Duration
	BatchTimeout        time.Duration
	DownloadRetries     int
	RetryBackoff        time.Duration

	// HTTPClient downloads render URLs. Nil selects a client without a global timeout;
	// DownloadTimeout bounds each request instead.
	HTTPClient *http.Client
}

// DefaultConfig returns the default pipeline settings.
func DefaultConfig() Config {
	return Config{
		DownloadConcurrency: DefaultDownloadConcurrency,
		UploadConcurrency:   DefaultUploadConcurrency,
		DownloadTimeout:     DefaultDownloadTimeout,
		UploadTimeout:       DefaultUploadTimeout,
		BatchTimeout:        DefaultBatchTimeout,
		DownloadRetries:     DefaultDownloadRetries,
		RetryBackoff:        DefaultRetryBackoff,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DownloadConcurrency <= 0 {
		c.DownloadConcurrency = d.DownloadConcurrency
	}
	if c.UploadConcurrency <= 0 {
		c.UploadConcurrency = d.UploadConcurrency
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = d.DownloadTimeout
	}
	if c.UploadTimeout <= 0 {
		c.UploadTimeout = d.UploadTimeout
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = d.BatchTimeout
	}
	if c.DownloadRetries < 0 {
		c.DownloadRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	return c
}

// nopLogger discards everything; it lets the components log unconditionally.
type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

func orNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
