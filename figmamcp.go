package figmamcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/kataras/figma-structured-mcp/pkg/figma"
	"github.com/kataras/figma-structured-mcp/pkg/imager"
	"github.com/kataras/figma-structured-mcp/pkg/storage"
)

// Version is the release of the module, reported by the CLI and the MCP server.
const Version = "0.3.0"

// Logger receives progress messages. A nil Logger means silent operation.
type Logger = imager.Logger

// Params are the arguments of one export, as accepted by the get_figma_images tool.
type Params struct {
	// FileKey is the Figma file key. A figma.com file URL is accepted too; its node-id is used
	// when NodeIDs is empty.
	FileKey string `json:"file_key"`
	// NodeIDs is a comma-separated list such as "1:2,3-4".
	NodeIDs            string  `json:"node_ids"`
	Format             string  `json:"format"`
	Scale              float64 `json:"scale"`
	CompressionQuality float64 `json:"compression_quality"`
	ExportChildren     bool    `json:"export_children"`
}

// Parameter defaults.
const (
	DefaultFormat             = "png"
	DefaultScale              = 1.0
	DefaultCompressionQuality = 0.85
	DefaultExportChildren     = true
)

// DefaultParams returns Params with every optional field at its default.
func DefaultParams() Params {
	return Params{
		Format:             DefaultFormat,
		Scale:              DefaultScale,
		CompressionQuality: DefaultCompressionQuality,
		ExportChildren:     DefaultExportChildren,
	}
}

// Request converts the parameters into a validated pipeline request.
func (p Params) Request() (imager.Request, error) {
	fileKey := strings.TrimSpace(p.FileKey)
	nodeIDs := ParseNodeIDs(p.NodeIDs)

	if strings.HasPrefix(fileKey, "http://") || strings.HasPrefix(fileKey, "https://") {
		key, err := figma.ExtractFileKey(fileKey)
		if err != nil {
			return imager.Request{}, fmt.Errorf("%w: %w", imager.ErrInvalidRequest, err)
		}
		if len(nodeIDs) == 0 {
			nodeIDs, _ = figma.ExtractNodeIDs(fileKey)
		}
		fileKey = key
	}

	format, err := imager.ParseFormat(p.Format)
	if err != nil {
		return imager.Request{}, err
	}

	return imager.Request{
		FileKey:        fileKey,
		NodeIDs:        nodeIDs,
		Format:         format,
		Scale:          p.Scale,
		Quality:        p.CompressionQuality,
		ExportChildren: p.ExportChildren,
	}.Normalize()
}

// ParseNodeIDs parses a comma-separated string of node IDs and returns a slice.
func ParseNodeIDs(nodeIDsStr string) []string {
	parts := strings.Split(nodeIDsStr, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Options configures an Exporter.
type Options struct {
	AccessToken string
	OAuth       bool   // send AccessToken as an OAuth bearer token
	BaseURL     string // Figma API root, empty = figma.DefaultBaseURL
	RateLimit   float64

	// Storage selects the upload backend. Ignored when Backend is set.
	Storage storage.Config
	Backend storage.Backend

	Pipeline imager.Config // zero value = imager.DefaultConfig()
	Logger   Logger        // nil = no logging
}

// Exporter runs exports against one Figma account and one storage backend.
type Exporter struct {
	pipeline *imager.Pipeline
}

// New creates the Figma client, the storage backend and the pipeline.
func New(ctx context.Context, opts Options) (*Exporter, error) {
	if strings.TrimSpace(opts.AccessToken) == "" {
		return nil, fmt.Errorf("figma access token is required (FIGMA_ACCESS_TOKEN)")
	}

	clientOpts := []figma.Option{figma.WithOAuth(opts.OAuth)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, figma.WithBaseURL(opts.BaseURL))
	}
	if opts.RateLimit != 0 {
		clientOpts = append(clientOpts, figma.WithRateLimit(opts.RateLimit))
	}
	client := figma.NewClient(opts.AccessToken, clientOpts...)

	backend := opts.Backend
	if backend == nil {
		var err error
		backend, err = storage.New(ctx, opts.Storage)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
	}

	return NewWithAPI(client, backend, opts.Pipeline, opts.Logger), nil
}

// NewWithAPI wires an Exporter from already constructed dependencies.
func NewWithAPI(api imager.FigmaAPI, backend storage.Backend, cfg imager.Config, logger Logger) *Exporter {
	if cfg == (imager.Config{}) {
		cfg = imager.DefaultConfig()
	}
	return &Exporter{pipeline: imager.New(api, backend, cfg, logger)}
}

// Export validates p and runs one batch.
func (e *Exporter) Export(ctx context.Context, p Params) (*imager.Report, error) {
	req, err := p.Request()
	if err != nil {
		return nil, err
	}
	return e.pipeline.Run(ctx, req)
}
