package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	figmamcp "github.com/kataras/figma-structured-mcp"
	"github.com/kataras/figma-structured-mcp/pkg/imager"
)

const toolGetFigmaImages = "get_figma_images"

func (s *Server) registerTools() {
	tool := mcp.NewTool(
		toolGetFigmaImages,
		mcp.WithTitleAnnotation("Export Figma Images"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
		mcp.WithDescription("Render Figma nodes as images, compress them, upload them to the configured storage "+
			"and return the public URL of every image. Failed images are listed with the reason; "+
			"the other images are still returned."),
		mcp.WithString(
			"file_key",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Figma file key, the part after /file/ or /design/ in the file URL. A full file URL is accepted too."),
		),
		mcp.WithString(
			"node_ids",
			mcp.Required(),
			mcp.Description(`Comma-separated node ids, e.g. "1:2,3:4". The URL form "1-2" is accepted.`),
		),
		mcp.WithString(
			"format",
			mcp.Enum(string(imager.FormatJPG), string(imager.FormatPNG), string(imager.FormatSVG), string(imager.FormatPDF)),
			mcp.DefaultString(figmamcp.DefaultFormat),
			mcp.Description("Image format."),
		),
		mcp.WithNumber(
			"scale",
			mcp.Min(imager.MinScale),
			mcp.Max(imager.MaxScale),
			mcp.DefaultNumber(figmamcp.DefaultScale),
			mcp.Description("Render scale; ignored for svg and pdf."),
		),
		mcp.WithNumber(
			"compression_quality",
			mcp.Min(imager.MinQuality),
			mcp.Max(imager.MaxQuality),
			mcp.DefaultNumber(figmamcp.DefaultCompressionQuality),
			mcp.Description("Compression quality for jpg and png, from 0.0 (smallest) to 1.0 (best)."),
		),
		mcp.WithBoolean(
			"export_children",
			mcp.DefaultBool(figmamcp.DefaultExportChildren),
			mcp.Description("Export the direct children of each node instead of the node itself. "+
				"Nodes without children are exported themselves."),
		),
	)

	s.mcpServer.AddTool(tool, s.handleGetFigmaImages)
}

func (s *Server) handleGetFigmaImages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fileKey, err := request.RequireString("file_key")
	if err != nil {
		return mcp.NewToolResultError("file_key is required"), nil
	}
	nodeIDs, err := request.RequireString("node_ids")
	if err != nil {
		return mcp.NewToolResultError("node_ids is required"), nil
	}

	p := figmamcp.DefaultParams()
	p.FileKey = fileKey
	p.NodeIDs = nodeIDs
	p.Format = request.GetString("format", p.Format)
	p.Scale = request.GetFloat("scale", p.Scale)
	p.CompressionQuality = request.GetFloat("compression_quality", p.CompressionQuality)
	p.ExportChildren = request.GetBool("export_children", p.ExportChildren)

	s.logger.Info("get_figma_images called",
		"file_key", p.FileKey,
		"node_ids", p.NodeIDs,
		"format", p.Format,
		"scale", p.Scale,
		"compression_quality", p.CompressionQuality,
		"export_children", p.ExportChildren,
	)

	report, err := s.exporter.Export(ctx, p)
	if err != nil {
		s.logger.Error("get_figma_images failed", "error", err)
		return mcp.NewToolResultError(toolErrorMessage(err)), nil
	}

	s.logger.Info("get_figma_images finished",
		"uploaded", len(report.Successful),
		"failed", len(report.Failed),
	)

	text, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}

	return mcp.NewToolResultStructured(report, string(text)), nil
}

func toolErrorMessage(err error) string {
	switch {
	case errors.Is(err, imager.ErrInvalidRequest):
		return err.Error()
	case errors.Is(err, imager.ErrUpstreamUnavailable):
		return "could not get images from Figma: " + err.Error()
	default:
		return "export failed: " + err.Error()
	}
}
