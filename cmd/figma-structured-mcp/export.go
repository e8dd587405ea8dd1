package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	figmamcp "github.com/kataras/figma-structured-mcp"
	"github.com/kataras/figma-structured-mcp/pkg/formatter"
)

var (
	exportFileKey  string
	exportURL      string
	exportNodeIDs  string
	exportFormat   string
	exportScale    float64
	exportQuality  float64
	exportChildren bool
	exportOutput   string
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export Figma nodes once and print the report",
		Long:  "Runs the same export as the get_figma_images tool from the terminal, using the configured storage.",
		RunE:  runExport,
	}

	cmd.Flags().StringVarP(&exportFileKey, "file-key", "k", "", "Figma file key")
	cmd.Flags().StringVarP(&exportURL, "url", "u", "", "Figma file URL (alternative to --file-key; its node-id is used when --node-ids is empty)")
	cmd.Flags().StringVarP(&exportNodeIDs, "node-ids", "n", "", "Comma-separated node IDs, e.g. \"1:2,3:4\"")
	cmd.Flags().StringVarP(&exportFormat, "format", "f", figmamcp.DefaultFormat, "Image format: jpg, png, svg, pdf")
	cmd.Flags().Float64VarP(&exportScale, "scale", "s", figmamcp.DefaultScale, "Render scale (0.01-4)")
	cmd.Flags().Float64VarP(&exportQuality, "quality", "q", figmamcp.DefaultCompressionQuality, "Compression quality for jpg and png (0-1)")
	cmd.Flags().BoolVar(&exportChildren, "export-children", figmamcp.DefaultExportChildren, "Export the direct children of each node")
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write the report to a .md or .json file")

	cmd.MarkFlagsOneRequired("file-key", "url")
	cmd.MarkFlagsMutuallyExclusive("file-key", "url")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	cyan := color.New(color.FgCyan)

	cyan.Println("\n🎨 Figma Image Export")
	cyan.Println("=====================")
	cyan.Println()

	p := figmamcp.Params{
		FileKey:            exportFileKey,
		NodeIDs:            exportNodeIDs,
		Format:             exportFormat,
		Scale:              exportScale,
		CompressionQuality: exportQuality,
		ExportChildren:     exportChildren,
	}
	if exportURL != "" {
		p.FileKey = exportURL
	}

	// Bad arguments are reported before any configuration is required.
	req, err := p.Request()
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	exporter, err := newExporter(cmd.Context(), cfg, &cliLogger{})
	if err != nil {
		return err
	}

	started := time.Now()
	report, err := exporter.Export(cmd.Context(), p)
	if err != nil {
		return err
	}
	elapsed := time.Since(started)

	cyan.Println("\n📊 Export Summary:")
	fmt.Printf("  • Uploaded: %d\n", len(report.Successful))
	fmt.Printf("  • Failed: %d\n", len(report.Failed))
	fmt.Printf("  • Duration: %s\n", elapsed.Round(time.Millisecond))

	for _, img := range report.Successful {
		green.Printf("  ✓ %s → %s\n", img.Name, img.URL)
	}
	for _, img := range report.Failed {
		red.Printf("  ✗ %s: %s\n", img.Name, img.Error)
	}

	if exportOutput == "" {
		fmt.Println()
		return nil
	}

	var data []byte
	switch strings.ToLower(filepath.Ext(exportOutput)) {
	case ".json":
		data, err = json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
	default:
		data = []byte(formatter.ToMarkdown(report, formatter.Meta{
			FileKey:    req.FileKey,
			NodeIDs:    req.NodeIDs,
			Format:     req.Format,
			Scale:      req.Scale,
			Quality:    req.Quality,
			Children:   req.ExportChildren,
			Duration:   elapsed,
			FinishedAt: time.Now(),
		}))
	}

	green.Printf("\n💾 Writing to %s... ", exportOutput)
	if err := os.WriteFile(exportOutput, data, 0644); err != nil {
		red.Printf("✗\n")
		return err
	}
	green.Println("✓")
	fmt.Println()

	return nil
}
