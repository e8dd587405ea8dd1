package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/kataras/figma-structured-mcp/pkg/imager"
)

// Meta describes the export a report belongs to.
type Meta struct {
	FileKey    string
	NodeIDs    []string
	Format     imager.Format
	Scale      float64
	Quality    float64
	Children   bool
	Duration   time.Duration
	FinishedAt time.Time
}

// ToMarkdown transforms an export report into a markdown document: a summary table, the uploaded
// images with inline previews (raster formats only) and the failures with their reasons.
func ToMarkdown(report *imager.Report, meta Meta) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Figma Image Export - %s\n\n", meta.FileKey))
	if !meta.FinishedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Exported on %s.\n\n", meta.FinishedAt.UTC().Format(time.RFC1123)))
	}

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Setting | Value |\n")
	sb.WriteString("|---------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Nodes | `%s` |\n", strings.Join(meta.NodeIDs, ", ")))
	if meta.Format != "" {
		sb.WriteString(fmt.Sprintf("| Format | %s |\n", strings.ToUpper(string(meta.Format))))
	}
	if meta.Scale > 0 {
		sb.WriteString(fmt.Sprintf("| Scale | %gx |\n", meta.Scale))
	}
	if meta.Format.Raster() {
		sb.WriteString(fmt.Sprintf("| Compression quality | %g |\n", meta.Quality))
	}
	sb.WriteString(fmt.Sprintf("| Export children | %t |\n", meta.Children))
	sb.WriteString(fmt.Sprintf("| Uploaded | %d |\n", len(report.Successful)))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", len(report.Failed)))
	if meta.Duration > 0 {
		sb.WriteString(fmt.Sprintf("| Duration | %s |\n", meta.Duration.Round(time.Millisecond)))
	}
	sb.WriteString("\n")

	// Uploaded images
	if len(report.Successful) > 0 {
		sb.WriteString("## Uploaded Images\n\n")
		sb.WriteString("| Name | Node | URL |\n")
		sb.WriteString("|------|------|-----|\n")
		for _, img := range report.Successful {
			sb.WriteString(fmt.Sprintf("| %s | `%s` | %s |\n", escapeCell(img.Name), img.NodeID, img.URL))
		}
		sb.WriteString("\n")

		if meta.Format.Raster() {
			sb.WriteString("### Previews\n\n")
			for _, img := range report.Successful {
				sb.WriteString(fmt.Sprintf("#### %s\n\n![%s](%s)\n\n", img.Name, toKebabCase(img.Name), img.URL))
			}
		}
	}

	// Failures
	if len(report.Failed) > 0 {
		sb.WriteString("## Failed Images\n\n")
		sb.WriteString("| Name | Node | Error |\n")
		sb.WriteString("|------|------|-------|\n")
		for _, img := range report.Failed {
			sb.WriteString(fmt.Sprintf("| %s | `%s` | %s |\n", escapeCell(img.Name), img.NodeID, escapeCell(img.Error)))
		}
		sb.WriteString("\n")
	}

	if report.Total() == 0 {
		sb.WriteString("No images were exported.\n")
	}

	return sb.String()
}

// escapeCell keeps a value inside one markdown table cell.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// toKebabCase converts a string to kebab-case format (lowercase with hyphens), used for image alt text.
func toKebabCase(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, ".", "-")

	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '@' {
			result.WriteRune(r)
		}
	}

	return result.String()
}
