package imager

import (
	"math"
	"strings"

	"github.com/kataras/figma-structured-mcp/pkg/figma"
)

// Format is an export format supported by the Figma render API.
type Format string

// Supported formats.
const (
	FormatJPG Format = "jpg"
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
	FormatPDF Format = "pdf"
)

// Request limits.
const (
	MinScale   = 0.01
	MaxScale   = 4.0
	MinQuality = 0.0
	MaxQuality = 1.0
)

// ParseFormat converts a user supplied format name. "jpeg" is accepted as an alias of "jpg".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJPG, FormatPNG, FormatSVG, FormatPDF:
		return f, nil
	case "jpeg":
		return FormatJPG, nil
	default:
		return "", invalidRequest("invalid image format %q (must be jpg, png, svg, or pdf)", s)
	}
}

// Raster reports whether the format is a bitmap format that gets recompressed.
func (f Format) Raster() bool {
	return f == FormatJPG || f == FormatPNG
}

// Request is one call to the exporter: which nodes of which file, in which format.
type Request struct {
	FileKey        string
	NodeIDs        []string
	Format         Format
	Scale          float64
	Quality        float64
	ExportChildren bool
}

// Normalize validates the request and returns a copy whose node IDs are in API form
// ("1:2") with duplicates removed, first occurrence kept. Every failure wraps
// ErrInvalidRequest. No network access happens here.
func (r Request) Normalize() (Request, error) {
	r.FileKey = strings.TrimSpace(r.FileKey)
	if r.FileKey == "" {
		return r, invalidRequest("file key is required")
	}

	if _, err := ParseFormat(string(r.Format)); err != nil {
		return r, err
	}
	r.Format, _ = ParseFormat(string(r.Format))

	if math.IsNaN(r.Scale) || r.Scale < MinScale || r.Scale > MaxScale {
		return r, invalidRequest("scale %g out of range [%g, %g]", r.Scale, MinScale, MaxScale)
	}
	if math.IsNaN(r.Quality) || r.Quality < MinQuality || r.Quality > MaxQuality {
		return r, invalidRequest("compression quality %g out of range [%g, %g]", r.Quality, MinQuality, MaxQuality)
	}

	if len(r.NodeIDs) == 0 {
		return r, invalidRequest("at least one node id is required")
	}

	seen := make(map[string]bool, len(r.NodeIDs))
	ids := make([]string, 0, len(r.NodeIDs))
	for _, raw := range r.NodeIDs {
		id := figma.NormalizeNodeID(raw)
		if !figma.IsValidNodeID(id) {
			return r, invalidRequest("malformed node id %q (expected a form like 1:2 or 1-2)", raw)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	r.NodeIDs = ids

	return r, nil
}

// renderScale is the scale sent to Figma. Vector formats are always rendered at 1.
func (r Request) renderScale() float64 {
	if r.Format.Raster() {
		return r.Scale
	}
	return 1
}
