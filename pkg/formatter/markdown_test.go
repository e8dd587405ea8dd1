package formatter

import (
	"strings"
	"testing"
	"time"

	"github.com/kataras/figma-structured-mcp/pkg/imager"
)

func TestToMarkdown(t *testing.T) {
	report := imager.NewReport([]imager.Outcome{
		imager.Uploaded(imager.Target{NodeID: "2:1", Name: "logo@2x.png"}, "https://cdn.example.com/logo@2x.png"),
		imager.Failed(imager.Target{NodeID: "2:2", Name: "hero@2x.png"}, &imager.Error{Kind: imager.ErrUploadFailed, Reason: "quota | exceeded"}),
	})

	md := ToMarkdown(report, Meta{
		FileKey:  "ABC123",
		NodeIDs:  []string{"1:2"},
		Format:   imager.FormatPNG,
		Scale:    2,
		Quality:  0.85,
		Children: true,
		Duration: 1500 * time.Millisecond,
	})

	for _, want := range []string{
		"# Figma Image Export - ABC123",
		"| Format | PNG |",
		"| Scale | 2x |",
		"| Compression quality | 0.85 |",
		"| Uploaded | 1 |",
		"| Failed | 1 |",
		"| Duration | 1.5s |",
		"| logo@2x.png | `2:1` | https://cdn.example.com/logo@2x.png |",
		"![logo@2x-png](https://cdn.example.com/logo@2x.png)",
		`| hero@2x.png | ` + "`2:2`" + ` | upload failed: quota \| exceeded |`,
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown is missing %q\n%s", want, md)
		}
	}
}

func TestToMarkdownVectorHasNoPreviews(t *testing.T) {
	report := imager.NewReport([]imager.Outcome{
		imager.Uploaded(imager.Target{NodeID: "2:1", Name: "logo.svg"}, "https://cdn.example.com/logo.svg"),
	})

	md := ToMarkdown(report, Meta{FileKey: "K", Format: imager.FormatSVG})
	if strings.Contains(md, "### Previews") {
		t.Error("svg export should not render previews")
	}
	if strings.Contains(md, "Compression quality") {
		t.Error("svg export should not list a compression quality")
	}
}

func TestToMarkdownEmpty(t *testing.T) {
	md := ToMarkdown(imager.NewReport(nil), Meta{FileKey: "K"})
	if !strings.Contains(md, "No images were exported.") {
		t.Errorf("unexpected markdown:\n%s", md)
	}
}

func TestToKebabCase(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Hero Banner", "hero-banner"},
		{"logo@2x.png", "logo@2x-png"},
		{"snake_case", "snake-case"},
	}
	for _, tt := range tests {
		if got := toKebabCase(tt.in); got != tt.want {
			t.Errorf("toKebabCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
