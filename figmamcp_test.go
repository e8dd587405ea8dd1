package figmamcp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/kataras/figma-structured-mcp/pkg/imager"
	"github.com/kataras/figma-structured-mcp/pkg/storage"
)

func TestParseNodeIDs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"1:2", []string{"1:2"}},
		{"1:2, 3-4 ,,5:6", []string{"1:2", "3-4", "5:6"}},
		{"", []string{}},
		{" , ", []string{}},
	}

	for _, tt := range tests {
		if got := ParseNodeIDs(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseNodeIDs(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParamsRequest(t *testing.T) {
	p := DefaultParams()
	p.FileKey = "ABC123"
	p.NodeIDs = "1-2, 3:4, 1:2"
	p.Format = "JPEG"

	req, err := p.Request()
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	want := imager.Request{
		FileKey:        "ABC123",
		NodeIDs:        []string{"1:2", "3:4"},
		Format:         imager.FormatJPG,
		Scale:          1,
		Quality:        0.85,
		ExportChildren: true,
	}
	if !reflect.DeepEqual(req, want) {
		t.Errorf("Request() = %+v, want %+v", req, want)
	}
}

func TestParamsRequestFromURL(t *testing.T) {
	p := DefaultParams()
	p.FileKey = "https://www.figma.com/design/ABC123/Landing?node-id=10-20"

	req, err := p.Request()
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if req.FileKey != "ABC123" || !reflect.DeepEqual(req.NodeIDs, []string{"10:20"}) {
		t.Errorf("Request() = %+v", req)
	}

	p.FileKey = "https://example.com/not-figma"
	if _, err := p.Request(); !errors.Is(err, imager.ErrInvalidRequest) {
		t.Errorf("Request() error = %v, want ErrInvalidRequest", err)
	}
}

func TestParamsRequestInvalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{"no node ids", func(p *Params) { p.NodeIDs = " , " }},
		{"bad format", func(p *Params) { p.Format = "gif" }},
		{"bad scale", func(p *Params) { p.Scale = 5 }},
		{"bad quality", func(p *Params) { p.CompressionQuality = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			p.FileKey = "ABC123"
			p.NodeIDs = "1:2"
			tt.modify(&p)

			if _, err := p.Request(); !errors.Is(err, imager.ErrInvalidRequest) {
				t.Errorf("Request() error = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Fatal("New() without token succeeded")
	}
}

func TestExporterEndToEnd(t *testing.T) {
	var cdnURL string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/ABC123/nodes":
			w.Write([]byte(`{"nodes":{"1:2":{"document":{"id":"1:2","name":"Readme","type":"FRAME"}}}}`))
		case "/images/ABC123":
			w.Write([]byte(`{"err":null,"images":{"1:2":"` + cdnURL + `/readme.svg"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer api.Close()

	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`))
	}))
	defer cdn.Close()
	cdnURL = cdn.URL

	exp, err := New(context.Background(), Options{
		AccessToken: "token",
		BaseURL:     api.URL,
		RateLimit:   -1,
		Storage: storage.Config{
			Provider: storage.ProviderLocal,
			Local:    storage.LocalConfig{Dir: t.TempDir(), PublicBaseURL: "https://static.example.com"},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	p := DefaultParams()
	p.FileKey = "ABC123"
	p.NodeIDs = "1:2"
	p.Format = "svg"

	report, err := exp.Export(context.Background(), p)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(report.Failed) != 0 || len(report.Successful) != 1 {
		t.Fatalf("Export() report = %+v", report)
	}
	if got := report.Successful[0].URL; got != "https://static.example.com/readme.svg" {
		t.Errorf("URL = %q", got)
	}
}
