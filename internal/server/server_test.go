package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	figmamcp "github.com/kataras/figma-structured-mcp"
	"github.com/kataras/figma-structured-mcp/internal/config"
	"github.com/kataras/figma-structured-mcp/pkg/imager"
)

type fakeExporter struct {
	mu     sync.Mutex
	got    []figmamcp.Params
	report *imager.Report
	err    error
}

func (f *fakeExporter) Export(_ context.Context, p figmamcp.Params) (*imager.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, p)
	if f.err != nil {
		return nil, f.err
	}
	if _, err := p.Request(); err != nil {
		return nil, err
	}
	return f.report, nil
}

func sampleReport() *imager.Report {
	return imager.NewReport([]imager.Outcome{
		imager.Uploaded(imager.Target{NodeID: "2:1", Name: "logo.png"}, "https://cdn.example.com/logo.png"),
		imager.Failed(imager.Target{NodeID: "2:2", Name: "hero.png"}, &imager.Error{Kind: imager.ErrTimeout, NodeID: "2:2"}),
	})
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolGetFigmaImages,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, r.Content)
	text, ok := r.Content[0].(mcp.TextContent)
	require.True(t, ok, "content type %T", r.Content[0])
	return text.Text
}

func TestToolRegistered(t *testing.T) {
	s := New(&fakeExporter{}, DefaultConfig(), nil)

	tools := s.mcpServer.ListTools()
	require.Contains(t, tools, toolGetFigmaImages)

	schema := tools[toolGetFigmaImages].Tool.InputSchema
	assert.ElementsMatch(t, []string{"file_key", "node_ids"}, schema.Required)
	for _, name := range []string{"file_key", "node_ids", "format", "scale", "compression_quality", "export_children"} {
		assert.Contains(t, schema.Properties, name)
	}

	format, ok := schema.Properties["format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"jpg", "png", "svg", "pdf"}, format["enum"])
	assert.Equal(t, figmamcp.DefaultFormat, format["default"])

	scale, ok := schema.Properties["scale"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, imager.MinScale, scale["minimum"])
	assert.Equal(t, imager.MaxScale, scale["maximum"])

	raw, err := json.Marshal(tools[toolGetFigmaImages].Tool)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"name":"get_figma_images"`)
}

func TestHandleGetFigmaImagesDefaults(t *testing.T) {
	exp := &fakeExporter{report: sampleReport()}
	s := New(exp, DefaultConfig(), nil)

	result, err := s.handleGetFigmaImages(context.Background(), callRequest(map[string]any{
		"file_key": "ABC123",
		"node_ids": "1:2",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	require.Len(t, exp.got, 1)
	want := figmamcp.DefaultParams()
	want.FileKey = "ABC123"
	want.NodeIDs = "1:2"
	assert.Equal(t, want, exp.got[0])

	report, ok := result.StructuredContent.(*imager.Report)
	require.True(t, ok, "structured content type %T", result.StructuredContent)
	assert.Len(t, report.Successful, 1)
	assert.Len(t, report.Failed, 1)

	assert.JSONEq(t, `{
		"successful_uploads":[{"name":"logo.png","url":"https://cdn.example.com/logo.png","node_id":"2:1"}],
		"failed_uploads":[{"name":"hero.png","error":"timeout","node_id":"2:2"}]
	}`, resultText(t, result))
}

func TestHandleGetFigmaImagesArguments(t *testing.T) {
	exp := &fakeExporter{report: imager.NewReport(nil)}
	s := New(exp, DefaultConfig(), nil)

	result, err := s.handleGetFigmaImages(context.Background(), callRequest(map[string]any{
		"file_key":            "ABC123",
		"node_ids":            "1:2,3:4",
		"format":              "svg",
		"scale":               2.0,
		"compression_quality": 0.5,
		"export_children":     false,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	got := exp.got[0]
	assert.Equal(t, "svg", got.Format)
	assert.Equal(t, 2.0, got.Scale)
	assert.Equal(t, 0.5, got.CompressionQuality)
	assert.False(t, got.ExportChildren)
}

func TestHandleGetFigmaImagesErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]any
		err      error
		wantText string
	}{
		{name: "missing file key", args: map[string]any{"node_ids": "1:2"}, wantText: "file_key is required"},
		{name: "missing node ids", args: map[string]any{"file_key": "K"}, wantText: "node_ids is required"},
		{name: "scale out of range", args: map[string]any{"file_key": "K", "node_ids": "1:2", "scale": 10.0}, wantText: "invalid request"},
		{name: "bad node id", args: map[string]any{"file_key": "K", "node_ids": "abc"}, wantText: "malformed node id"},
		{
			name:     "figma down",
			args:     map[string]any{"file_key": "K", "node_ids": "1:2"},
			err:      fmt.Errorf("%w: status 503", imager.ErrUpstreamUnavailable),
			wantText: "could not get images from Figma",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&fakeExporter{err: tt.err, report: imager.NewReport(nil)}, DefaultConfig(), nil)

			result, err := s.handleGetFigmaImages(context.Background(), callRequest(tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.wantText)
		})
	}
}

func TestStreamableHTTPEndToEnd(t *testing.T) {
	exp := &fakeExporter{report: sampleReport()}
	s := New(exp, DefaultConfig(), nil)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := mcpclient.NewStreamableHttpClient(srv.URL + StreamablePath)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Start(ctx))

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{Name: "test", Version: "1.0.0"}
	initResult, err := c.Initialize(ctx, initRequest)
	require.NoError(t, err)
	assert.Equal(t, "figma-structured-mcp", initResult.ServerInfo.Name)

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	require.Len(t, tools.Tools, 1)
	assert.Equal(t, toolGetFigmaImages, tools.Tools[0].Name)

	call := mcp.CallToolRequest{}
	call.Params.Name = toolGetFigmaImages
	call.Params.Arguments = map[string]any{"file_key": "ABC123", "node_ids": "1-2"}
	result, err := c.CallTool(ctx, call)
	require.NoError(t, err)
	require.False(t, result.IsError)

	var report imager.Report
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &report))
	assert.Equal(t, "https://cdn.example.com/logo.png", report.Successful[0].URL)
	assert.Equal(t, "timeout", report.Failed[0].Error)
}

func TestHealthz(t *testing.T) {
	s := New(&fakeExporter{}, DefaultConfig(), nil)

	for _, h := range []http.Handler{s.Handler(), s.SSEHandler()} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, HealthPath, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = config.ModeHTTP
	cfg.ShutdownTimeout = time.Second
	s := New(&fakeExporter{}, cfg, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln, s.Handler()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + HealthPath)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunRejectsUnknownMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = "websocket"
	err := New(&fakeExporter{}, cfg, nil).Run(context.Background(), nil, nil)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.ServerConfig{Mode: config.ModeSSE, Host: "127.0.0.1"})
	assert.Equal(t, config.DefaultSSEPort, cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, config.DefaultShutdownTimeout, cfg.ShutdownTimeout)
	assert.Equal(t, figmamcp.Version, cfg.Version)
}
