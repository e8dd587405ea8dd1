// Package server exposes the image export as the get_figma_images MCP tool over the stdio,
// streamable HTTP and SSE transports.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	figmamcp "github.com/kataras/figma-structured-mcp"
	"github.com/kataras/figma-structured-mcp/internal/config"
	"github.com/kataras/figma-structured-mcp/pkg/imager"
)

// Endpoint paths.
const (
	StreamablePath = "/mcp"
	SSEPath        = "/sse"
	MessagePath    = "/message"
	HealthPath     = "/healthz"
)

// Exporter runs one export. *figmamcp.Exporter implements it.
type Exporter interface {
	Export(ctx context.Context, p figmamcp.Params) (*imager.Report, error)
}

// Config contains MCP server configuration.
type Config struct {
	// Name is the server name advertised to clients.
	Name    string
	Version string

	Mode            string
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the stdio configuration.
func DefaultConfig() Config {
	return Config{
		Name:            "figma-structured-mcp",
		Version:         figmamcp.Version,
		Mode:            config.ModeStdio,
		Host:            config.DefaultHost,
		ShutdownTimeout: config.DefaultShutdownTimeout,
	}
}

// FromConfig derives the server configuration from the loaded settings.
func FromConfig(c config.ServerConfig) Config {
	cfg := DefaultConfig()
	cfg.Mode = c.Mode
	cfg.Host = c.Host
	cfg.Port = c.ListenPort()
	if c.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = c.ShutdownTimeout
	}
	return cfg
}

// Server wraps the MCP server with the image export tool.
type Server struct {
	mcpServer *server.MCPServer
	exporter  Exporter
	cfg       Config
	logger    *slog.Logger
}

// New creates the MCP server and registers its tools.
func New(exporter Exporter, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		exporter: exporter,
		cfg:      cfg,
		logger:   logger,
	}

	s.mcpServer = server.NewMCPServer(
		cfg.Name,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.registerTools()

	return s
}

// Run serves the configured transport until ctx is done.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	switch s.cfg.Mode {
	case config.ModeStdio, "":
		return s.ServeStdio(ctx, stdin, stdout)
	case config.ModeHTTP:
		return s.ListenAndServe(ctx, s.Handler())
	case config.ModeSSE:
		return s.ListenAndServe(ctx, s.SSEHandler())
	default:
		return fmt.Errorf("unsupported transport mode %q", s.cfg.Mode)
	}
}

// ServeStdio speaks MCP over the given streams.
func (s *Server) ServeStdio(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("MCP server listening on stdio", "name", s.cfg.Name, "version", s.cfg.Version)
	err := stdio.Listen(ctx, stdin, stdout)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Handler returns the streamable HTTP transport mounted at StreamablePath.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(StreamablePath, server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithEndpointPath(StreamablePath),
	))
	mux.HandleFunc(HealthPath, healthz)
	return mux
}

// SSEHandler returns the SSE transport: the event stream at SSEPath, client messages at MessagePath.
func (s *Server) SSEHandler() http.Handler {
	sse := server.NewSSEServer(
		s.mcpServer,
		server.WithSSEEndpoint(SSEPath),
		server.WithMessageEndpoint(MessagePath),
	)

	mux := http.NewServeMux()
	mux.Handle(SSEPath, sse)
	mux.Handle(MessagePath, sse)
	mux.HandleFunc(HealthPath, healthz)
	return mux
}

// ListenAndServe serves handler on the configured address and shuts down gracefully when ctx
// is done.
func (s *Server) ListenAndServe(ctx context.Context, handler http.Handler) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, handler)
}

// Serve serves handler on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("MCP server listening", "mode", s.cfg.Mode, "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.logger.Info("MCP server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			// Open SSE streams do not end on their own.
			s.logger.Warn("MCP server shutdown timed out, closing connections", "error", err)
			return srv.Close()
		}
		return nil
	})

	return g.Wait()
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
