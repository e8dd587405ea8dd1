package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	figmamcp "github.com/kataras/figma-structured-mcp"
	"github.com/kataras/figma-structured-mcp/internal/config"
	"github.com/kataras/figma-structured-mcp/internal/logging"
	"github.com/kataras/figma-structured-mcp/internal/server"
)

const version = figmamcp.Version

var (
	configPath  string
	accessToken string

	serveMode string
	serveHost string
	servePort int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "figma-structured-mcp",
		Short: "MCP server that exports Figma nodes as hosted images",
		Long: "An MCP server exposing the get_figma_images tool: it renders Figma nodes, compresses the images, " +
			"uploads them to the configured storage and returns their public URLs. Without a subcommand it serves MCP.",
		SilenceUsage: true,
		RunE:         runServe,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: search config.yaml in $FIGMA_MCP_CONFIG_DIR, ~/.config/figma-structured-mcp, .)")
	rootCmd.PersistentFlags().StringVarP(&accessToken, "token", "t", "", "Figma access token (overrides FIGMA_ACCESS_TOKEN)")
	addServeFlags(rootCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP tool over stdio, http or sse",
		RunE:  runServe,
	}
	addServeFlags(serveCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("figma-structured-mcp version %s\n", version)
		},
	}

	rootCmd.AddCommand(serveCmd, newExportCmd(), versionCmd)

	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&serveMode, "mode", "m", "", "Transport: stdio, http or sse (default from config, stdio)")
	cmd.Flags().StringVar(&serveHost, "host", "", "Listen host for http and sse")
	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port for http and sse (default 8000 for http, 8001 for sse)")
}

// loadConfig reads the configuration and applies the flags shared by all commands.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if accessToken != "" {
		cfg.Figma.AccessToken = accessToken
	}
	if f := cmd.Flags().Lookup("mode"); f != nil && f.Changed {
		cfg.Server.Mode = serveMode
	}
	if f := cmd.Flags().Lookup("host"); f != nil && f.Changed {
		cfg.Server.Host = serveHost
	}
	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		cfg.Server.Port = servePort
	}
	cfg.Normalize()

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:      level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
}

func newExporter(ctx context.Context, cfg *config.Config, logger figmamcp.Logger) (*figmamcp.Exporter, error) {
	return figmamcp.New(ctx, figmamcp.Options{
		AccessToken: cfg.Figma.AccessToken,
		OAuth:       cfg.Figma.OAuth,
		BaseURL:     cfg.Figma.BaseURL,
		RateLimit:   cfg.Figma.RateLimit,
		Storage:     cfg.Storage,
		Pipeline:    cfg.Pipeline.ImagerConfig(),
		Logger:      logger,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exporter, err := newExporter(ctx, cfg, logging.NewPrintf(logger.Logger, "component", "imager"))
	if err != nil {
		return err
	}

	logger.Info("starting figma-structured-mcp",
		"version", version,
		"mode", cfg.Server.Mode,
		"storage", cfg.Storage.Provider,
		"config_file", config.ConfigFileUsed(),
	)

	srv := server.New(exporter, server.FromConfig(cfg.Server), logger.Logger)
	return srv.Run(ctx, os.Stdin, os.Stdout)
}

// cliLogger implements figmamcp.Logger with colored terminal output.
type cliLogger struct{}

func (l *cliLogger) Infof(format string, args ...any) {
	color.New(color.FgYellow).Printf(format+"\n", args...)
}

func (l *cliLogger) Warnf(format string, args ...any) {
	color.New(color.FgYellow).Printf("⚠ "+format+"\n", args...)
}

func (l *cliLogger) Errorf(format string, args ...any) {
	color.New(color.FgRed).Printf("✗ "+format+"\n", args...)
}
