package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kataras/figma-structured-mcp/internal/logging"
)

// Validate checks the configuration needed to serve exports.
// All problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Figma.AccessToken) == "" {
		errs = append(errs, errors.New("figma.access_token is required (set FIGMA_ACCESS_TOKEN)"))
	}
	if cfg.Figma.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("figma.rate_limit must not be negative, got %g", cfg.Figma.RateLimit))
	}

	if err := cfg.Storage.Validate(); err != nil {
		errs = append(errs, err)
	}

	p := cfg.Pipeline
	if p.DownloadConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.download_concurrency must be positive, got %d", p.DownloadConcurrency))
	}
	if p.UploadConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.upload_concurrency must be positive, got %d", p.UploadConcurrency))
	}
	if p.DownloadTimeout <= 0 || p.UploadTimeout <= 0 || p.BatchTimeout <= 0 {
		errs = append(errs, errors.New("pipeline timeouts must be positive"))
	}
	if p.DownloadRetries < 0 {
		errs = append(errs, fmt.Errorf("pipeline.download_retries must not be negative, got %d", p.DownloadRetries))
	}

	if err := ValidateServer(cfg.Server); err != nil {
		errs = append(errs, err)
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ValidateServer checks the transport settings only.
func ValidateServer(s ServerConfig) error {
	switch s.Mode {
	case ModeStdio, ModeHTTP, ModeSSE:
	default:
		return fmt.Errorf("server.mode must be one of stdio, http, sse; got %q", s.Mode)
	}
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", s.Port)
	}
	return nil
}
