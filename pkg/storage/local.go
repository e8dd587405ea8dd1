package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalBackend writes files into a directory that is served elsewhere (a static file server or
// a CDN origin) and returns URLs under PublicBaseURL.
type LocalBackend struct {
	dir     string
	baseURL string
}

// NewLocalBackend creates the target directory if needed.
func NewLocalBackend(cfg LocalConfig) (*LocalBackend, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %q: %w", cfg.Dir, err)
	}

	return &LocalBackend{
		dir:     cfg.Dir,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Upload stores data under the base name of name. Existing files are overwritten.
func (b *LocalBackend) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fileName := filepath.Base(filepath.Clean(name))
	if fileName == "." || fileName == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	destPath := filepath.Join(b.dir, fileName)
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file %q: %w", destPath, err)
	}

	return b.baseURL + "/" + url.PathEscape(fileName), nil
}
