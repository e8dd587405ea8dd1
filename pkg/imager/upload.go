package imager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kataras/figma-structured-mcp/pkg/storage"
)

// Uploader hands processed images to a storage backend under its own concurrency limit.
type Uploader struct {
	backend storage.Backend
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewUploader builds an uploader from the upload settings of cfg.
func NewUploader(backend storage.Backend, cfg Config) *Uploader {
	cfg = cfg.withDefaults()
	return &Uploader{
		backend: backend,
		sem:     semaphore.NewWeighted(int64(cfg.UploadConcurrency)),
		timeout: cfg.UploadTimeout,
	}
}

// Upload stores img and returns its public URL.
func (u *Uploader) Upload(ctx context.Context, nodeID string, img *ProcessedImage) (string, error) {
	if err := u.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer u.sem.Release(1)

	uctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	url, err := u.backend.Upload(uctx, img.Name, img.Data)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", u.timeout, err)
		}
		return "", targetError(ErrUploadFailed, nodeID, err, "%s", img.Name)
	}
	if url == "" {
		return "", targetError(ErrUploadFailed, nodeID, nil, "%s: storage returned an empty url", img.Name)
	}

	return url, nil
}
