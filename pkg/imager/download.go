package imager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
)

// maxImageSize caps the bytes read from one render URL.
const maxImageSize = 64 << 20

// RawImage is an image as served by the render URL.
type RawImage struct {
	Data        []byte
	ContentType string
}

// Downloader fetches render URLs. All downloads of a Downloader share one concurrency limit.
type Downloader struct {
	client  *http.Client
	sem     *semaphore.Weighted
	timeout time.Duration
	retries int
	backoff time.Duration
	logger  Logger
}

// NewDownloader builds a downloader from the download settings of cfg.
func NewDownloader(cfg Config, logger Logger) *Downloader {
	cfg = cfg.withDefaults()
	return &Downloader{
		client:  cfg.HTTPClient,
		sem:     semaphore.NewWeighted(int64(cfg.DownloadConcurrency)),
		timeout: cfg.DownloadTimeout,
		retries: cfg.DownloadRetries,
		backoff: cfg.RetryBackoff,
		logger:  orNop(logger),
	}
}

// Download fetches the link of one target. Transport errors, 429 and 5xx responses are retried
// with exponential backoff; the limiter slot is released while waiting.
func (d *Downloader) Download(ctx context.Context, link RenderLink) (*RawImage, error) {
	var lastErr error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if attempt > 0 {
			wait := d.backoff << (attempt - 1)
			d.logger.Warnf("Retrying download of %s in %s (attempt %d/%d): %v", link.Target.Name, wait, attempt+1, d.retries+1, lastErr)
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		img, retry, err := d.attempt(ctx, link.URL)
		if err == nil {
			return img, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if !retry {
			break
		}
	}

	return nil, targetError(ErrDownloadFailed, link.Target.NodeID, lastErr, "%s", link.Target.Name)
}

func (d *Downloader) attempt(ctx context.Context, rawURL string) (*RawImage, bool, error) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, false, err
	}
	defer d.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("invalid render url: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, true, fmt.Errorf("timed out after %s", d.timeout)
		}
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, true, fmt.Errorf("timed out after %s", d.timeout)
		}
		return nil, true, fmt.Errorf("failed to read body: %w", err)
	}
	if len(data) > maxImageSize {
		return nil, false, fmt.Errorf("image larger than %d bytes", maxImageSize)
	}
	if len(data) == 0 {
		return nil, false, errors.New("empty response body")
	}

	return &RawImage{Data: data, ContentType: resp.Header.Get("Content-Type")}, false, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
