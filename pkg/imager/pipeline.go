package imager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kataras/figma-structured-mcp/pkg/storage"
)

// Pipeline runs export batches. It is safe for concurrent use; concurrent batches share the
// download and upload limits.
type Pipeline struct {
	resolver     *Resolver
	links        *LinkFetcher
	downloader   *Downloader
	uploader     *Uploader
	batchTimeout time.Duration
	logger       Logger
}

// New returns a pipeline that reads from api and stores images in backend.
func New(api FigmaAPI, backend storage.Backend, cfg Config, logger Logger) *Pipeline {
	cfg = cfg.withDefaults()
	logger = orNop(logger)

	return &Pipeline{
		resolver:     NewResolver(api, logger),
		links:        NewLinkFetcher(api, logger),
		downloader:   NewDownloader(cfg, logger),
		uploader:     NewUploader(backend, cfg),
		batchTimeout: cfg.BatchTimeout,
		logger:       logger,
	}
}

// Run exports the requested nodes and reports one outcome per image.
//
// It returns an error only when the request is invalid (ErrInvalidRequest) or when Figma could not
// be reached before any image was processed (ErrUpstreamUnavailable). Everything that goes wrong
// for a single image ends up in Report.Failed. When the batch timeout expires the report is still
// returned; images that did not finish are reported as failed with "timeout".
func (p *Pipeline) Run(ctx context.Context, req Request) (*Report, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()[:8]
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.batchTimeout)
	defer cancel()

	p.logger.Infof("[%s] Resolving %d node(s) of file %s (format=%s scale=%g quality=%g children=%t)",
		runID, len(req.NodeIDs), req.FileKey, req.Format, req.Scale, req.Quality, req.ExportChildren)

	targets, err := p.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, upstreamError(ctx, err)
	}
	if len(targets) == 0 {
		p.logger.Warnf("[%s] Nothing to export", runID)
		return NewReport(nil), nil
	}

	p.logger.Infof("[%s] Fetching render links for %d image(s)", runID, len(targets))
	links, err := p.links.Fetch(ctx, req.FileKey, req.Format, req.renderScale(), targets)
	if err != nil {
		return nil, upstreamError(ctx, err)
	}

	p.logger.Infof("[%s] Processing %d image(s)", runID, len(links))
	results := make(chan Outcome, len(links))
	for _, link := range links {
		go func() {
			results <- p.process(ctx, link, req.Quality)
		}()
	}

	report := NewReport(nil)
	pending := make(map[string]bool, len(links))
	for _, l := range links {
		pending[l.Target.Name] = true
	}

collect:
	for len(pending) > 0 {
		select {
		case o := <-results:
			delete(pending, o.Target.Name)
			report.add(o)
			if !o.OK() {
				p.logger.Errorf("[%s] %s: %v", runID, o.Target.Name, o.Err)
			}
		case <-ctx.Done():
			break collect
		}
	}

	if len(pending) > 0 {
		p.logger.Warnf("[%s] Batch stopped with %d image(s) unfinished: %v", runID, len(pending), ctx.Err())
		for _, l := range links {
			if pending[l.Target.Name] {
				report.add(contextFailure(ctx, l.Target))
			}
		}
	}

	p.logger.Infof("[%s] Done in %s: %d uploaded, %d failed",
		runID, time.Since(started).Round(time.Millisecond), len(report.Successful), len(report.Failed))

	return report, nil
}

// process runs one image through download, compression and upload. It always returns an
// outcome, panics included.
func (p *Pipeline) process(ctx context.Context, link RenderLink, quality float64) (o Outcome) {
	t := link.Target
	defer func() {
		if r := recover(); r != nil {
			o = Failed(t, targetError(ErrInternal, t.NodeID, nil, "%s: %v", t.Name, r))
		}
	}()

	if !link.Available() {
		return Failed(t, targetError(ErrRenderUnavailable, t.NodeID, nil, "no render URL returned by Figma for node %s", t.NodeID))
	}

	raw, err := p.downloader.Download(ctx, link)
	if err != nil {
		if ctx.Err() != nil {
			return contextFailure(ctx, t)
		}
		return Failed(t, err)
	}

	data, err := Compress(raw.Data, t.Format, quality)
	if err != nil {
		return Failed(t, targetError(ErrCompressionFailed, t.NodeID, err, "%s", t.Name))
	}
	if t.Format.Raster() {
		p.logger.Infof("Compressed %s: %d -> %d bytes", t.Name, len(raw.Data), len(data))
	}

	if ctx.Err() != nil {
		return contextFailure(ctx, t)
	}

	url, err := p.uploader.Upload(ctx, t.NodeID, &ProcessedImage{
		Name:         t.Name,
		Data:         data,
		Format:       t.Format,
		OriginalSize: len(raw.Data),
	})
	if err != nil {
		if ctx.Err() != nil {
			return contextFailure(ctx, t)
		}
		return Failed(t, err)
	}

	return Uploaded(t, url)
}

// contextFailure is the outcome of a target interrupted by the batch context.
func contextFailure(ctx context.Context, t Target) Outcome {
	kind := ErrTimeout
	if errors.Is(ctx.Err(), context.Canceled) {
		kind = ErrCanceled
	}
	return Failed(t, &Error{Kind: kind, NodeID: t.NodeID})
}

// upstreamError converts errors of the stages before fan-out into batch errors.
func upstreamError(ctx context.Context, err error) error {
	if errors.Is(err, ErrUpstreamUnavailable) {
		return err
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, ctx.Err())
	}
	return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
}
