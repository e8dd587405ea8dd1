package imager

import (
	"context"
	"fmt"
)

// RenderLink pairs a target with its temporary render URL. An empty URL means Figma did not
// render the node.
type RenderLink struct {
	Target Target
	URL    string
}

// Available reports whether the node can be downloaded.
func (l RenderLink) Available() bool { return l.URL != "" }

// LinkFetcher asks Figma to render all targets of a batch.
type LinkFetcher struct {
	renders RenderSource
	logger  Logger
}

// NewLinkFetcher returns a fetcher backed by the given render source.
func NewLinkFetcher(renders RenderSource, logger Logger) *LinkFetcher {
	return &LinkFetcher{renders: renders, logger: orNop(logger)}
}

// Fetch returns one link per target, in target order. Render requests carry at most 100 ids
// each. Any failed request fails the whole batch with ErrUpstreamUnavailable.
func (f *LinkFetcher) Fetch(ctx context.Context, fileKey string, format Format, scale float64, targets []Target) ([]RenderLink, error) {
	links := make([]RenderLink, len(targets))
	for i, t := range targets {
		links[i].Target = t
	}

	for start := 0; start < len(targets); start += maxNodesPerRequest {
		end := min(start+maxNodesPerRequest, len(targets))

		ids := make([]string, 0, end-start)
		for _, t := range targets[start:end] {
			ids = append(ids, t.NodeID)
		}

		resp, err := f.renders.GetImages(ctx, fileKey, ids, string(format), scale)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to get render links: %w", ErrUpstreamUnavailable, err)
		}
		if resp.Err != nil && *resp.Err != "" {
			f.logger.Warnf("Figma reported a render error: %s", *resp.Err)
		}

		for i := start; i < end; i++ {
			if u, ok := resp.URL(links[i].Target.NodeID); ok {
				links[i].URL = u
			}
		}
	}

	return links, nil
}
