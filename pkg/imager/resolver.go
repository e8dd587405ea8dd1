package imager

import (
	"context"
	"fmt"

	"github.com/kataras/figma-structured-mcp/pkg/figma"
)

// Target is one image the batch will produce.
type Target struct {
	NodeID   string  `json:"node_id"`
	NodeName string  `json:"node_name,omitempty"`
	Name     string  `json:"name"`
	Format   Format  `json:"format"`
	Scale    float64 `json:"scale"`
}

// Resolver expands the requested nodes into export targets.
type Resolver struct {
	nodes  NodeSource
	logger Logger
}

// NewResolver returns a resolver backed by the given node source.
func NewResolver(nodes NodeSource, logger Logger) *Resolver {
	return &Resolver{nodes: nodes, logger: orNop(logger)}
}

// Resolve returns the export targets of a normalized request, in request order.
//
// With ExportChildren each requested node is replaced by its direct children; a node without
// children, or one the API did not return, is exported itself. Without ExportChildren the nodes
// are exported as given and the lookup is only used to name them.
func (r *Resolver) Resolve(ctx context.Context, req Request) ([]Target, error) {
	resp, err := r.nodes.GetFileNodes(ctx, req.FileKey, req.NodeIDs, 1)
	if err != nil {
		if req.ExportChildren {
			return nil, fmt.Errorf("%w: failed to look up nodes: %w", ErrUpstreamUnavailable, err)
		}
		r.logger.Warnf("Could not look up node names, falling back to ids: %v", err)
		resp = nil
	}

	names := make(nameRegistry)
	var targets []Target
	add := func(id, nodeName string) {
		targets = append(targets, Target{
			NodeID:   id,
			NodeName: nodeName,
			Name:     names.claim(buildFileName(nodeName, id, req.Format, req.Scale)),
			Format:   req.Format,
			Scale:    req.Scale,
		})
	}

	seen := make(map[string]bool)
	for _, id := range req.NodeIDs {
		node := lookupNode(resp, id)
		if !req.ExportChildren || node == nil || len(node.Children) == 0 {
			if req.ExportChildren && node == nil {
				r.logger.Warnf("Node %s not returned by Figma, exporting it directly", id)
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			add(id, nodeName(node))
			continue
		}

		for _, child := range node.Children {
			if child.ID == "" || seen[child.ID] {
				continue
			}
			seen[child.ID] = true
			add(child.ID, child.Name)
		}
	}

	return targets, nil
}

func lookupNode(resp *figma.NodesResponse, id string) *figma.Node {
	if resp == nil {
		return nil
	}
	data, ok := resp.Nodes[id]
	if !ok || data == nil {
		return nil
	}
	return &data.Document
}

func nodeName(n *figma.Node) string {
	if n == nil {
		return ""
	}
	return n.Name
}
