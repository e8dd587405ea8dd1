package figma

// NodesResponse represents the response from the Figma nodes API endpoint when fetching specific nodes.
// Nodes the caller cannot access are returned as null and decode to a nil *NodeData.
type NodesResponse struct {
	Name         string               `json:"name"`
	LastModified string               `json:"lastModified"`
	Version      string               `json:"version"`
	Nodes        map[string]*NodeData `json:"nodes"`
}

// NodeData wraps a node with its document structure.
// This is the structure returned for each requested node in a NodesResponse.
type NodeData struct {
	Document Node `json:"document"`
}

// Node represents a single element in the Figma document tree hierarchy.
// Only the fields needed to pick export targets are decoded; with depth=1 the
// Children slice holds the direct children of a requested node.
type Node struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Type                string     `json:"type"`
	Visible             *bool      `json:"visible,omitempty"`
	Children            []Node     `json:"children,omitempty"`
	AbsoluteBoundingBox *Rectangle `json:"absoluteBoundingBox,omitempty"`
}

// Rectangle represents a bounding box with position (X, Y) and dimensions (Width, Height).
type Rectangle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ImagesResponse represents the response from the Figma render (images) API endpoint.
// Images maps each requested node ID to a short-lived download URL. Nodes that could not
// be rendered are either missing or mapped to null.
type ImagesResponse struct {
	Err    *string            `json:"err"`
	Status int                `json:"status,omitempty"`
	Images map[string]*string `json:"images"`
}

// URL returns the render URL for nodeID and whether Figma produced one.
func (r *ImagesResponse) URL(nodeID string) (string, bool) {
	if r == nil {
		return "", false
	}
	u, ok := r.Images[nodeID]
	if !ok || u == nil || *u == "" {
		return "", false
	}
	return *u, true
}
