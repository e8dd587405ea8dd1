package figma

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	fileKeyPattern    = regexp.MustCompile(`^https?://(?:www\.)?figma\.com/(?:file|design)/([A-Za-z0-9]+)(?:/|$|\?|#)`)
	queryNodePattern  = regexp.MustCompile(`[?&]node-id=([^&#]*)`)
	pathNodePattern   = regexp.MustCompile(`/nodes/([^/?#]+)`)
	fragmentPattern   = regexp.MustCompile(`#(.+)$`)
	nodeIDPattern     = regexp.MustCompile(`^I?\d+:\d+(?:;\d+:\d+)*$`)
	fragmentIDPattern = regexp.MustCompile(`\d+[:-]\d+`)
)

// ExtractFileKey extracts the unique file identifier from a Figma URL.
// Supports both /file/ and /design/ URL patterns (e.g., figma.com/file/ABC123/Design-Name).
// Returns an error if the URL format is invalid or if the URL doesn't match the expected Figma domain pattern.
func ExtractFileKey(figmaURL string) (string, error) {
	// Anchored to ensure the entire URL matches the expected pattern and prevent bypass attacks.
	matches := fileKeyPattern.FindStringSubmatch(figmaURL)
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Figma URL format: must be a valid figma.com URL with /file/ or /design/ path")
	}

	return matches[1], nil
}

// ExtractNodeIDs extracts node identifiers from a Figma URL. The node-id query parameter, the
// /nodes/ path segment and the #fragment forms are recognised. Browser URLs use "-" as the
// separator ("11933-305884"); the returned IDs use the API form ("11933:305884").
// An URL without node IDs yields an empty slice.
func ExtractNodeIDs(figmaURL string) ([]string, error) {
	var raw string

	switch {
	case queryNodePattern.MatchString(figmaURL):
		raw = queryNodePattern.FindStringSubmatch(figmaURL)[1]
	case pathNodePattern.MatchString(figmaURL):
		raw = pathNodePattern.FindStringSubmatch(figmaURL)[1]
	case fragmentPattern.MatchString(figmaURL):
		fragment := fragmentPattern.FindStringSubmatch(figmaURL)[1]
		if fragmentIDPattern.MatchString(fragment) {
			raw = fragment
		}
	}

	if unescaped, err := url.QueryUnescape(raw); err == nil {
		raw = unescaped
	}

	ids := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ids = append(ids, NormalizeNodeID(part))
	}

	return deduplicateNodeIDs(ids), nil
}

// NormalizeNodeID converts the URL form of a node ID ("1-2") into the API form ("1:2").
func NormalizeNodeID(id string) string {
	return strings.ReplaceAll(strings.TrimSpace(id), "-", ":")
}

// IsValidNodeID reports whether id (in API form) looks like a Figma node identifier:
// "major:minor", or an instance path such as "I1:2;3:4".
func IsValidNodeID(id string) bool {
	return nodeIDPattern.MatchString(id)
}

// deduplicateNodeIDs removes repeated IDs while preserving first-seen order.
func deduplicateNodeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	result := make([]string, 0, len(ids))

	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}

	return result
}
