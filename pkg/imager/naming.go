package imager

import (
	"fmt"
	"strings"
)

// buildFileName creates the output file name of one node.
// Unnamed nodes fall back to their id; raster exports above 1x get an "@2x"-style suffix.
func buildFileName(nodeName, nodeID string, format Format, scale float64) string {
	name := toKebabCase(nodeName)
	if name == "" {
		name = toKebabCase(strings.NewReplacer(":", "-", ";", "-").Replace(nodeID))
	}
	if name == "" {
		name = "image"
	}

	scaleSuffix := ""
	if scale > 1 && format.Raster() {
		scaleSuffix = fmt.Sprintf("@%gx", scale)
	}

	return fmt.Sprintf("%s%s.%s", name, scaleSuffix, format)
}

// toKebabCase converts a string to kebab-case format (lowercase with hyphens).
// Runs of separators collapse into a single hyphen.
func toKebabCase(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == ' ' || r == '_' || r == '-' || r == '/' || r == '.':
			pendingHyphen = true
		}
	}

	return b.String()
}

// nameRegistry hands out unique file names within one batch.
type nameRegistry map[string]int

// claim returns name unchanged the first time and "base-2.ext", "base-3.ext" afterwards.
func (reg nameRegistry) claim(name string) string {
	n := reg[name]
	reg[name] = n + 1
	if n == 0 {
		return name
	}

	base, ext := name, ""
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		base, ext = name[:i], name[i:]
	}
	for {
		n++
		candidate := fmt.Sprintf("%s-%d%s", base, n, ext)
		if reg[candidate] == 0 {
			reg[candidate] = 1
			reg[name] = n
			return candidate
		}
	}
}
