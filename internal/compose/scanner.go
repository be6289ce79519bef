package compose

import (
	"regexp"
	"strings"
)

// imageLinePattern matches an image declaration line and captures, in
// order: the prefix up to the value, the opening quote (if any), the
// value token, the closing quote (if any), and the rest of the line.
var imageLinePattern = regexp.MustCompile(`^(\s*image:\s*)(["']?)([^\s"']+)(["']?)(.*)$`)

// Extract scans the full text of a compose file and returns one
// ImageRef per well-formed image declaration, in file order. Malformed
// lines (no value after the image key) are skipped, never fatal.
// Duplicate repository:tag pairs are returned as-is; callers collapse
// them when building an update plan.
func Extract(text string) []ImageRef {
	var refs []ImageRef
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		m := imageLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ref, err := ParseImageValue(m[2] + m[3] + m[4])
		if err != nil {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}
