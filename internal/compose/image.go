// Package compose provides line-oriented parsing and rewriting of
// docker-compose files. Only image declarations are interpreted; every
// other byte of the file passes through untouched.
package compose

import (
	"errors"
	"strings"
)

// Error variables for image parsing errors
var (
	// ErrEmptyImageValue is returned when an image declaration has no value
	ErrEmptyImageValue = errors.New("image declaration has no value")
)

// DefaultTag is assumed when an image reference carries no explicit tag.
const DefaultTag = "latest"

// ImageRef is a parsed repository:tag pair from a single image line.
// It is immutable once parsed.
type ImageRef struct {
	// Repository is the image name, possibly including a registry host
	// and path segments (e.g. "timberio/vector", "registry:5000/app")
	Repository string
	// Tag is the version label after the last colon, "latest" if absent
	Tag string
}

// String returns the canonical repository:tag form.
func (r ImageRef) String() string {
	return r.Repository + ":" + r.Tag
}

// ParseImageValue parses the value portion of an image declaration into
// an ImageRef. Surrounding single or double quotes are stripped. The
// value is split at the last colon so that a registry host carrying a
// port is not mistaken for a tag; a colon followed by a path separator
// is treated as such a port. Without any tag separator the tag defaults
// to "latest".
func ParseImageValue(value string) (ImageRef, error) {
	value = stripQuotes(strings.TrimSpace(value))
	if value == "" {
		return ImageRef{}, ErrEmptyImageValue
	}

	idx := strings.LastIndex(value, ":")
	if idx < 0 || strings.Contains(value[idx+1:], "/") {
		return ImageRef{Repository: value, Tag: DefaultTag}, nil
	}
	repo, tag := value[:idx], value[idx+1:]
	if repo == "" {
		return ImageRef{}, ErrEmptyImageValue
	}
	if tag == "" {
		tag = DefaultTag
	}
	return ImageRef{Repository: repo, Tag: tag}, nil
}

// stripQuotes removes one matching pair of surrounding quotes, if present.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
