// Package registry provides read-only clients for the tag catalogs this
// tool consults: the Docker Hub tag-listing API and the GitHub releases
// API. Both are unauthenticated best-effort collaborators; callers fail
// open when a query errors.
package registry

import (
	"errors"
	"net/http"
	"time"
)

// Error variables for registry client errors
var (
	// ErrNotFound indicates the repository was not found upstream
	ErrNotFound = errors.New("repository not found")
	// ErrAPIError indicates a non-success response from the API
	ErrAPIError = errors.New("registry API error")
	// ErrEmptyResponse is returned when the API answered with no usable body
	ErrEmptyResponse = errors.New("empty registry response")
)

// defaultUserAgent identifies this tool to upstream APIs.
const defaultUserAgent = "composeup/1.0"

// requestTimeout bounds every registry query. A stalled registry must
// never stall the whole run indefinitely.
const requestTimeout = 15 * time.Second

// newHTTPClient returns the shared client configuration for both APIs.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}
