package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// tagPageSize is the number of tags requested per query. The listing is
// never paginated further; the newest hundred tags are plenty to find a
// stable candidate.
const tagPageSize = 100

// HubClient queries a Docker-Hub-compatible tag-listing endpoint.
type HubClient struct {
	// BaseURL is the API root, e.g. "https://hub.docker.com"
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// tagEntry is one element of the "results" array in a tag listing.
type tagEntry struct {
	Name string `json:"name"`
}

// tagListResponse is the JSON shape of the tag-listing endpoint.
type tagListResponse struct {
	Results []tagEntry `json:"results"`
}

// NewHubClient creates a client for the public Docker Hub API.
func NewHubClient() *HubClient {
	return &HubClient{
		BaseURL:    "https://hub.docker.com",
		UserAgent:  defaultUserAgent,
		HTTPClient: newHTTPClient(),
	}
}

// ListTags fetches up to 100 tag names for a repository, in the order
// the registry returns them (newest first). Official images without a
// namespace are looked up under "library/".
func (c *HubClient) ListTags(ctx context.Context, repo string) ([]string, error) {
	url := fmt.Sprintf("%s/v2/repositories/%s/tags/?page_size=%d", c.BaseURL, normalizeRepo(repo), tagPageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tag listing request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, repo)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d for %s", ErrAPIError, resp.StatusCode, repo)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tag listing: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyResponse, repo)
	}

	var listing tagListResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse tag listing: %w", err)
	}
	if len(listing.Results) == 0 {
		return nil, fmt.Errorf("%w: no tags for %s", ErrEmptyResponse, repo)
	}

	tags := make([]string, 0, len(listing.Results))
	for _, t := range listing.Results {
		if t.Name != "" {
			tags = append(tags, t.Name)
		}
	}
	return tags, nil
}

// normalizeRepo prefixes official single-segment images with the
// "library" namespace the Hub API expects.
func normalizeRepo(repo string) string {
	if !strings.Contains(repo, "/") {
		return "library/" + repo
	}
	return repo
}
