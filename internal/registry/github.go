package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ReleaseClient queries the GitHub releases API for images whose
// versions track a GitHub-hosted project rather than a Hub tag list.
type ReleaseClient struct {
	// BaseURL is the API root, e.g. "https://api.github.com"
	BaseURL   string
	UserAgent string
	// Token is an optional personal access token for higher rate limits
	Token      string
	HTTPClient *http.Client
}

// releaseResponse is the JSON shape of the latest-release endpoint.
type releaseResponse struct {
	TagName string `json:"tag_name"`
}

// NewReleaseClient creates a client for the public GitHub API.
func NewReleaseClient(token string) *ReleaseClient {
	return &ReleaseClient{
		BaseURL:    "https://api.github.com",
		UserAgent:  defaultUserAgent,
		Token:      token,
		HTTPClient: newHTTPClient(),
	}
}

// LatestRelease returns the tag name of the latest published release of
// an "org/repo" project.
func (c *ReleaseClient) LatestRelease(ctx context.Context, repo string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.BaseURL, repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("release request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrNotFound, repo)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: status %d for %s", ErrAPIError, resp.StatusCode, repo)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read release: %w", err)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyResponse, repo)
	}

	var release releaseResponse
	if err := json.Unmarshal(body, &release); err != nil {
		return "", fmt.Errorf("failed to parse release: %w", err)
	}
	if release.TagName == "" {
		return "", fmt.Errorf("%w: release without tag_name for %s", ErrEmptyResponse, repo)
	}
	return release.TagName, nil
}
