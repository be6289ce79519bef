package registry

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReleaseClient(token string) *ReleaseClient {
	c := NewReleaseClient(token)
	httpmock.ActivateNonDefault(c.HTTPClient)
	return c
}

func TestLatestRelease(t *testing.T) {
	c := newTestReleaseClient("")
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET",
		"https://api.github.com/repos/go-gitea/gitea/releases/latest",
		httpmock.NewStringResponder(200, `{"tag_name":"v1.22.0","name":"1.22.0"}`))

	tag, err := c.LatestRelease(context.Background(), "go-gitea/gitea")
	require.NoError(t, err)
	assert.Equal(t, "v1.22.0", tag)
}

func TestLatestReleaseSendsToken(t *testing.T) {
	c := newTestReleaseClient("secret-token")
	defer httpmock.DeactivateAndReset()

	var gotAuth string
	httpmock.RegisterResponder("GET",
		"https://api.github.com/repos/go-gitea/gitea/releases/latest",
		func(req *http.Request) (*http.Response, error) {
			gotAuth = req.Header.Get("Authorization")
			return httpmock.NewStringResponse(200, `{"tag_name":"v1.22.0"}`), nil
		})

	_, err := c.LatestRelease(context.Background(), "go-gitea/gitea")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", gotAuth)
}

func TestLatestReleaseNotFound(t *testing.T) {
	c := newTestReleaseClient("")
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET",
		"https://api.github.com/repos/nope/nope/releases/latest",
		httpmock.NewStringResponder(404, `{"message":"Not Found"}`))

	_, err := c.LatestRelease(context.Background(), "nope/nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestReleaseMissingTagName(t *testing.T) {
	c := newTestReleaseClient("")
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET",
		"https://api.github.com/repos/go-gitea/gitea/releases/latest",
		httpmock.NewStringResponder(200, `{"name":"untagged"}`))

	_, err := c.LatestRelease(context.Background(), "go-gitea/gitea")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
