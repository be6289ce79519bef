package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/obscale/composeup/internal/compose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTagLister struct {
	tags  []string
	err   error
	calls int
}

func (f *fakeTagLister) ListTags(ctx context.Context, repo string) ([]string, error) {
	f.calls++
	return f.tags, f.err
}

type fakeReleaseGetter struct {
	tag   string
	err   error
	calls int
}

func (f *fakeReleaseGetter) LatestRelease(ctx context.Context, repo string) (string, error) {
	f.calls++
	return f.tag, f.err
}

func tableWith(repo string, e Entry) *Table {
	t := Defaults()
	t.Merge(map[string]Entry{repo: e})
	return t
}

func TestResolveUnknownRepository(t *testing.T) {
	tags := &fakeTagLister{tags: []string{"2.0.0"}}
	r := NewResolver(Defaults(), tags, &fakeReleaseGetter{}, false)

	out := r.Resolve(context.Background(), compose.ImageRef{Repository: "some/unknown", Tag: "1.0.0"})
	assert.Equal(t, "1.0.0", out.Tag)
	assert.Equal(t, SkipUnknown, out.Skip)
	assert.Zero(t, tags.calls)
}

func TestResolveFloatingTagUnchanged(t *testing.T) {
	tags := &fakeTagLister{tags: []string{"7.2.5"}}
	r := NewResolver(Defaults(), tags, &fakeReleaseGetter{}, false)

	out := r.Resolve(context.Background(), compose.ImageRef{Repository: "redis", Tag: "latest"})
	assert.Equal(t, "latest", out.Tag)
	assert.Equal(t, SkipFloating, out.Skip)
	assert.Zero(t, tags.calls)
}

func TestResolveAlwaysSkip(t *testing.T) {
	tags := &fakeTagLister{tags: []string{"3.6"}}
	r := NewResolver(Defaults(), tags, &fakeReleaseGetter{}, false)

	out := r.Resolve(context.Background(), compose.ImageRef{Repository: "kong", Tag: "3.4"})
	assert.Equal(t, "3.4", out.Tag)
	assert.Equal(t, SkipPinned, out.Skip)
	assert.Zero(t, tags.calls)
}

func TestResolvePicksFirstStableCandidate(t *testing.T) {
	tags := &fakeTagLister{tags: []string{"latest", "7.4.0-rc1", "7.4.0-alpine", "7.4.0", "7.2.5"}}
	r := NewResolver(Defaults(), tags, &fakeReleaseGetter{}, false)

	out := r.Resolve(context.Background(), compose.ImageRef{Repository: "redis", Tag: "7.0.0"})
	assert.Equal(t, SkipNone, out.Skip)
	assert.Equal(t, "7.4.0", out.Tag)
}

func TestResolveStabilityFilter(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want string
	}{
		{"rc excluded", []string{"8.0-rc2", "7.4.1"}, "7.4.1"},
		{"alpha excluded", []string{"8.0.0-alpha.1", "7.4.1"}, "7.4.1"},
		{"beta excluded", []string{"8.0.0beta1", "7.4.1"}, "7.4.1"},
		{"develop excluded", []string{"develop", "7.4.1"}, "7.4.1"},
		{"case insensitive markers", []string{"8.0-RC1", "7.4.1"}, "7.4.1"},
		{"non numeric excluded", []string{"bookworm", "7.4.1"}, "7.4.1"},
		{"v prefix accepted", []string{"v7.4.1"}, "v7.4.1"},
		{"registry order wins", []string{"7.4.1", "7.9.9"}, "7.4.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(Defaults(), &fakeTagLister{tags: tt.tags}, &fakeReleaseGetter{}, false)
			out := r.Resolve(context.Background(), compose.ImageRef{Repository: "redis", Tag: "7.0.0"})
			assert.Equal(t, tt.want, out.Tag)
		})
	}
}

func TestResolveFlavorPreservation(t *testing.T) {
	tags := &fakeTagLister{tags: []string{"0.39.0", "0.39.0-distroless", "0.39.0-alpine", "0.38.0-alpine"}}
	r := NewResolver(Defaults(), tags, &fakeReleaseGetter{}, false)

	out := r.Resolve(context.Background(), compose.ImageRef{Repository: "timberio/vector", Tag: "0.28.1-alpine"})
	assert.Equal(t, SkipNone, out.Skip)
	assert.Equal(t, "0.39.0-alpine", out.Tag)
}

func TestResolveFlavorPreservationNoCandidate(t *testing.T) {
	// Preservation requested but nothing carries the suffix: fail open.
	tags := &fakeTagLister{tags: []string{"0.39.0", "0.39.0-distroless"}}
	r := NewResolver(Defaults(), tags, &fakeReleaseGetter{}, false)

	out := r.Resolve(context.Background(), compose.ImageRef{Repository: "timberio/vector", Tag: "0.28.1-alpine"})
	assert.Equal(t, "0.28.1-alpine", out.Tag)
	assert.Equal(t, SkipLookupFailed, out.Skip)
}

func TestResolveUnflavoredCurrentExcludesFlavors(t *testing.T) {
	tags := &fakeTagLister{tags: []string{"1.26.0-alpine", "1.26.0-ubuntu", "1.26.0-distroless", "1.26.0"}}
	r := NewResolver(Defaults(), tags, &fakeReleaseGetter{}, false)

	out := r.Resolve(context.Background(), compose.ImageRef{Repository: "nginx", Tag: "1.25.0"})
	assert.Equal(t, "1.26.0", out.Tag)
}

func TestResolveMajorVersionGate(t *testing.T) {
	tags := &fakeTagLister{tags: []string{"17.4.1"}}
	r := NewResolver(Defaults(), tags, &fakeReleaseGetter{}, false)

	out := r.Resolve(context.Background(), compose.ImageRef{Repository: "postgres", Tag: "15.8.1"})
	assert.Equal(t, "15.8.1", out.Tag)
	assert.Equal(t, SkipMajorGate, out.Skip)
	assert.Equal(t, "17.4.1", out.Candidate)
}

func TestResolveMajorGateAllowsSameMajor(t *testing.T) {
	tags := &fakeTagLister{tags: []string{"15.9.0"}}
	r := NewResolver(Defaults(), tags, &fakeReleaseGetter{}, false)

	out := r.Resolve(context.Background(), compose.ImageRef{Repository: "postgres", Tag: "15.8.1"})
	assert.Equal(t, SkipNone, out.Skip)
	assert.Equal(t, "15.9.0", out.Tag)
}

func TestResolveLookupErrorFailsOpen(t *testing.T) {
	boom := errors.New("registry unreachable")
	r := NewResolver(Defaults(), &fakeTagLister{err: boom}, &fakeReleaseGetter{}, false)

	out := r.Resolve(context.Background(), compose.ImageRef{Repository: "redis", Tag: "7.0.0"})
	assert.Equal(t, "7.0.0", out.Tag)
	assert.Equal(t, SkipLookupFailed, out.Skip)
	assert.ErrorIs(t, out.Err, boom)
}

func TestResolveEmptyListingFailsOpen(t *testing.T) {
	r := NewResolver(Defaults(), &fakeTagLister{tags: nil}, &fakeReleaseGetter{}, false)

	out := r.Resolve(context.Background(), compose.ImageRef{Repository: "redis", Tag: "7.0.0"})
	assert.Equal(t, "7.0.0", out.Tag)
	assert.Equal(t, SkipLookupFailed, out.Skip)
}

func TestResolveGitHubSource(t *testing.T) {
	releases := &fakeReleaseGetter{tag: "v1.22.0"}
	tags := &fakeTagLister{}
	r := NewResolver(Defaults(), tags, releases, false)

	out := r.Resolve(context.Background(), compose.ImageRef{Repository: "gitea/gitea", Tag: "1.21.11"})
	assert.Equal(t, SkipNone, out.Skip)
	assert.Equal(t, "1.22.0", out.Tag)
	assert.Equal(t, 1, releases.calls)
	assert.Zero(t, tags.calls)
}

func TestResolveGitHubPrereleaseFailsOpen(t *testing.T) {
	releases := &fakeReleaseGetter{tag: "v1.23.0-rc0"}
	r := NewResolver(Defaults(), &fakeTagLister{}, releases, false)

	out := r.Resolve(context.Background(), compose.ImageRef{Repository: "gitea/gitea", Tag: "1.21.11"})
	assert.Equal(t, "1.21.11", out.Tag)
	assert.Equal(t, SkipLookupFailed, out.Skip)
}

func TestResolveGitHubMajorGate(t *testing.T) {
	table := tableWith("gitea/gitea", Entry{Kind: KindGitHub, GitHubRepo: "go-gitea/gitea", MajorGate: true})
	releases := &fakeReleaseGetter{tag: "v2.0.0"}
	r := NewResolver(table, &fakeTagLister{}, releases, false)

	out := r.Resolve(context.Background(), compose.ImageRef{Repository: "gitea/gitea", Tag: "1.21.11"})
	assert.Equal(t, "1.21.11", out.Tag)
	assert.Equal(t, SkipMajorGate, out.Skip)
	assert.Equal(t, "2.0.0", out.Candidate)
}

func TestResolveOfficialMode(t *testing.T) {
	tags := &fakeTagLister{tags: []string{"99.0.0"}}
	releases := &fakeReleaseGetter{tag: "v99.0.0"}
	r := NewResolver(Defaults(), tags, releases, true)

	// Curated pin wins, even over always-skip, with zero network calls.
	out := r.Resolve(context.Background(), compose.ImageRef{Repository: "kong", Tag: "3.1"})
	assert.Equal(t, "3.4", out.Tag)
	assert.Equal(t, SkipNone, out.Skip)

	out = r.Resolve(context.Background(), compose.ImageRef{Repository: "postgres", Tag: "14.1"})
	assert.Equal(t, "15.8", out.Tag)

	// No curated pin: current tag kept.
	out = r.Resolve(context.Background(), compose.ImageRef{Repository: "portainer/portainer-ce", Tag: "2.19.0"})
	assert.Equal(t, "2.19.0", out.Tag)

	assert.Zero(t, tags.calls)
	assert.Zero(t, releases.calls)
}

func TestMajorOf(t *testing.T) {
	tests := []struct {
		tag  string
		want uint64
	}{
		{"15.8.1", 15},
		{"15.8", 15},
		{"17", 17},
		{"v17.4.1", 17},
		{"0.28.1-alpine", 0},
		{"1.2.3.4", 1},
		{"latest", 0},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, majorOf(tt.tag), "tag %q", tt.tag)
	}
}

func TestSelectCandidateEmpty(t *testing.T) {
	require.Empty(t, selectCandidate(nil, "1.0", false))
	require.Empty(t, selectCandidate([]string{"latest", "edge"}, "1.0", false))
}
