package policy

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/obscale/composeup/internal/compose"
)

// SkipReason explains why a repository kept its current tag.
type SkipReason string

const (
	// SkipNone means resolution produced a usable recommendation.
	SkipNone SkipReason = ""
	// SkipUnknown marks a repository absent from the policy table.
	SkipUnknown SkipReason = "unrecognized repository"
	// SkipPinned marks an always-skip repository.
	SkipPinned SkipReason = "pinned, upgrade manually"
	// SkipFloating marks a floating tag that is never "upgraded".
	SkipFloating SkipReason = "floating tag"
	// SkipMajorGate marks a candidate rejected by the major-version gate.
	SkipMajorGate SkipReason = "major upgrade skipped"
	// SkipLookupFailed marks a failed or empty registry query.
	SkipLookupFailed SkipReason = "lookup failed"
)

// TagLister lists candidate tags for a repository, newest first.
type TagLister interface {
	ListTags(ctx context.Context, repo string) ([]string, error)
}

// ReleaseGetter returns the latest release tag of a GitHub project.
type ReleaseGetter interface {
	LatestRelease(ctx context.Context, repo string) (string, error)
}

// Outcome is the result of resolving one image reference. Tag always
// holds a usable value: the recommendation when resolution succeeded,
// the unchanged current tag otherwise (resolution fails open).
type Outcome struct {
	Tag  string
	Skip SkipReason
	// Candidate is the rejected tag for major-gate outcomes.
	Candidate string
	// Err is the underlying lookup error for failed lookups.
	Err error
}

// Resolver interprets the policy table for a run. Official mode answers
// from curated pins without any network call; conservative mode queries
// the configured catalogs with stability and safety filtering.
type Resolver struct {
	table    *Table
	tags     TagLister
	releases ReleaseGetter
	official bool
}

// NewResolver creates a resolver over the given table and catalogs.
func NewResolver(table *Table, tags TagLister, releases ReleaseGetter, official bool) *Resolver {
	return &Resolver{table: table, tags: tags, releases: releases, official: official}
}

// Resolve maps (repository, current tag) to a recommended tag under the
// repository's policy. Unknown repositories and every failure mode keep
// the current tag; Resolve never returns an unusable outcome.
func (r *Resolver) Resolve(ctx context.Context, ref compose.ImageRef) Outcome {
	entry, known := r.table.Lookup(ref.Repository)
	if !known {
		return Outcome{Tag: ref.Tag, Skip: SkipUnknown}
	}

	if r.official {
		// Curated pins override every policy kind, always-skip included.
		if entry.Pin != "" {
			return Outcome{Tag: entry.Pin}
		}
		return Outcome{Tag: ref.Tag}
	}

	if entry.Kind == KindAlwaysSkip {
		return Outcome{Tag: ref.Tag, Skip: SkipPinned}
	}
	if ref.Tag == compose.DefaultTag {
		return Outcome{Tag: ref.Tag, Skip: SkipFloating}
	}

	candidate, err := r.lookup(ctx, entry, ref)
	if err != nil {
		return Outcome{Tag: ref.Tag, Skip: SkipLookupFailed, Err: err}
	}
	if candidate == "" {
		return Outcome{Tag: ref.Tag, Skip: SkipLookupFailed}
	}

	if entry.MajorGate && majorOf(candidate) > majorOf(ref.Tag) {
		return Outcome{Tag: ref.Tag, Skip: SkipMajorGate, Candidate: candidate}
	}
	return Outcome{Tag: candidate}
}

// lookup fetches candidate tags for an entry and picks the first stable
// one. An empty return with nil error means no candidate survived the
// filters.
func (r *Resolver) lookup(ctx context.Context, entry Entry, ref compose.ImageRef) (string, error) {
	var candidates []string
	switch entry.Kind {
	case KindGitHub:
		tag, err := r.releases.LatestRelease(ctx, entry.GitHubRepo)
		if err != nil {
			return "", err
		}
		// Release tags carry a leading "v" the image tags do not.
		candidates = []string{strings.TrimPrefix(tag, "v")}
	default:
		tags, err := r.tags.ListTags(ctx, ref.Repository)
		if err != nil {
			return "", err
		}
		candidates = tags
	}
	return selectCandidate(candidates, ref.Tag, entry.PreserveFlavor), nil
}

// stableShape matches tags with a numeric or v-prefixed numeric start.
var stableShape = regexp.MustCompile(`^v?[0-9]`)

// flavorSuffix matches a trailing alphabetic flavor suffix like "-alpine".
var flavorSuffix = regexp.MustCompile(`-([a-zA-Z]+)$`)

// unstableMarkers exclude pre-release tags, matched case-insensitively
// anywhere in the tag.
var unstableMarkers = []string{"rc", "alpha", "beta", "develop"}

// knownFlavors are base-image variants never picked up implicitly.
var knownFlavors = []string{"alpine", "ubuntu", "distroless"}

// selectCandidate picks the first tag, in given (newest-first) order,
// that looks like a stable release and matches the flavor rules: with
// preservation on and a flavored current tag, candidates must carry the
// same flavor suffix; otherwise tags ending in a known flavor are
// excluded so the base image never changes silently.
func selectCandidate(tags []string, current string, preserveFlavor bool) string {
	flavor := ""
	if preserveFlavor {
		flavor = flavorOf(current)
	}

	for _, tag := range tags {
		if !stableShape.MatchString(tag) {
			continue
		}
		if hasUnstableMarker(tag) {
			continue
		}
		if flavor != "" {
			if !strings.HasSuffix(tag, "-"+flavor) {
				continue
			}
		} else if hasKnownFlavor(tag) {
			continue
		}
		return tag
	}
	return ""
}

// flavorOf returns the alphabetic flavor suffix of a tag, "" if none.
func flavorOf(tag string) string {
	m := flavorSuffix.FindStringSubmatch(tag)
	if m == nil {
		return ""
	}
	return m[1]
}

func hasUnstableMarker(tag string) bool {
	lower := strings.ToLower(tag)
	for _, marker := range unstableMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func hasKnownFlavor(tag string) bool {
	for _, f := range knownFlavors {
		if strings.HasSuffix(tag, "-"+f) {
			return true
		}
	}
	return false
}

// majorOf extracts the leading major version of a tag: the integer
// before the first dot or end of string, after an optional "v" prefix.
// Unparseable tags yield zero.
func majorOf(tag string) uint64 {
	if v, err := semver.NewVersion(tag); err == nil {
		return v.Major()
	}
	s := strings.TrimPrefix(tag, "v")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.ParseUint(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
