// Package policy holds the per-repository upgrade rules and the
// resolver that interprets them. The rules are a declarative table
// mapping repository names to a policy variant; one interpreter covers
// both official and conservative modes.
package policy

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

// Error variables for policy configuration errors
var (
	// ErrInvalidKind is returned for an unrecognized policy kind
	ErrInvalidKind = errors.New("invalid policy kind: must be 'api', 'github' or 'skip'")
	// ErrMissingGitHubRepo is returned when a github policy has no source repository
	ErrMissingGitHubRepo = errors.New("missing required field: github_repo (required for github policies)")
)

// Kind selects how a candidate tag is produced for a repository.
type Kind string

const (
	// KindAPILookup resolves through the registry tag-listing endpoint.
	KindAPILookup Kind = "api"
	// KindGitHub resolves through the GitHub latest-release endpoint.
	KindGitHub Kind = "github"
	// KindAlwaysSkip never changes the tag automatically. Used for
	// images whose upgrades are known to need manual work.
	KindAlwaysSkip Kind = "skip"
)

// Entry is the upgrade rule for one repository.
type Entry struct {
	Kind Kind `toml:"kind"`
	// PreserveFlavor restricts candidates to the current tag's flavor
	// suffix (e.g. "-alpine") when the current tag carries one.
	PreserveFlavor bool `toml:"preserve_flavor,omitempty"`
	// MajorGate rejects candidates whose major version exceeds the
	// current one. Major moves need manual migration.
	MajorGate bool `toml:"major_gate,omitempty"`
	// GitHubRepo is the "org/repo" source project for github policies.
	GitHubRepo string `toml:"github_repo,omitempty"`
	// Pin is the hand-curated tag used in official mode, empty when the
	// repository has no curated entry.
	Pin string `toml:"pin,omitempty"`
}

// Table maps repository names to their upgrade rules. Repositories
// absent from the table are skipped with a warning and excluded from
// the update plan.
type Table struct {
	entries map[string]Entry
}

// Defaults returns the built-in policy table for the stack this tool is
// maintained against.
func Defaults() *Table {
	return &Table{entries: map[string]Entry{
		// Primary data store: major upgrades require a manual pg_upgrade.
		"postgres": {Kind: KindAPILookup, MajorGate: true, Pin: "15.8"},
		"redis":    {Kind: KindAPILookup, Pin: "7.2.5"},
		"nginx":    {Kind: KindAPILookup, Pin: "1.25.5"},
		"rabbitmq": {Kind: KindAPILookup, PreserveFlavor: true, Pin: "3.13.3"},
		// Log shipper is deployed on the alpine variant.
		"timberio/vector": {Kind: KindAPILookup, PreserveFlavor: true, Pin: "0.39.0-alpine"},
		"grafana/grafana": {Kind: KindAPILookup, Pin: "10.4.2"},
		// Versions track the GitHub project, not a Hub tag list.
		"gitea/gitea": {Kind: KindGitHub, GitHubRepo: "go-gitea/gitea", Pin: "1.21.11"},
		// Gateway upgrades break routing configs; curated pin only.
		"kong": {Kind: KindAlwaysSkip, Pin: "3.4"},
		// Deployment platform, upgraded through its own channel.
		"portainer/portainer-ce": {Kind: KindAlwaysSkip},
	}}
}

// Lookup returns the rule for a repository and whether one exists.
func (t *Table) Lookup(repo string) (Entry, bool) {
	e, ok := t.entries[repo]
	return e, ok
}

// Repositories returns the known repository names, sorted.
func (t *Table) Repositories() []string {
	repos := make([]string, 0, len(t.entries))
	for repo := range t.entries {
		repos = append(repos, repo)
	}
	sort.Strings(repos)
	return repos
}

// Merge overlays the given entries on the table, replacing existing
// rules and adding new ones.
func (t *Table) Merge(entries map[string]Entry) {
	for repo, e := range entries {
		t.entries[repo] = e
	}
}

// overridesFile is the TOML structure of a policy override file.
type overridesFile struct {
	Policies map[string]Entry `toml:"policies"`
}

// LoadOverrides reads a policy override file. Each [policies."repo"]
// section replaces or adds one table entry.
func LoadOverrides(path string) (map[string]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var file overridesFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	for repo, e := range file.Policies {
		if err := validateEntry(e); err != nil {
			return nil, fmt.Errorf("policy for %s: %w", repo, err)
		}
	}
	return file.Policies, nil
}

// validateEntry checks that an override entry is usable.
func validateEntry(e Entry) error {
	switch e.Kind {
	case KindAPILookup, KindAlwaysSkip:
		return nil
	case KindGitHub:
		if e.GitHubRepo == "" {
			return ErrMissingGitHubRepo
		}
		return nil
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidKind, e.Kind)
	}
}
