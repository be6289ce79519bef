// Package updater drives the update pipeline: extract image references,
// resolve each against policy, build the update plan, back the file up
// and rewrite it, and report what happened.
package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/obscale/composeup/internal/common/logger"
	"github.com/obscale/composeup/internal/compose"
	"github.com/obscale/composeup/internal/policy"
)

// Error variables for pipeline errors
var (
	// ErrComposeNotFound is returned when the compose file does not exist
	ErrComposeNotFound = errors.New("compose file not found")
	// ErrBackupFailed is returned when the pre-edit backup could not be written
	ErrBackupFailed = errors.New("backup failed, compose file left untouched")
)

// Options configures a single run.
type Options struct {
	// File is the compose file to maintain.
	File string
	// Official selects curated-pin resolution instead of live queries.
	Official bool
	// DryRun computes and reports the plan without backup or write.
	DryRun bool
	// Now supplies the backup timestamp; defaults to time.Now.
	Now func() time.Time
}

// ReportEntry records the outcome for one distinct image reference.
type ReportEntry struct {
	// Image is the repository name.
	Image string
	// OldTag is the tag found in the file.
	OldTag string
	// NewTag is the tag the file now carries, or the rejected candidate
	// for a major-gate skip.
	NewTag string
	// Applied is true when the file was (or, dry-run, would be) rewritten.
	Applied bool
	// Reason explains a non-applied entry; empty means up to date.
	Reason policy.SkipReason
}

// RunReport is the ordered account of one run, used only for output.
type RunReport struct {
	Entries    []ReportEntry
	BackupPath string
	DryRun     bool
}

// Changed returns the number of applied updates.
func (r *RunReport) Changed() int {
	n := 0
	for _, e := range r.Entries {
		if e.Applied {
			n++
		}
	}
	return n
}

// MajorSkips returns the entries rejected by the major-version gate.
func (r *RunReport) MajorSkips() []ReportEntry {
	var skips []ReportEntry
	for _, e := range r.Entries {
		if e.Reason == policy.SkipMajorGate {
			skips = append(skips, e)
		}
	}
	return skips
}

// Updater runs the pipeline over one compose file.
type Updater struct {
	resolver *policy.Resolver
	opts     Options
}

// New creates an updater for the given resolver and options.
func New(resolver *policy.Resolver, opts Options) *Updater {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Updater{resolver: resolver, opts: opts}
}

// Run executes the pipeline once. Per-image resolution failures fail
// open and show up in the report; only a missing file, an unreadable
// file or a failed backup abort the run. The compose file is never
// touched unless the backup succeeded.
func (u *Updater) Run(ctx context.Context) (*RunReport, error) {
	raw, err := os.ReadFile(u.opts.File)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrComposeNotFound, u.opts.File)
		}
		return nil, fmt.Errorf("failed to read compose file: %w", err)
	}
	text := string(raw)

	refs := dedupe(compose.Extract(text))
	logger.Debug("found %d distinct image reference(s) in %s", len(refs), u.opts.File)

	report := &RunReport{DryRun: u.opts.DryRun}
	plan := make(map[string]string, len(refs))

	for _, ref := range refs {
		out := u.resolver.Resolve(ctx, ref)
		entry := ReportEntry{Image: ref.Repository, OldTag: ref.Tag, NewTag: out.Tag, Reason: out.Skip}

		switch {
		case out.Skip == policy.SkipUnknown:
			// Reported, but excluded from the plan entirely.
		case out.Skip == policy.SkipMajorGate:
			entry.NewTag = out.Candidate
		case out.Skip == policy.SkipLookupFailed && out.Err != nil:
			logger.Warn("lookup failed for %s, keeping %s: %v", ref.Repository, ref.Tag, out.Err)
		case out.Tag != ref.Tag:
			entry.Applied = true
			plan[ref.String()] = ref.Repository + ":" + out.Tag
		}
		report.Entries = append(report.Entries, entry)
	}

	if len(plan) == 0 || u.opts.DryRun {
		return report, nil
	}

	backupPath, err := compose.Backup(u.opts.File, u.opts.Now())
	if err != nil {
		return report, fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}
	report.BackupPath = backupPath
	logger.Debug("backup written to %s", backupPath)

	perm := os.FileMode(0644)
	if info, err := os.Stat(u.opts.File); err == nil {
		perm = info.Mode().Perm()
	}
	if err := os.WriteFile(u.opts.File, []byte(compose.Rewrite(text, plan)), perm); err != nil {
		return report, fmt.Errorf("failed to write compose file: %w", err)
	}
	return report, nil
}

// dedupe collapses duplicate repository:tag pairs to one logical update
// while keeping first-seen order. All on-disk occurrences are still
// rewritten; only resolution happens once per pair.
func dedupe(refs []compose.ImageRef) []compose.ImageRef {
	seen := make(map[string]bool, len(refs))
	out := refs[:0:0]
	for _, ref := range refs {
		key := ref.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ref)
	}
	return out
}
