package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/obscale/composeup/internal/common/config"
	"github.com/obscale/composeup/internal/common/logger"
	"github.com/obscale/composeup/internal/common/output"
	"github.com/obscale/composeup/internal/policy"
	"github.com/obscale/composeup/internal/registry"
	"github.com/obscale/composeup/internal/updater"
	"github.com/spf13/cobra"
)

// policyFileName is looked up next to the compose file for
// per-project policy overrides.
const policyFileName = ".composeup/policies.toml"

var (
	verbose  bool
	quiet    bool
	noColor  bool
	logFile  bool
	official bool
	dryRun   bool
)

var rootCmd = &cobra.Command{
	Use:   "composeup [compose-file]",
	Short: "Keep docker-compose image tags up to date",
	Long: `Scans a docker-compose file for image declarations, resolves newer
tags per repository policy and rewrites the file in place after a
timestamped backup.

By default tags are resolved conservatively against the live registry,
with stability filtering, flavor preservation and a major-version gate.
With --official, tags come from a hand-curated table of mutually tested
versions and no network access happens.`,
	Args: cobra.MaximumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetVerbose(true)
		}
		if quiet {
			logger.SetQuiet(true)
		}
		if noColor {
			output.NoColor()
		}
		if logFile {
			if err := logger.Default().EnableFileLogging(); err != nil {
				logger.Warn("file logging disabled: %v", err)
			}
		}
	},
	Run: runUpdate,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&logFile, "log-file", false, "Also log to the state directory")

	rootCmd.Flags().BoolVar(&official, "official", false, "Resolve from the curated version table, no network access")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the plan without backing up or writing")
}

func runUpdate(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("loading config: %v", err)
		os.Exit(1)
	}

	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	file := cfg.ComposeFile(arg)
	if _, err := os.Stat(file); err != nil {
		logger.Error("compose file not found: %s", file)
		os.Exit(1)
	}

	table := policy.Defaults()
	overridePath := filepath.Join(filepath.Dir(file), policyFileName)
	if _, err := os.Stat(overridePath); err == nil {
		overrides, err := policy.LoadOverrides(overridePath)
		if err != nil {
			logger.Error("loading %s: %v", overridePath, err)
			os.Exit(1)
		}
		table.Merge(overrides)
		logger.Debug("merged %d policy override(s) from %s", len(overrides), overridePath)
	}

	resolver := policy.NewResolver(table, newHubClient(cfg), newReleaseClient(cfg), official)
	u := updater.New(resolver, updater.Options{
		File:     file,
		Official: official,
		DryRun:   dryRun,
	})

	report, err := u.Run(context.Background())
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	displayReport(file, report)
}

func newHubClient(cfg *config.Config) *registry.HubClient {
	c := registry.NewHubClient()
	if cfg.Registry.HubURL != "" {
		c.BaseURL = cfg.Registry.HubURL
	}
	return c
}

func newReleaseClient(cfg *config.Config) *registry.ReleaseClient {
	c := registry.NewReleaseClient(cfg.GitHub.Token)
	if cfg.GitHub.APIURL != "" {
		c.BaseURL = cfg.GitHub.APIURL
	}
	return c
}

// displayReport prints the run outcome: applied changes, skips with
// their reasons, and the manual-migration advisory for gated upgrades.
func displayReport(file string, report *updater.RunReport) {
	fmt.Println()
	if report.DryRun {
		output.Header.Printf("Update Plan (dry run) — %s\n", file)
	} else {
		output.Header.Printf("Update Report — %s\n", file)
	}
	fmt.Println()

	if len(report.Entries) == 0 {
		logger.Info("No image declarations found")
		return
	}

	for _, e := range report.Entries {
		name := output.Sprintf(output.Image, "%s", e.Image)
		switch {
		case e.Applied:
			output.Updated.Printf("  %s: %s → %s\n", name, e.OldTag, e.NewTag)
		case e.Reason == policy.SkipMajorGate:
			output.Gated.Printf("  %s: %s → %s (%s)\n", name, e.OldTag, e.NewTag, e.Reason)
		case e.Reason != policy.SkipNone:
			output.Skipped.Printf("  %s: %s (%s)\n", name, e.OldTag, e.Reason)
		default:
			output.Dim.Printf("  %s: %s (up to date)\n", name, e.OldTag)
		}
	}
	fmt.Println()

	if gated := report.MajorSkips(); len(gated) > 0 {
		output.PrintWarning("%d major upgrade(s) withheld; major version moves need a manual migration", len(gated))
	}

	switch {
	case report.Changed() == 0:
		output.PrintSuccess("All images are up to date")
	case report.DryRun:
		output.PrintInfo("%d update(s) would be applied", report.Changed())
	default:
		output.PrintSuccess("%d update(s) applied", report.Changed())
		output.PrintInfo("Original saved to %s", report.BackupPath)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
