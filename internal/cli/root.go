// Package cli implements the scorecard command-line interface using cobra.
package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// Build metadata, set at build time via ldflags.
var (
	Version   = "0.1.0-dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
	GoVersion = runtime.Version()
)

// Execute runs the root command.
func Execute() error {
	return rootCmd().Execute()
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scorecard",
		Short: "Trust scoring for MCP registry servers",
		Long: `Scorecard enriches MCP registry entries with repository signals and
computes a 0-100 trust score per server: provenance, maintenance,
popularity, and permissions, plus independent risk flags.

Quick start:
  scorecard score --config scorecard.yaml
  scorecard score --snapshot servers.json --output ./public
  scorecard check --config scorecard.yaml`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		scoreCmd(),
		checkCmd(),
		versionCmd(),
	)

	return cmd
}
