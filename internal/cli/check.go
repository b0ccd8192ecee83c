package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcptrust/scorecard/internal/config"
)

func checkCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a scorecard config file",
		Long: `Validate a scorecard config file: point tables must sum to 100, trust
bands must tile 0-100, and the budget must be positive.

Examples:
  scorecard check --config scorecard.yaml
  scorecard check`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg *config.Config
			if configFile != "" {
				var err error
				cfg, err = config.Load(configFile)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Config validation FAILED: %v\n", err)
					return err
				}
				cmd.Println("Config validation: OK")
			} else {
				cfg = config.Defaults()
				cmd.Println("Using default config (no --config specified)")
			}

			window := cfg.GitHub.Budget.WindowMinutes
			cmd.Printf("  Snapshot:    %s\n", orUnset(cfg.Registry.Snapshot))
			cmd.Printf("  API base:    %s\n", cfg.GitHub.APIBase)
			cmd.Printf("  Budget:      %d calls / %d min (%d anonymous)\n",
				cfg.GitHub.Budget.Calls, window, cfg.GitHub.Budget.AnonymousCalls)
			cmd.Printf("  Concurrency: %d workers\n", cfg.GitHub.Concurrency)
			cmd.Printf("  Run ceiling: %d min\n", cfg.GitHub.MaxRunMinutes)
			cmd.Printf("  Cache:       %s\n", cacheSummary(cfg.GitHub.Cache))
			cmd.Printf("  Bands:       %d trust bands\n", len(cfg.Scoring.Bands))
			cmd.Printf("  Patterns:    %d template, %d staging, %d sensitive, %d api-key\n",
				len(cfg.Patterns.TemplateDescriptions), len(cfg.Patterns.StagingNames),
				len(cfg.Patterns.SensitiveCredentials), len(cfg.Patterns.APIKeys))
			cmd.Printf("  Output dir:  %s\n", cfg.Output.Dir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path to validate")

	return cmd
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}

func cacheSummary(c config.Cache) string {
	if !c.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("%s (max age %dd)", c.Path, c.MaxAgeDays)
}
