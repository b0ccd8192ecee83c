package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcptrust/scorecard/internal/config"
	"github.com/mcptrust/scorecard/internal/metrics"
	"github.com/mcptrust/scorecard/internal/pipeline"
	"github.com/mcptrust/scorecard/internal/runlog"
)

func scoreCmd() *cobra.Command {
	var (
		configFile    string
		snapshot      string
		outputDir     string
		metricsListen string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Run a full enrichment and scoring pass",
		Long: `Load the registry snapshot, enrich each entry with repository signals
under the shared API budget, score everything, and publish index.json,
stats.json, and flags.json to the output directory.

Examples:
  scorecard score --config scorecard.yaml
  scorecard score --snapshot servers.json --output ./public
  scorecard score --config scorecard.yaml --metrics-listen :9090`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			if snapshot != "" {
				cfg.Registry.Snapshot = snapshot
			}
			if outputDir != "" {
				cfg.Output.Dir = outputDir
			}
			if metricsListen != "" {
				cfg.Metrics.Listen = metricsListen
			}
			if cfg.Registry.Snapshot == "" {
				return fmt.Errorf("no snapshot: set registry.snapshot or pass --snapshot")
			}

			log, err := runlog.New(cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.File)
			if err != nil {
				return fmt.Errorf("setting up logging: %w", err)
			}
			defer log.Close()

			met := metrics.New()
			if cfg.Metrics.Listen != "" {
				srv := met.Serve(cfg.Metrics.Listen)
				defer srv.Close()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := pipeline.New(cfg, log, met).Run(ctx)
			if err != nil {
				return err
			}

			cmd.Printf("Run %s complete in %s\n", res.RunID, res.Elapsed.Round(time.Millisecond))
			cmd.Printf("  Scored:   %d servers\n", res.Scored)
			cmd.Printf("  Flagged:  %d servers\n", res.Flagged)
			if res.Problems > 0 {
				cmd.Printf("  Problems: %d malformed entries\n", res.Problems)
			}
			cmd.Printf("  Output:   %s\n", res.OutputDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "registry snapshot file (overrides config)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (overrides config)")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "address for the Prometheus /metrics listener")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Defaults()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid default config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
