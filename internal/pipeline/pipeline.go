// Package pipeline wires the run stages together: collect the snapshot,
// enrich under budget, score, publish. One Run call is one complete,
// reproducible scoring pass over the registry snapshot.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mcptrust/scorecard/internal/config"
	"github.com/mcptrust/scorecard/internal/enrich"
	"github.com/mcptrust/scorecard/internal/metrics"
	"github.com/mcptrust/scorecard/internal/output"
	"github.com/mcptrust/scorecard/internal/registry"
	"github.com/mcptrust/scorecard/internal/runlog"
	"github.com/mcptrust/scorecard/internal/score"
)

// Pipeline runs scoring passes against one validated configuration.
type Pipeline struct {
	cfg      *config.Config
	log      *runlog.Logger
	met      *metrics.Metrics
	sentryOn bool
}

// Result summarizes a completed run.
type Result struct {
	RunID     string
	Scored    int
	Flagged   int
	Problems  int
	OutputDir string
	Elapsed   time.Duration
}

// New creates a Pipeline. log and met may be nil for silent operation.
func New(cfg *config.Config, log *runlog.Logger, met *metrics.Metrics) *Pipeline {
	if log == nil {
		log = runlog.NewNop()
	}
	if met == nil {
		met = metrics.New()
	}
	p := &Pipeline{cfg: cfg, log: log, met: met}
	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err == nil {
			p.sentryOn = true
		}
	}
	return p
}

// Run executes one full scoring pass. Per-entry failures degrade to
// unknown signals; the only run-fatal conditions are an unreadable
// snapshot, a scoring invariant violation, and a publish failure.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	start := time.Now()
	if p.sentryOn {
		defer sentry.Flush(2 * time.Second)
	}

	p.log.Stage("collect")
	entries, problems, err := registry.LoadSnapshot(p.cfg.Registry.Snapshot)
	if err != nil {
		return nil, p.fatal(err)
	}
	for _, prob := range problems {
		p.log.EntryInvalid(prob.Position, prob.Reason)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	token := os.Getenv(p.cfg.GitHub.TokenEnv)
	p.log.RunStart(runID, len(entries), token != "")

	outcomes, cleanup, err := p.enrichStage(ctx, entries, token)
	if err != nil {
		return nil, p.fatal(err)
	}
	defer cleanup()

	p.log.Stage("score")
	generatedAt := time.Now().UTC()
	servers, err := p.scoreStage(entries, outcomes, generatedAt)
	if err != nil {
		return nil, p.fatal(err)
	}

	p.log.Stage("publish")
	idx := output.BuildIndex(runID, generatedAt, servers, problems)
	stats := output.BuildStats(idx, servers)
	fidx := output.BuildFlagsIndex(idx)
	if err := output.WriteAll(p.cfg.Output.Dir, idx, stats, fidx); err != nil {
		return nil, p.fatal(err)
	}

	flagged := 0
	for _, s := range servers {
		if len(s.Report.Flags) > 0 {
			flagged++
		}
	}
	elapsed := time.Since(start)
	p.log.RunComplete(runID, len(servers), flagged, elapsed)

	return &Result{
		RunID:     runID,
		Scored:    len(servers),
		Flagged:   flagged,
		Problems:  len(problems),
		OutputDir: p.cfg.Output.Dir,
		Elapsed:   elapsed,
	}, nil
}

// enrichStage builds the budget, client, and optional cache, then runs
// enrichment under the whole-run deadline. The returned cleanup closes
// the cache handle.
func (p *Pipeline) enrichStage(ctx context.Context, entries []registry.Entry, token string) (map[string]enrich.Outcome, func(), error) {
	gh := p.cfg.GitHub

	calls := gh.Budget.Calls
	if token == "" {
		calls = gh.Budget.AnonymousCalls
	}
	budget := enrich.NewBudget(calls, time.Duration(gh.Budget.WindowMinutes)*time.Minute)
	client := enrich.NewClient(gh.APIBase, token, time.Duration(gh.TimeoutSeconds)*time.Second)

	cleanup := func() {}
	var cache *enrich.Cache
	if gh.Cache.Enabled {
		var err error
		cache, err = enrich.OpenCache(gh.Cache.Path, time.Duration(gh.Cache.MaxAgeDays)*24*time.Hour)
		if err != nil {
			return nil, cleanup, fmt.Errorf("opening lookup cache: %w", err)
		}
		cleanup = func() { cache.Close() }
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(gh.MaxRunMinutes)*time.Minute)
	defer cancel()

	p.log.Stage("enrich")
	enricher := enrich.New(client, budget, enrich.Options{
		Concurrency: gh.Concurrency,
		RetryDelay:  time.Duration(gh.RetryDelaySeconds) * time.Second,
		Cache:       cache,
		Log:         p.log,
		Metrics:     p.met,
	})
	return enricher.Run(runCtx, entries), cleanup, nil
}

// scoreStage runs the duplicate-description pre-pass, then scores every
// entry concurrently into a slice indexed by the sorted entry order. A
// calculator invariant violation aborts the run.
func (p *Pipeline) scoreStage(entries []registry.Entry, outcomes map[string]enrich.Outcome, now time.Time) ([]output.Server, error) {
	calc := score.NewCalculator(p.cfg, now)
	bctx := score.BuildBatchContext(entries)

	servers := make([]output.Server, len(entries))
	var g errgroup.Group
	g.SetLimit(p.cfg.GitHub.Concurrency)
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			out := outcomes[e.Name]
			flags := calc.DetectFlags(e, out.Data, bctx)
			for _, f := range flags {
				p.met.Flag(string(f))
			}
			report, err := calc.Score(e, out.Data, flags)
			if err != nil {
				return err
			}
			servers[i] = output.Server{Entry: e, Outcome: out, Report: report}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return servers, nil
}

// fatal records a run-fatal error in the log and error tracker.
func (p *Pipeline) fatal(err error) error {
	p.log.Fatal(err)
	if p.sentryOn {
		sentry.CaptureException(err)
	}
	return err
}
