package enrich

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcptrust/scorecard/internal/metrics"
	"github.com/mcptrust/scorecard/internal/registry"
	"github.com/mcptrust/scorecard/internal/runlog"
	"github.com/mcptrust/scorecard/internal/signal"
)

// State is the final enrichment disposition of one entry.
type State string

// Enrichment states. Every input entry ends in exactly one; none are
// ever dropped.
const (
	StateEnriched        State = "enriched"         // all lookups succeeded
	StatePartial         State = "partial"          // some lookups failed, signals partially unknown
	StateFailed          State = "failed"           // every lookup failed, repo signals unknown
	StateNoRepo          State = "no_repo"          // entry declares no source repository
	StateUnsupportedHost State = "unsupported_host" // repo URL is not a GitHub repository
	StateDeadline        State = "deadline"         // run ceiling reached before lookups completed
)

// Outcome pairs the gathered signals with how the entry fared. Data is nil
// for entries without a usable repository locator.
type Outcome struct {
	State   State     `json:"state"`
	ErrKind string    `json:"error,omitempty"`
	Cached  bool      `json:"cached,omitempty"`
	Data    *RepoData `json:"-"`
}

// API is the lookup surface of the signal provider. *Client implements it;
// tests substitute a recording fake.
type API interface {
	RepoMetadata(ctx context.Context, owner, repo string) (*RepoMetadata, error)
	CommunityProfile(ctx context.Context, owner, repo string) (*CommunityProfile, error)
	Participation(ctx context.Context, owner, repo string) (*Participation, error)
}

// Options tunes an Enricher. Zero values get sensible defaults.
type Options struct {
	Concurrency int
	RetryDelay  time.Duration
	Cache       *Cache // nil disables caching
	Log         *runlog.Logger
	Metrics     *metrics.Metrics
}

// Enricher drives budgeted, concurrent signal lookups for a batch of
// entries. It performs no writes against the external API, so re-running
// against unchanged external state yields the same signals.
type Enricher struct {
	api     API
	limiter Limiter
	opts    Options
}

// New creates an Enricher. limiter must be the single shared budget for
// the whole run.
func New(api API, limiter Limiter, opts Options) *Enricher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	if opts.Log == nil {
		opts.Log = runlog.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	return &Enricher{api: api, limiter: limiter, opts: opts}
}

// Run enriches every entry, returning one Outcome per input entry keyed by
// entry name. Individual failures never abort the batch; when ctx expires
// (the whole-run ceiling) the remaining entries complete immediately with
// StateDeadline and unknown signals.
func (e *Enricher) Run(ctx context.Context, entries []registry.Entry) map[string]Outcome {
	results := make(map[string]Outcome, len(entries))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)

	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			out := e.enrichEntry(ctx, entry)
			e.opts.Metrics.EntryState(string(out.State))

			mu.Lock()
			results[entry.Name] = out
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		pending := 0
		for _, out := range results {
			if out.State == StateDeadline {
				pending++
			}
		}
		e.opts.Log.DeadlineReached(pending)
	}
	return results
}

func (e *Enricher) enrichEntry(ctx context.Context, entry registry.Entry) Outcome {
	if entry.RepoURL == "" {
		return Outcome{State: StateNoRepo}
	}
	owner, repo, ok := registry.SplitRepoURL(entry.RepoURL)
	if !ok {
		return Outcome{State: StateUnsupportedHost}
	}
	if ctx.Err() != nil {
		return Outcome{State: StateDeadline, ErrKind: KindDeadline}
	}

	if e.opts.Cache != nil {
		if data := e.opts.Cache.Get(owner, repo); data != nil {
			e.opts.Metrics.CacheEvent("hit")
			e.opts.Log.CacheHit(entry.Name)
			return Outcome{State: StateEnriched, Cached: true, Data: data}
		}
		e.opts.Metrics.CacheEvent("miss")
	}

	start := time.Now()
	data := &RepoData{Owner: owner}
	var failures []error

	meta, err := lookup(ctx, e, entry.Name, func(ctx context.Context) (*RepoMetadata, error) {
		return e.api.RepoMetadata(ctx, owner, repo)
	})
	if err != nil {
		failures = append(failures, err)
	} else {
		applyMetadata(data, meta)
	}

	profile, err := lookup(ctx, e, entry.Name, func(ctx context.Context) (*CommunityProfile, error) {
		return e.api.CommunityProfile(ctx, owner, repo)
	})
	if err != nil {
		failures = append(failures, err)
	} else {
		data.HasSecurityPolicy = signal.Some(profile.HasSecurity())
		data.HasCodeOfConduct = signal.Some(profile.HasCodeOfConduct())
		data.HealthPercentage = signal.Some(profile.HealthPercentage)
	}

	part, err := lookup(ctx, e, entry.Name, func(ctx context.Context) (*Participation, error) {
		return e.api.Participation(ctx, owner, repo)
	})
	if err != nil {
		failures = append(failures, err)
	} else {
		applyParticipation(data, part)
	}

	switch len(failures) {
	case 0:
		e.opts.Log.LookupOK(entry.Name, owner, repo, time.Since(start))
		if e.opts.Cache != nil {
			if err := e.opts.Cache.Put(owner, repo, data); err == nil {
				e.opts.Metrics.CacheEvent("store")
			}
		}
		return Outcome{State: StateEnriched, Data: data}
	case 3:
		kind := Kind(failures[0])
		if kind == KindDeadline {
			return Outcome{State: StateDeadline, ErrKind: kind}
		}
		return Outcome{State: StateFailed, ErrKind: kind, Data: data}
	default:
		return Outcome{State: StatePartial, ErrKind: Kind(failures[0]), Data: data}
	}
}

// lookup runs one budgeted API call with the partial-failure policy:
// terminal failures (not-found, forbidden) return immediately, rate-limit
// and transient failures get a single delayed retry, then degrade to
// unknown. Each attempt spends exactly one budget slot.
func lookup[T any](ctx context.Context, e *Enricher, entry string, fn func(context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(e.opts.RetryDelay):
			}
		}

		waitStart := time.Now()
		if aerr := e.limiter.Acquire(ctx); aerr != nil {
			e.opts.Metrics.ObserveLookup(KindDeadline, 0)
			return result, aerr
		}
		wait := time.Since(waitStart)
		e.opts.Metrics.ObserveBudgetWait(wait)
		if wait > time.Second {
			e.opts.Log.BudgetWait(entry, wait)
		}

		callStart := time.Now()
		result, err = fn(ctx)
		if err == nil {
			e.opts.Metrics.ObserveLookup("ok", time.Since(callStart))
			return result, nil
		}
		e.opts.Metrics.ObserveLookup(Kind(err), time.Since(callStart))
		e.opts.Log.LookupFailed(entry, Kind(err), err)
		if !retryable(err) {
			return result, err
		}
	}
	return result, err
}

func applyMetadata(data *RepoData, meta *RepoMetadata) {
	data.Stars = signal.Some(meta.StargazersCount)
	data.Forks = signal.Some(meta.ForksCount)
	data.Watchers = signal.Some(meta.SubscribersCount)
	data.Archived = signal.Some(meta.Archived)
	if meta.License != nil {
		data.License = signal.Some(meta.License.SpdxID)
	} else {
		data.License = signal.Some("") // observed: no license
	}
	if !meta.CreatedAt.IsZero() {
		data.CreatedAt = signal.Some(meta.CreatedAt)
	}
	if !meta.PushedAt.IsZero() {
		data.PushedAt = signal.Some(meta.PushedAt)
	}
}

func applyParticipation(data *RepoData, part *Participation) {
	weeks := 0
	for _, w := range part.All {
		if w > 0 {
			weeks++
		}
	}
	if len(part.All) > 0 {
		data.CommitWeeksActive = signal.Some(weeks)
	}
	data.Contributors = estimateContributors(part.All, part.Owner)
}
