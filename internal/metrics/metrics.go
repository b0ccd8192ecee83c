// Package metrics provides Prometheus instrumentation and a JSON stats
// endpoint for the enrichment pipeline. The registry is private so tests
// and repeated runs never collide with the global default registry.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus counters and histograms for one run.
type Metrics struct {
	registry *prometheus.Registry

	lookupsTotal   *prometheus.CounterVec
	lookupLatency  prometheus.Histogram
	budgetWait     prometheus.Histogram
	cacheEvents    *prometheus.CounterVec
	entriesTotal   *prometheus.CounterVec
	flagsTotal     *prometheus.CounterVec

	mu           sync.Mutex
	startTime    time.Time
	lookupCounts map[string]int64
	entryCounts  map[string]int64
	flagCounts   map[string]int64
}

// New creates a Metrics instance with its own Prometheus registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	lookupsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scorecard",
		Name:      "lookups_total",
		Help:      "Total signal API lookups by outcome.",
	}, []string{"outcome"})

	lookupLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scorecard",
		Name:      "lookup_duration_seconds",
		Help:      "Signal API lookup latency in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	budgetWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scorecard",
		Name:      "budget_wait_seconds",
		Help:      "Time spent waiting for call budget replenishment.",
		Buckets:   []float64{0.001, 0.01, 0.1, 1, 10, 60, 300, 1800},
	})

	cacheEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scorecard",
		Name:      "cache_events_total",
		Help:      "Lookup cache events by kind.",
	}, []string{"event"})

	entriesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scorecard",
		Name:      "entries_total",
		Help:      "Entries processed by enrichment state.",
	}, []string{"state"})

	flagsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scorecard",
		Name:      "flags_total",
		Help:      "Risk flags raised by flag name.",
	}, []string{"flag"})

	reg.MustRegister(lookupsTotal, lookupLatency, budgetWait,
		cacheEvents, entriesTotal, flagsTotal)

	return &Metrics{
		registry:      reg,
		lookupsTotal:  lookupsTotal,
		lookupLatency: lookupLatency,
		budgetWait:    budgetWait,
		cacheEvents:   cacheEvents,
		entriesTotal:  entriesTotal,
		flagsTotal:    flagsTotal,
		startTime:     time.Now(),
		lookupCounts:  make(map[string]int64),
		entryCounts:   make(map[string]int64),
		flagCounts:    make(map[string]int64),
	}
}

// ObserveLookup records one API lookup with its classified outcome
// ("ok", "not_found", "forbidden", "rate_limited", "transient", "deadline").
func (m *Metrics) ObserveLookup(outcome string, duration time.Duration) {
	m.lookupsTotal.WithLabelValues(outcome).Inc()
	m.lookupLatency.Observe(duration.Seconds())

	m.mu.Lock()
	m.lookupCounts[outcome]++
	m.mu.Unlock()
}

// ObserveBudgetWait records time spent blocked on the shared call budget.
func (m *Metrics) ObserveBudgetWait(duration time.Duration) {
	m.budgetWait.Observe(duration.Seconds())
}

// CacheEvent records a cache hit, miss, or write.
func (m *Metrics) CacheEvent(event string) {
	m.cacheEvents.WithLabelValues(event).Inc()
}

// EntryState records the final enrichment state of one entry.
func (m *Metrics) EntryState(state string) {
	m.entriesTotal.WithLabelValues(state).Inc()

	m.mu.Lock()
	m.entryCounts[state]++
	m.mu.Unlock()
}

// Flag records one raised risk flag.
func (m *Metrics) Flag(flag string) {
	m.flagsTotal.WithLabelValues(flag).Inc()

	m.mu.Lock()
	m.flagCounts[flag]++
	m.mu.Unlock()
}

// Handler returns the Prometheus text-format scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Snapshot is the JSON stats shape served at /stats.
type Snapshot struct {
	UptimeSeconds float64          `json:"uptime_seconds"`
	Lookups       map[string]int64 `json:"lookups"`
	Entries       map[string]int64 `json:"entries"`
	Flags         map[string]int64 `json:"flags"`
}

// StatsHandler serves a JSON snapshot of the run counters.
func (m *Metrics) StatsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		m.mu.Lock()
		snap := Snapshot{
			UptimeSeconds: time.Since(m.startTime).Seconds(),
			Lookups:       copyCounts(m.lookupCounts),
			Entries:       copyCounts(m.entryCounts),
			Flags:         copyCounts(m.flagCounts),
		}
		m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	})
}

// Serve starts an HTTP listener exposing /metrics and /stats for the
// duration of a run. Returns the server so the caller can shut it down.
func (m *Metrics) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/stats", m.StatsHandler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
