// Package output assembles and publishes the scored index. Everything
// here is deterministic: given the same servers, run id, and timestamp,
// the emitted JSON is byte-identical across runs. Maps marshal with
// sorted keys and every list carries an explicit sort order.
package output

import (
	"math"
	"sort"
	"time"

	"github.com/mcptrust/scorecard/internal/enrich"
	"github.com/mcptrust/scorecard/internal/normalize"
	"github.com/mcptrust/scorecard/internal/registry"
	"github.com/mcptrust/scorecard/internal/score"
)

// IndexVersion is bumped when the published index shape changes.
const IndexVersion = 1

const topServerCount = 25

// Server pairs one registry entry with its enrichment outcome and report.
type Server struct {
	Entry   registry.Entry
	Outcome enrich.Outcome
	Report  score.Report
}

// ServerScore is one published index record. The enrichment state is
// always present so consumers can tell a real zero from an unscoreable
// entry with unknown signals.
type ServerScore struct {
	Name            string `json:"name"`
	Namespace       string `json:"namespace"`
	Description     string `json:"description,omitempty"`
	Version         string `json:"version,omitempty"`
	RepoURL         string `json:"repo_url,omitempty"`
	EnrichmentState string `json:"enrichment_state"`
	EnrichmentError string `json:"enrichment_error,omitempty"`
	FromCache       bool   `json:"from_cache,omitempty"`

	score.Report
}

// Index is the primary published artifact. Servers holds one record per
// input entry, including failed and deadline-hit ones; Problems records
// snapshot entries that could not be scored at all.
type Index struct {
	Version     int                    `json:"version"`
	RunID       string                 `json:"run_id"`
	GeneratedAt time.Time              `json:"generated_at"`
	ServerCount int                    `json:"server_count"`
	Servers     map[string]ServerScore `json:"servers"`
	Problems    []registry.Problem     `json:"problems,omitempty"`
}

// RankedServer is one row of the stats leaderboard.
type RankedServer struct {
	Name       string `json:"name"`
	TrustScore int    `json:"trust_score"`
	TrustLabel string `json:"trust_label"`
}

// DuplicateGroup lists the servers sharing one normalized description
// across three or more namespaces.
type DuplicateGroup struct {
	Description string   `json:"description"`
	Servers     []string `json:"servers"`
}

// Coverage summarizes how much of the batch had scoreable inputs.
type Coverage struct {
	WithRepo     int `json:"with_repo"`
	WithPackages int `json:"with_packages"`
	Enriched     int `json:"enriched"`
}

// Stats is the run summary artifact.
type Stats struct {
	RunID                 string           `json:"run_id"`
	GeneratedAt           time.Time        `json:"generated_at"`
	ServerCount           int              `json:"server_count"`
	MeanScore             float64          `json:"mean_score"`
	MedianScore           float64          `json:"median_score"`
	Bands                 map[string]int   `json:"bands"`
	Flags                 map[string]int   `json:"flags"`
	EnrichmentStates      map[string]int   `json:"enrichment_states"`
	Coverage              Coverage         `json:"coverage"`
	TopServers            []RankedServer   `json:"top_servers"`
	DuplicateDescriptions []DuplicateGroup `json:"duplicate_descriptions,omitempty"`
}

// FlagsIndex maps every raised flag to the sorted list of servers
// carrying it, for consumers that only care about risk conditions.
type FlagsIndex struct {
	RunID       string              `json:"run_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Flags       map[string][]string `json:"flags"`
}

// BuildIndex assembles the published index from scored servers.
func BuildIndex(runID string, generatedAt time.Time, servers []Server, problems []registry.Problem) Index {
	records := make(map[string]ServerScore, len(servers))
	for _, s := range servers {
		records[s.Entry.Name] = ServerScore{
			Name:            s.Entry.Name,
			Namespace:       s.Entry.Namespace,
			Description:     s.Entry.Description,
			Version:         s.Entry.Version,
			RepoURL:         s.Entry.RepoURL,
			EnrichmentState: string(s.Outcome.State),
			EnrichmentError: s.Outcome.ErrKind,
			FromCache:       s.Outcome.Cached,
			Report:          s.Report,
		}
	}
	return Index{
		Version:     IndexVersion,
		RunID:       runID,
		GeneratedAt: generatedAt,
		ServerCount: len(records),
		Servers:     records,
		Problems:    problems,
	}
}

// BuildStats derives the run summary from the index and the source
// servers (needed for coverage and duplicate-description grouping).
func BuildStats(idx Index, servers []Server) Stats {
	stats := Stats{
		RunID:            idx.RunID,
		GeneratedAt:      idx.GeneratedAt,
		ServerCount:      idx.ServerCount,
		Bands:            make(map[string]int),
		Flags:            make(map[string]int),
		EnrichmentStates: make(map[string]int),
	}

	var scores []int
	for _, rec := range idx.Servers {
		scores = append(scores, rec.TrustScore)
		stats.Bands[rec.TrustLabel]++
		stats.EnrichmentStates[rec.EnrichmentState]++
		for _, f := range rec.Flags {
			stats.Flags[string(f)]++
		}
	}
	stats.MeanScore = mean(scores)
	stats.MedianScore = median(scores)
	stats.TopServers = topServers(idx, topServerCount)

	for _, s := range servers {
		if s.Entry.RepoURL != "" {
			stats.Coverage.WithRepo++
		}
		if s.Entry.HasPackages {
			stats.Coverage.WithPackages++
		}
		if s.Outcome.State == enrich.StateEnriched {
			stats.Coverage.Enriched++
		}
	}
	stats.DuplicateDescriptions = duplicateGroups(servers)
	return stats
}

// BuildFlagsIndex inverts the index into flag -> sorted server names.
func BuildFlagsIndex(idx Index) FlagsIndex {
	flags := make(map[string][]string)
	for name, rec := range idx.Servers {
		for _, f := range rec.Flags {
			flags[string(f)] = append(flags[string(f)], name)
		}
	}
	for _, names := range flags {
		sort.Strings(names)
	}
	return FlagsIndex{RunID: idx.RunID, GeneratedAt: idx.GeneratedAt, Flags: flags}
}

func topServers(idx Index, n int) []RankedServer {
	ranked := make([]RankedServer, 0, len(idx.Servers))
	for name, rec := range idx.Servers {
		ranked = append(ranked, RankedServer{
			Name:       name,
			TrustScore: rec.TrustScore,
			TrustLabel: rec.TrustLabel,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TrustScore != ranked[j].TrustScore {
			return ranked[i].TrustScore > ranked[j].TrustScore
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// duplicateGroups mirrors the DESCRIPTION_DUPLICATE predicate: a group
// is published when a normalized description spans three or more
// distinct namespaces.
func duplicateGroups(servers []Server) []DuplicateGroup {
	type group struct {
		names      []string
		namespaces map[string]struct{}
	}
	byDesc := make(map[string]*group)
	for _, s := range servers {
		desc := normalize.Description(s.Entry.Description)
		if desc == "" {
			continue
		}
		g, ok := byDesc[desc]
		if !ok {
			g = &group{namespaces: make(map[string]struct{})}
			byDesc[desc] = g
		}
		g.names = append(g.names, s.Entry.Name)
		ns := s.Entry.Namespace
		if ns == "" {
			ns = s.Entry.Name
		}
		g.namespaces[ns] = struct{}{}
	}

	var out []DuplicateGroup
	for desc, g := range byDesc {
		if len(g.namespaces) < 3 {
			continue
		}
		sort.Strings(g.names)
		out = append(out, DuplicateGroup{Description: desc, Servers: g.names})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Description < out[j].Description })
	return out
}

func mean(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return round2(float64(sum) / float64(len(scores)))
}

func median(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sorted := make([]int, len(scores))
	copy(sorted, scores)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
