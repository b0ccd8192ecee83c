package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcptrust/scorecard/internal/enrich"
	"github.com/mcptrust/scorecard/internal/registry"
	"github.com/mcptrust/scorecard/internal/score"
)

var testGeneratedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func server(name, ns string, trust int, label string, flags ...score.Flag) Server {
	if flags == nil {
		flags = []score.Flag{}
	}
	return Server{
		Entry: registry.Entry{
			Name:        name,
			Namespace:   ns,
			Description: "Server " + name,
			RepoURL:     "https://github.com/x/" + name,
			HasPackages: true,
		},
		Outcome: enrich.Outcome{State: enrich.StateEnriched},
		Report: score.Report{
			TrustScore: trust,
			TrustLabel: label,
			Flags:      flags,
		},
	}
}

func sampleServers() []Server {
	return []Server{
		server("io.github.a/one", "io.github.a", 85, "High Trust"),
		server("io.github.b/two", "io.github.b", 85, "High Trust", score.FlagTemplateDescription),
		server("io.github.c/three", "io.github.c", 40, "Low Trust", score.FlagDeadEntry, score.FlagNoSource),
		server("io.github.d/four", "io.github.d", 10, "Unknown/Suspicious", score.FlagDeadEntry),
	}
}

func TestBuildIndexCoversEveryEntry(t *testing.T) {
	servers := sampleServers()
	servers[3].Outcome = enrich.Outcome{State: enrich.StateFailed, ErrKind: "forbidden"}

	idx := BuildIndex("run-1", testGeneratedAt, servers, []registry.Problem{
		{Position: 7, Reason: "missing name identifier"},
	})

	if idx.ServerCount != 4 || len(idx.Servers) != 4 {
		t.Fatalf("server count = %d/%d, want 4", idx.ServerCount, len(idx.Servers))
	}
	for _, s := range servers {
		if _, ok := idx.Servers[s.Entry.Name]; !ok {
			t.Errorf("index missing %s", s.Entry.Name)
		}
	}

	failed := idx.Servers["io.github.d/four"]
	if failed.EnrichmentState != "failed" || failed.EnrichmentError != "forbidden" {
		t.Errorf("failed entry published as %s/%s", failed.EnrichmentState, failed.EnrichmentError)
	}
	if len(idx.Problems) != 1 || idx.Problems[0].Position != 7 {
		t.Errorf("problems = %+v", idx.Problems)
	}
}

func TestIndexDeterministic(t *testing.T) {
	forward := sampleServers()
	reversed := make([]Server, len(forward))
	for i, s := range forward {
		reversed[len(forward)-1-i] = s
	}

	a, err := json.MarshalIndent(BuildIndex("run-1", testGeneratedAt, forward, nil), "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.MarshalIndent(BuildIndex("run-1", testGeneratedAt, reversed, nil), "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("input order changed the published index bytes")
	}
}

func TestBuildStats(t *testing.T) {
	servers := sampleServers()
	idx := BuildIndex("run-1", testGeneratedAt, servers, nil)
	stats := BuildStats(idx, servers)

	// (85 + 85 + 40 + 10) / 4 = 55.
	if stats.MeanScore != 55 {
		t.Errorf("mean = %v, want 55", stats.MeanScore)
	}
	// Sorted scores 10,40,85,85: median (40+85)/2.
	if stats.MedianScore != 62.5 {
		t.Errorf("median = %v, want 62.5", stats.MedianScore)
	}
	if stats.Bands["High Trust"] != 2 || stats.Bands["Low Trust"] != 1 {
		t.Errorf("bands = %v", stats.Bands)
	}
	if stats.Flags["DEAD_ENTRY"] != 2 || stats.Flags["TEMPLATE_DESCRIPTION"] != 1 {
		t.Errorf("flags = %v", stats.Flags)
	}
	if stats.EnrichmentStates["enriched"] != 4 {
		t.Errorf("states = %v", stats.EnrichmentStates)
	}
	if stats.Coverage.WithRepo != 4 || stats.Coverage.WithPackages != 4 || stats.Coverage.Enriched != 4 {
		t.Errorf("coverage = %+v", stats.Coverage)
	}

	if len(stats.TopServers) != 4 {
		t.Fatalf("top = %d rows", len(stats.TopServers))
	}
	// Equal scores break ties by name.
	if stats.TopServers[0].Name != "io.github.a/one" || stats.TopServers[1].Name != "io.github.b/two" {
		t.Errorf("top order = %v, %v", stats.TopServers[0].Name, stats.TopServers[1].Name)
	}
	if stats.TopServers[3].TrustScore != 10 {
		t.Errorf("last ranked score = %d", stats.TopServers[3].TrustScore)
	}
}

func TestStatsDuplicateGroups(t *testing.T) {
	shared := "Browse and edit files over SFTP"
	servers := []Server{
		server("io.github.a/files", "io.github.a", 50, "Low Trust"),
		server("io.github.b/files", "io.github.b", 50, "Low Trust"),
		server("io.github.c/files", "io.github.c", 50, "Low Trust"),
		server("io.github.d/notes", "io.github.d", 50, "Low Trust"),
		server("io.github.e/notes", "io.github.e", 50, "Low Trust"),
	}
	for i := 0; i < 3; i++ {
		servers[i].Entry.Description = shared
	}
	servers[3].Entry.Description = "Keep notes in plain text"
	servers[4].Entry.Description = "Keep notes in plain text"

	idx := BuildIndex("run-1", testGeneratedAt, servers, nil)
	stats := BuildStats(idx, servers)

	if len(stats.DuplicateDescriptions) != 1 {
		t.Fatalf("groups = %+v, want exactly the 3-namespace group", stats.DuplicateDescriptions)
	}
	g := stats.DuplicateDescriptions[0]
	if g.Description != "browse and edit files over sftp" {
		t.Errorf("group description = %q, want normalized form", g.Description)
	}
	want := []string{"io.github.a/files", "io.github.b/files", "io.github.c/files"}
	if len(g.Servers) != 3 {
		t.Fatalf("group servers = %v", g.Servers)
	}
	for i, name := range want {
		if g.Servers[i] != name {
			t.Errorf("group servers[%d] = %q, want %q", i, g.Servers[i], name)
		}
	}
}

func TestBuildFlagsIndex(t *testing.T) {
	idx := BuildIndex("run-1", testGeneratedAt, sampleServers(), nil)
	fidx := BuildFlagsIndex(idx)

	dead := fidx.Flags["DEAD_ENTRY"]
	if len(dead) != 2 || dead[0] != "io.github.c/three" || dead[1] != "io.github.d/four" {
		t.Errorf("DEAD_ENTRY servers = %v", dead)
	}
	if len(fidx.Flags["NO_SOURCE"]) != 1 {
		t.Errorf("NO_SOURCE servers = %v", fidx.Flags["NO_SOURCE"])
	}
	if _, ok := fidx.Flags["HIGH_SECRET_DEMAND"]; ok {
		t.Error("unraised flag appears in the flags index")
	}
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	servers := sampleServers()
	idx := BuildIndex("run-1", testGeneratedAt, servers, nil)
	stats := BuildStats(idx, servers)
	fidx := BuildFlagsIndex(idx)

	if err := WriteAll(dir, idx, stats, fidx); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	for _, name := range []string{IndexFile, StatsFile, FlagsFile} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		if !json.Valid(data) {
			t.Errorf("%s is not valid JSON", name)
		}
		if len(data) == 0 || data[len(data)-1] != '\n' {
			t.Errorf("%s missing trailing newline", name)
		}
	}

	var decoded Index
	data, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decoding index: %v", err)
	}
	if decoded.RunID != "run-1" || decoded.ServerCount != 4 {
		t.Errorf("round-tripped index = %s/%d", decoded.RunID, decoded.ServerCount)
	}

	// Publishing the same inputs again must reproduce identical bytes.
	first, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteAll(dir, idx, stats, fidx); err != nil {
		t.Fatalf("second WriteAll: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("re-publishing identical inputs changed index.json bytes")
	}
}
