package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcptrust/scorecard/internal/config"
	"github.com/mcptrust/scorecard/internal/output"
)

// fakeGitHub answers the three lookup endpoints with healthy canned data,
// and 404s for any repo named "missing".
func fakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/community/profile"):
			w.Write([]byte(`{"health_percentage": 80, "files": {"security": {"url": "x"}, "code_of_conduct": null}}`))
		case strings.HasSuffix(r.URL.Path, "/stats/participation"):
			w.Write([]byte(`{"all": [2,2,2,2,2,2,2,2,2,2], "owner": [1,1,1,1,1,1,1,1,1,1]}`))
		default:
			w.Write([]byte(`{
				"stargazers_count": 1500, "forks_count": 120, "subscribers_count": 60,
				"archived": false, "license": {"spdx_id": "MIT"},
				"created_at": "2024-01-01T00:00:00Z", "pushed_at": "2026-02-20T00:00:00Z"
			}`))
		}
	}))
}

func writeSnapshot(t *testing.T, dir string, entries string) string {
	t.Helper()
	path := filepath.Join(dir, "snapshot.json")
	if err := os.WriteFile(path, []byte(entries), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(t *testing.T, snapshot, apiBase, outDir string) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Registry.Snapshot = snapshot
	cfg.GitHub.APIBase = apiBase
	cfg.GitHub.TokenEnv = "SCORECARD_TEST_TOKEN_UNSET"
	cfg.GitHub.Budget.AnonymousCalls = 5000
	cfg.GitHub.RetryDelaySeconds = 1
	cfg.Output.Dir = outDir
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return cfg
}

const snapshotJSON = `[
	{"name": "io.github.acme/weather", "description": "Real-time weather lookups backed by the NOAA forecast API",
	 "version": "1.0.0", "repo_url": "https://github.com/acme/weather",
	 "has_packages": true, "package_types": ["npm"], "package_identifiers": ["@acme/weather"],
	 "transport_types": ["stdio"], "has_website": true, "has_icon": true},
	{"name": "io.github.acme/ghost", "description": "Points at a repository that no longer exists",
	 "version": "0.1.0", "repo_url": "https://github.com/acme/missing", "has_packages": true},
	{"name": "io.github.acme/local", "description": "Purely local helper with no repository",
	 "version": "2.0.0", "has_packages": true},
	{"name": "", "description": "nameless"}
]`

func TestPipelineRun(t *testing.T) {
	gh := fakeGitHub(t)
	defer gh.Close()

	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	cfg := testConfig(t, writeSnapshot(t, dir, snapshotJSON), gh.URL, outDir)

	res, err := New(cfg, nil, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Scored != 3 {
		t.Errorf("scored = %d, want 3", res.Scored)
	}
	if res.Problems != 1 {
		t.Errorf("problems = %d, want 1 (nameless entry)", res.Problems)
	}

	data, err := os.ReadFile(filepath.Join(outDir, output.IndexFile))
	if err != nil {
		t.Fatalf("reading index: %v", err)
	}
	var idx output.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		t.Fatalf("decoding index: %v", err)
	}

	if idx.RunID != res.RunID {
		t.Errorf("index run id = %s, want %s", idx.RunID, res.RunID)
	}
	if idx.ServerCount != 3 {
		t.Errorf("index server count = %d, want 3", idx.ServerCount)
	}
	if len(idx.Problems) != 1 {
		t.Errorf("index problems = %+v, want the nameless entry", idx.Problems)
	}

	weather := idx.Servers["io.github.acme/weather"]
	if weather.EnrichmentState != "enriched" {
		t.Errorf("weather state = %s", weather.EnrichmentState)
	}
	if weather.TrustScore == 0 || weather.TrustLabel == "" {
		t.Errorf("weather scored %d %q", weather.TrustScore, weather.TrustLabel)
	}

	ghost := idx.Servers["io.github.acme/ghost"]
	if ghost.EnrichmentState != "failed" || ghost.EnrichmentError != "not_found" {
		t.Errorf("ghost = %s/%s, want failed/not_found", ghost.EnrichmentState, ghost.EnrichmentError)
	}

	local := idx.Servers["io.github.acme/local"]
	if local.EnrichmentState != "no_repo" {
		t.Errorf("local state = %s, want no_repo", local.EnrichmentState)
	}
	// Still scored on declared data alone.
	if local.Scores.Permissions == 0 {
		t.Error("no-repo entry must still earn declared-data points")
	}

	for _, name := range []string{output.StatsFile, output.FlagsFile} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	var stats output.Stats
	data, err = os.ReadFile(filepath.Join(outDir, output.StatsFile))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.ServerCount != 3 || stats.EnrichmentStates["enriched"] != 1 {
		t.Errorf("stats = count %d states %v", stats.ServerCount, stats.EnrichmentStates)
	}
}

func TestPipelineFatalOnScoringInvariant(t *testing.T) {
	gh := fakeGitHub(t)
	defer gh.Close()

	dir := t.TempDir()
	cfg := testConfig(t, writeSnapshot(t, dir, snapshotJSON), gh.URL, filepath.Join(dir, "out"))
	cfg.Scoring.Provenance.HasSourceRepo = 125 // force a category past 100

	_, err := New(cfg, nil, nil).Run(context.Background())
	if err == nil {
		t.Fatal("invariant violation did not abort the run")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out", output.IndexFile)); !os.IsNotExist(statErr) {
		t.Error("aborted run still published an index")
	}
}

func TestPipelineMissingSnapshot(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, filepath.Join(dir, "nope.json"), "http://127.0.0.1:0", filepath.Join(dir, "out"))

	if _, err := New(cfg, nil, nil).Run(context.Background()); err == nil {
		t.Fatal("missing snapshot did not fail the run")
	}
}
