package metrics

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestObserveAndSnapshot(t *testing.T) {
	m := New()
	m.ObserveLookup("ok", 120*time.Millisecond)
	m.ObserveLookup("ok", 80*time.Millisecond)
	m.ObserveLookup("not_found", 40*time.Millisecond)
	m.EntryState("enriched")
	m.EntryState("no_repo")
	m.Flag("DEAD_ENTRY")
	m.ObserveBudgetWait(time.Second)
	m.CacheEvent("hit")

	rr := httptest.NewRecorder()
	m.StatsHandler().ServeHTTP(rr, httptest.NewRequest("GET", "/stats", nil))

	var snap Snapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if snap.Lookups["ok"] != 2 || snap.Lookups["not_found"] != 1 {
		t.Errorf("lookups = %v", snap.Lookups)
	}
	if snap.Entries["enriched"] != 1 || snap.Entries["no_repo"] != 1 {
		t.Errorf("entries = %v", snap.Entries)
	}
	if snap.Flags["DEAD_ENTRY"] != 1 {
		t.Errorf("flags = %v", snap.Flags)
	}
}

func TestPrometheusExposition(t *testing.T) {
	m := New()
	m.ObserveLookup("rate_limited", 10*time.Millisecond)
	m.Flag("REPO_ARCHIVED")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body := rr.Body.String()

	for _, want := range []string{
		`scorecard_lookups_total{outcome="rate_limited"} 1`,
		`scorecard_flags_total{flag="REPO_ARCHIVED"} 1`,
		"scorecard_lookup_duration_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestPrivateRegistryIsolation(t *testing.T) {
	// Two instances must not collide on registration.
	_ = New()
	_ = New()
}
