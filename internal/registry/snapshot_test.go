package registry

import (
	"os"
	"path/filepath"
	"testing"
)

const wireSnapshot = `{
  "servers": [
    {
      "server": {
        "name": "io.github.acme/weather-mcp",
        "title": "Weather",
        "description": "Live weather lookups",
        "version": "1.2.0",
        "repository": {"url": "https://github.com/acme/weather-mcp", "source": "github"},
        "packages": [
          {
            "registryType": "npm",
            "identifier": "@acme/weather-mcp",
            "transport": {"type": "stdio"},
            "environmentVariables": [
              {"name": "WEATHER_API_KEY", "isRequired": true, "isSecret": true}
            ]
          }
        ],
        "websiteUrl": "https://acme.example",
        "icons": [{"src": "https://acme.example/icon.png"}]
      },
      "_meta": {
        "io.modelcontextprotocol.registry/official": {
          "isLatest": true,
          "publishedAt": "2026-01-10T00:00:00Z",
          "updatedAt": "2026-02-01T00:00:00Z"
        }
      }
    },
    {
      "server": {
        "name": "io.github.acme/weather-mcp",
        "description": "Live weather lookups",
        "version": "1.1.0"
      },
      "_meta": {
        "io.modelcontextprotocol.registry/official": {"isLatest": false}
      }
    },
    {
      "server": {
        "name": "io.github.zed/remote-only",
        "description": "Hosted thing",
        "version": "0.1.0",
        "remotes": [{"type": "streamable-http"}]
      },
      "_meta": {
        "io.modelcontextprotocol.registry/official": {"isLatest": true}
      }
    },
    {
      "server": {"description": "nameless", "version": "0.0.1"},
      "_meta": {
        "io.modelcontextprotocol.registry/official": {"isLatest": true}
      }
    }
  ]
}`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSnapshotWireShape(t *testing.T) {
	entries, problems, err := LoadSnapshot(writeTemp(t, wireSnapshot))
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (latest-only, nameless excluded)", len(entries))
	}
	if len(problems) != 1 {
		t.Fatalf("got %d problems, want 1", len(problems))
	}
	if problems[0].Reason != "missing name identifier" {
		t.Errorf("problem reason = %q", problems[0].Reason)
	}

	e := entries[0]
	if e.Name != "io.github.acme/weather-mcp" {
		t.Errorf("name = %q", e.Name)
	}
	if e.Namespace != "io.github.acme" || e.ServerID != "weather-mcp" {
		t.Errorf("namespace/serverID = %q/%q", e.Namespace, e.ServerID)
	}
	if !e.HasPackages || e.HasRemotes {
		t.Errorf("HasPackages=%v HasRemotes=%v", e.HasPackages, e.HasRemotes)
	}
	if len(e.PackageTypes) != 1 || e.PackageTypes[0] != "npm" {
		t.Errorf("package types = %v", e.PackageTypes)
	}
	if len(e.TransportTypes) != 1 || e.TransportTypes[0] != "stdio" {
		t.Errorf("transports = %v", e.TransportTypes)
	}
	if e.SecretEnvCount() != 1 {
		t.Errorf("secret env count = %d", e.SecretEnvCount())
	}
	if !e.HasWebsite || !e.HasIcon {
		t.Errorf("website/icon = %v/%v", e.HasWebsite, e.HasIcon)
	}
	if e.PublishedAt != "2026-01-10T00:00:00Z" {
		t.Errorf("publishedAt = %q", e.PublishedAt)
	}

	remote := entries[1]
	if remote.HasPackages || !remote.HasRemotes {
		t.Errorf("remote entry HasPackages=%v HasRemotes=%v", remote.HasPackages, remote.HasRemotes)
	}
	if len(remote.TransportTypes) != 1 || remote.TransportTypes[0] != "streamable-http" {
		t.Errorf("remote transports = %v", remote.TransportTypes)
	}
}

func TestLoadSnapshotNormalizedArray(t *testing.T) {
	entries, problems, err := LoadSnapshot(writeTemp(t, `[
		{"name": "io.github.a/one", "description": "d", "version": "1.0"},
		{"name": "", "description": "bad", "version": "1.0"}
	]`))
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(entries) != 1 || len(problems) != 1 {
		t.Fatalf("entries=%d problems=%d, want 1/1", len(entries), len(problems))
	}
	if entries[0].Namespace != "io.github.a" || entries[0].ServerID != "one" {
		t.Errorf("derived namespace/serverID = %q/%q", entries[0].Namespace, entries[0].ServerID)
	}
}

func TestSplitRepoURL(t *testing.T) {
	tests := []struct {
		url         string
		owner, repo string
		ok          bool
	}{
		{"https://github.com/acme/weather-mcp", "acme", "weather-mcp", true},
		{"https://github.com/acme/weather-mcp.git", "acme", "weather-mcp", true},
		{"https://github.com/acme/weather-mcp/", "acme", "weather-mcp", true},
		{"http://github.com/a/b", "a", "b", true},
		{"https://github.com/vercel/next.js", "vercel", "next.js", true},
		{"https://gitlab.com/acme/weather", "", "", false},
		{"https://github.com/acme", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		owner, repo, ok := SplitRepoURL(tt.url)
		if owner != tt.owner || repo != tt.repo || ok != tt.ok {
			t.Errorf("SplitRepoURL(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.url, owner, repo, ok, tt.owner, tt.repo, tt.ok)
		}
	}
}
