// Package registry defines the scored unit, one registry server entry,
// and loads entry snapshots produced by the upstream collector. Entries
// are input-only: nothing downstream mutates them.
package registry

import (
	"regexp"
	"strings"
)

// EnvVar is one environment variable a server declares it needs.
type EnvVar struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsRequired  bool   `json:"is_required"`
	IsSecret    bool   `json:"is_secret"`
}

// Entry is one registry-listed server, flattened from the registry wire
// shape. Name is the stable namespace-qualified identifier
// ("io.github.acme/weather-mcp").
type Entry struct {
	Name               string   `json:"name"`
	Title              string   `json:"title,omitempty"`
	Description        string   `json:"description"`
	Version            string   `json:"version"`
	RepoURL            string   `json:"repo_url,omitempty"`
	RepoSource         string   `json:"repo_source,omitempty"`
	HasPackages        bool     `json:"has_packages"`
	PackageTypes       []string `json:"package_types,omitempty"`
	PackageIdentifiers []string `json:"package_identifiers,omitempty"`
	HasRemotes         bool     `json:"has_remotes"`
	TransportTypes     []string `json:"transport_types,omitempty"`
	EnvVars            []EnvVar `json:"env_vars,omitempty"`
	HasWebsite         bool     `json:"has_website"`
	HasIcon            bool     `json:"has_icon"`
	PublishedAt        string   `json:"published_at,omitempty"`
	UpdatedAt          string   `json:"updated_at,omitempty"`
	Namespace          string   `json:"namespace"`
	ServerID           string   `json:"server_id"`
}

// SecretEnvCount returns the number of declared secret environment variables.
func (e Entry) SecretEnvCount() int {
	n := 0
	for _, ev := range e.EnvVars {
		if ev.IsSecret {
			n++
		}
	}
	return n
}

// Matches github.com/owner/repo with optional .git suffix and trailing slash.
var githubRepoRe = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)

// SplitRepoURL extracts (owner, repo) from a GitHub repository URL.
// Returns ok=false for non-GitHub or malformed URLs.
func SplitRepoURL(url string) (owner, repo string, ok bool) {
	m := githubRepoRe.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func splitName(name string) (namespace, serverID string) {
	if ns, id, found := strings.Cut(name, "/"); found {
		return ns, id
	}
	return "", name
}
