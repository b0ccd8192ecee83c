package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Problem records a single malformed entry in a snapshot. A problem entry
// is excluded from scoring but must still be surfaced in the published
// output, so its snapshot position and reason are kept.
type Problem struct {
	Position int    `json:"position"`
	Reason   string `json:"reason"`
}

// rawEnvVar etc. mirror the registry wire shape (a page of the official
// registry API, as captured by the collector).
type rawEnvVar struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsRequired  bool   `json:"isRequired"`
	IsSecret    bool   `json:"isSecret"`
}

type rawTransport struct {
	Type string `json:"type"`
}

type rawPackage struct {
	RegistryType         string       `json:"registryType"`
	Identifier           string       `json:"identifier"`
	Transport            rawTransport `json:"transport"`
	EnvironmentVariables []rawEnvVar  `json:"environmentVariables"`
}

type rawServer struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Repository  struct {
		URL    string `json:"url"`
		Source string `json:"source"`
	} `json:"repository"`
	Packages   []rawPackage   `json:"packages"`
	Remotes    []rawTransport `json:"remotes"`
	WebsiteURL string         `json:"websiteUrl"`
	Icons      []any          `json:"icons"`
}

type rawRecord struct {
	Server rawServer                  `json:"server"`
	Meta   map[string]json.RawMessage `json:"_meta"`
}

type rawSnapshot struct {
	Servers []rawRecord `json:"servers"`
}

const officialMetaKey = "io.modelcontextprotocol.registry/official"

type officialMeta struct {
	IsLatest    bool   `json:"isLatest"`
	PublishedAt string `json:"publishedAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// LoadSnapshot reads a collector-produced snapshot file. Two layouts are
// accepted: the raw registry wire shape ({"servers": [{"server": ...}]}),
// which is filtered to isLatest records and normalized, or a plain JSON
// array of already-normalized entries.
//
// Entries missing the required name identifier are returned as Problems,
// never as a load failure: one malformed record must not sink the batch.
func LoadSnapshot(path string) ([]Entry, []Problem, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path from caller
	if err != nil {
		return nil, nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	return DecodeSnapshot(data)
}

// DecodeSnapshot is LoadSnapshot without the file read.
func DecodeSnapshot(data []byte) ([]Entry, []Problem, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []Entry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, nil, fmt.Errorf("parsing entry array: %w", err)
		}
		return checkEntries(entries)
	}

	var snap rawSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil, fmt.Errorf("parsing registry snapshot: %w", err)
	}

	entries := make([]Entry, 0, len(snap.Servers))
	for _, rec := range snap.Servers {
		meta := decodeOfficialMeta(rec.Meta)
		if meta != nil && !meta.IsLatest {
			continue
		}
		entries = append(entries, normalize(rec.Server, meta))
	}
	return checkEntries(entries)
}

func checkEntries(entries []Entry) ([]Entry, []Problem, error) {
	valid := entries[:0]
	var problems []Problem
	for i, e := range entries {
		if e.Name == "" {
			problems = append(problems, Problem{Position: i, Reason: "missing name identifier"})
			continue
		}
		if e.Namespace == "" && e.ServerID == "" {
			e.Namespace, e.ServerID = splitName(e.Name)
		}
		valid = append(valid, e)
	}
	return valid, problems, nil
}

func decodeOfficialMeta(meta map[string]json.RawMessage) *officialMeta {
	raw, ok := meta[officialMetaKey]
	if !ok {
		return nil
	}
	var m officialMeta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return &m
}

// normalize flattens a raw registry server record into an Entry.
func normalize(s rawServer, meta *officialMeta) Entry {
	ns, id := splitName(s.Name)

	var (
		pkgTypes   []string
		pkgIDs     []string
		transports []string
		envVars    []EnvVar
	)

	seenTransport := map[string]bool{}
	addTransport := func(t string) {
		if t != "" && !seenTransport[t] {
			seenTransport[t] = true
			transports = append(transports, t)
		}
	}

	for _, pkg := range s.Packages {
		if pkg.RegistryType != "" {
			pkgTypes = append(pkgTypes, pkg.RegistryType)
		}
		if pkg.Identifier != "" {
			pkgIDs = append(pkgIDs, pkg.Identifier)
		}
		addTransport(pkg.Transport.Type)
		for _, ev := range pkg.EnvironmentVariables {
			envVars = append(envVars, EnvVar{
				Name:        ev.Name,
				Description: ev.Description,
				IsRequired:  ev.IsRequired,
				IsSecret:    ev.IsSecret,
			})
		}
	}
	for _, remote := range s.Remotes {
		addTransport(remote.Type)
	}

	e := Entry{
		Name:               s.Name,
		Title:              s.Title,
		Description:        s.Description,
		Version:            s.Version,
		RepoURL:            s.Repository.URL,
		RepoSource:         s.Repository.Source,
		HasPackages:        len(s.Packages) > 0,
		PackageTypes:       pkgTypes,
		PackageIdentifiers: pkgIDs,
		HasRemotes:         len(s.Remotes) > 0,
		TransportTypes:     transports,
		EnvVars:            envVars,
		HasWebsite:         s.WebsiteURL != "",
		HasIcon:            len(s.Icons) > 0,
		Namespace:          ns,
		ServerID:           id,
	}
	if meta != nil {
		e.PublishedAt = meta.PublishedAt
		e.UpdatedAt = meta.UpdatedAt
	}
	return e
}
