package score

import (
	"strings"

	"github.com/mcptrust/scorecard/internal/enrich"
	"github.com/mcptrust/scorecard/internal/normalize"
	"github.com/mcptrust/scorecard/internal/registry"
)

// Flag is a named risk condition. Flags ride alongside the numeric score
// and are never folded into it: a high-scoring entry can still carry
// SENSITIVE_CRED_REQUEST, and consumers decide what each flag costs them.
type Flag string

const (
	FlagDeadEntry            Flag = "DEAD_ENTRY"
	FlagTemplateDescription  Flag = "TEMPLATE_DESCRIPTION"
	FlagStagingArtifact      Flag = "STAGING_ARTIFACT"
	FlagHighSecretDemand     Flag = "HIGH_SECRET_DEMAND"
	FlagSensitiveCredRequest Flag = "SENSITIVE_CRED_REQUEST"
	FlagRepoArchived         Flag = "REPO_ARCHIVED"
	FlagNoSource             Flag = "NO_SOURCE"
	FlagDescriptionDuplicate Flag = "DESCRIPTION_DUPLICATE"
)

const (
	// Five or more secret env vars marks credential over-collection.
	highSecretThreshold = 5
	// A description shared by this many distinct namespaces marks
	// copy-paste mass publishing.
	duplicateNamespaceMin = 3
)

// BatchContext carries cross-entry evidence for flags that cannot be
// judged from one entry alone. Build it once over the full batch before
// scoring begins.
type BatchContext struct {
	descNamespaces map[string]int
}

// BuildBatchContext indexes normalized descriptions by the number of
// distinct publishing namespaces using them. Normalization happens first,
// so homoglyph or invisible-character variants of the same text collide.
func BuildBatchContext(entries []registry.Entry) *BatchContext {
	seen := make(map[string]map[string]struct{})
	for _, e := range entries {
		desc := normalize.Description(e.Description)
		if desc == "" {
			continue
		}
		ns := e.Namespace
		if ns == "" {
			ns = e.Name
		}
		set, ok := seen[desc]
		if !ok {
			set = make(map[string]struct{})
			seen[desc] = set
		}
		set[ns] = struct{}{}
	}
	bctx := &BatchContext{descNamespaces: make(map[string]int, len(seen))}
	for desc, set := range seen {
		bctx.descNamespaces[desc] = len(set)
	}
	return bctx
}

// DetectFlags evaluates every flag predicate independently and returns the
// raised flags in a fixed order. bctx may be nil, which disables the
// cross-entry flags.
func (c *Calculator) DetectFlags(e registry.Entry, repo *enrich.RepoData, bctx *BatchContext) []Flag {
	var flags []Flag
	desc := normalize.Description(e.Description)
	isTemplate := c.templateMatch(desc)

	if !e.HasPackages && !e.HasRemotes && !repoActive(e, repo) {
		flags = append(flags, FlagDeadEntry)
	}
	if isTemplate {
		flags = append(flags, FlagTemplateDescription)
	}
	if isTemplate && (c.stagingMatch(e.ServerID) || c.stagingMatch(e.Name)) {
		flags = append(flags, FlagStagingArtifact)
	}
	if e.SecretEnvCount() >= highSecretThreshold {
		flags = append(flags, FlagHighSecretDemand)
	}
	if c.hasSensitiveCredential(e.EnvVars) {
		flags = append(flags, FlagSensitiveCredRequest)
	}
	if repo != nil && repo.Archived.Or(false) {
		flags = append(flags, FlagRepoArchived)
	}
	if e.RepoURL == "" && len(e.PackageIdentifiers) == 0 {
		flags = append(flags, FlagNoSource)
	}
	if bctx != nil && desc != "" && bctx.descNamespaces[desc] >= duplicateNamespaceMin {
		flags = append(flags, FlagDescriptionDuplicate)
	}
	return flags
}

// repoActive reports whether the entry's repository shows recent life:
// present, not archived, with at least one active commit week. Unknown
// activity does not count as life.
func repoActive(e registry.Entry, repo *enrich.RepoData) bool {
	return e.RepoURL != "" && repo != nil &&
		!repo.Archived.Or(false) && repo.CommitWeeksActive.Or(0) > 0
}

func (c *Calculator) stagingMatch(name string) bool {
	n := strings.ToLower(name)
	if n == "" {
		return false
	}
	for _, p := range c.staging {
		if strings.Contains(n, p) {
			return true
		}
	}
	return false
}

func (c *Calculator) hasSensitiveCredential(vars []registry.EnvVar) bool {
	for _, v := range vars {
		if matchAny(c.sensitive, strings.ToLower(v.Name)) ||
			matchAny(c.sensitive, strings.ToLower(v.Description)) {
			return true
		}
	}
	return false
}
