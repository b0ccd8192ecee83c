package score

import (
	"math"
	"strings"
	"time"

	"github.com/mcptrust/scorecard/internal/config"
	"github.com/mcptrust/scorecard/internal/enrich"
	"github.com/mcptrust/scorecard/internal/normalize"
	"github.com/mcptrust/scorecard/internal/registry"
	"github.com/mcptrust/scorecard/internal/signal"
)

// scoreProvenance awards points for verifiable identity and packaging
// indicators. Each indicator is independent; the table sums to 100 by
// config validation. Unknown repository facts earn nothing: only an
// observed "not archived" or "has license" counts.
func (c *Calculator) scoreProvenance(e registry.Entry, repo *enrich.RepoData, sig *Signals) int {
	p := c.scoring.Provenance
	pts := 0

	sig.HasSourceRepo = e.RepoURL != ""
	if sig.HasSourceRepo {
		pts += p.HasSourceRepo
	}
	if repo != nil {
		if archived, known := repo.Archived.Get(); known && !archived {
			sig.RepoNotArchived = true
			pts += p.RepoNotArchived
		}
		if lic, known := repo.License.Get(); known && lic != "" {
			sig.HasLicense = true
			pts += p.HasLicense
		}
		if repo.HasSecurityPolicy.Or(false) {
			sig.HasSecurityMD = true
			pts += p.HasSecurityMD
		}
		if repo.HasCodeOfConduct.Or(false) {
			sig.HasCodeOfConduct = true
			pts += p.HasCodeOfConduct
		}
		sig.NamespaceMatchesOwner = ownerMatchesNamespace(repo.Owner, e.Namespace)
		if sig.NamespaceMatchesOwner {
			pts += p.NamespaceMatchesOwner
		}
	}
	if e.HasPackages {
		sig.HasInstallablePackage = true
		pts += p.HasInstallablePackage
	}
	if e.HasWebsite {
		sig.HasWebsiteURL = true
		pts += p.HasWebsiteURL
	}
	if e.HasIcon {
		sig.HasIcon = true
		pts += p.HasIcon
	}

	desc := normalize.Description(e.Description)
	if desc != "" && !c.templateMatch(desc) {
		sig.UniqueDescription = true
		pts += p.UniqueDescription
	}
	return pts
}

// ownerMatchesNamespace reports whether the repository owner appears in
// the publishing namespace after identifier folding, in either direction
// so "io.github.acme-labs" matches owner "AcmeLabs".
func ownerMatchesNamespace(owner, namespace string) bool {
	o := normalize.Ident(owner)
	ns := normalize.Ident(namespace)
	if o == "" || ns == "" {
		return false
	}
	return strings.Contains(ns, o) || strings.Contains(o, ns)
}

// scoreMaintenance measures whether anyone is still home: repository age,
// push recency with linear decay, active commit weeks, contributor tiers,
// published versions, and release cadence. All repository-derived terms
// degrade to zero when the signal is unknown.
func (c *Calculator) scoreMaintenance(e registry.Entry, repo *enrich.RepoData, sig *Signals) int {
	m := c.scoring.Maintenance
	pts := 0.0

	if repo != nil {
		if created, known := repo.CreatedAt.Get(); known {
			age := c.now.Sub(created)
			if age >= time.Duration(m.AgeThresholdDays)*24*time.Hour {
				sig.RepoAgeMature = true
				pts += float64(m.AgePoints)
			}
		}
		if pushed, known := repo.PushedAt.Get(); known {
			frac := pushRecencyFraction(c.now.Sub(pushed).Hours()/24, m)
			sig.LastPushRecency = math.Round(frac*1000) / 1000
			pts += frac * float64(m.PushRecencyPoints)
		}
		sig.ActiveCommitWeeks = repo.CommitWeeksActive
		if weeks, known := repo.CommitWeeksActive.Get(); known {
			frac := float64(weeks) / float64(m.CommitWeeksMax)
			if frac > 1 {
				frac = 1
			}
			pts += frac * float64(m.CommitWeeksPoints)
			cadence := pointTier(m.ReleaseTiers, weeks)
			sig.ReleaseCadence = cadence
			pts += float64(cadence)
		}
		sig.ContributorCount = repo.Contributors
		if n, known := repo.Contributors.Get(); known {
			pts += tierFraction(m.ContributorTiers, n) * float64(m.ContributorPoints)
		}
	}

	// The registry snapshot carries only the latest version per entry.
	if e.Version != "" {
		sig.VersionCount = 1
	}
	pts += float64(pointTier(m.VersionTiers, sig.VersionCount))

	total := int(math.Round(pts))
	if total > 100 {
		total = 100
	}
	return total
}

// pushRecencyFraction maps days-since-push to [0,1]: full credit inside
// the fresh window, linear decay to zero at the stale horizon.
func pushRecencyFraction(days float64, m config.Maintenance) float64 {
	switch {
	case days <= float64(m.PushRecencyFullDays):
		return 1
	case days >= float64(m.PushRecencyMaxDays):
		return 0
	default:
		span := float64(m.PushRecencyMaxDays - m.PushRecencyFullDays)
		return 1 - (days-float64(m.PushRecencyFullDays))/span
	}
}

// scorePopularity converts star, fork, and watcher counts to saturating
// bracket fractions. Unknown counts score zero, which keeps popularity
// from rewarding entries whose lookups failed.
func (c *Calculator) scorePopularity(repo *enrich.RepoData, sig *Signals) int {
	p := c.scoring.Popularity
	var stars, forks, watchers signal.Opt[int]
	if repo != nil {
		stars, forks, watchers = repo.Stars, repo.Forks, repo.Watchers
	}
	sig.GitHubStars = stars
	sig.GitHubForks = forks
	sig.GitHubWatchers = watchers

	pts := bracketFraction(p.StarsBrackets, stars)*float64(p.StarsPoints) +
		bracketFraction(p.ForksBrackets, forks)*float64(p.ForksPoints) +
		bracketFraction(p.WatchersBrackets, watchers)*float64(p.WatchersPoints)
	return int(math.Round(pts))
}

func bracketFraction(brackets []config.Tier, count signal.Opt[int]) float64 {
	n, known := count.Get()
	if !known {
		return 0
	}
	return tierFraction(brackets, n)
}

// scorePermissions is inverse-risk: the fewer secrets, the safer the
// transport, the blander the credentials, the higher the score. It uses
// only declared registry data, never repository signals.
func (c *Calculator) scorePermissions(e registry.Entry, sig *Signals) int {
	p := c.scoring.Permissions

	sig.SecretEnvVarCount = e.SecretEnvCount()
	secretPts := 0
	if sig.SecretEnvVarCount < len(p.SecretCountPoints) {
		secretPts = p.SecretCountPoints[sig.SecretEnvVarCount]
	}

	sig.TransportRiskPoints = c.transportPoints(e.TransportTypes)
	sig.CredentialRiskPoints = c.credentialPoints(e.EnvVars)
	sig.PackageTypeRiskPoints = c.packagePoints(e.PackageTypes)

	return secretPts + sig.TransportRiskPoints + sig.CredentialRiskPoints + sig.PackageTypeRiskPoints
}

// transportPoints awards by declared transport: local-only transports are
// lowest risk, mixed local/remote sits between, and among pure-remote
// declarations the riskiest (lowest-scoring) transport governs.
func (c *Calculator) transportPoints(types []string) int {
	p := c.scoring.Permissions
	if len(types) == 0 {
		return p.TransportDefault
	}
	hasStdio, hasOther := false, false
	for _, t := range types {
		if t == "stdio" {
			hasStdio = true
		} else {
			hasOther = true
		}
	}
	if hasStdio && hasOther {
		return p.TransportMixed
	}
	pts := -1
	for _, t := range types {
		v, ok := p.TransportRisk[t]
		if !ok {
			v = p.TransportDefault
		}
		if pts < 0 || v < pts {
			pts = v
		}
	}
	return pts
}

// credentialPoints grades declared environment variables: a sensitive
// credential (wallet keys, database passwords) floors the award
// immediately, plain API-key style variables take the middle award, and
// entries needing nothing score full. Sensitive patterns match names and
// descriptions; the API-key list matches names only, since words like
// "token" are routine in prose descriptions.
func (c *Calculator) credentialPoints(vars []registry.EnvVar) int {
	p := c.scoring.Permissions
	pts := p.CredentialNone
	for _, v := range vars {
		name := strings.ToLower(v.Name)
		desc := strings.ToLower(v.Description)
		if matchAny(c.sensitive, name) || matchAny(c.sensitive, desc) {
			return p.CredentialSensitive
		}
		if matchAny(c.apiKeys, name) && pts > p.CredentialAPIKey {
			pts = p.CredentialAPIKey
		}
	}
	return pts
}

func (c *Calculator) packagePoints(types []string) int {
	p := c.scoring.Permissions
	if len(types) == 0 {
		return p.PackageTypeDefault
	}
	pts := -1
	for _, t := range types {
		v, ok := p.PackageTypeRisk[t]
		if !ok {
			v = p.PackageTypeDefault
		}
		if pts < 0 || v < pts {
			pts = v
		}
	}
	return pts
}

// tierFraction returns the fraction of the first tier whose minimum the
// count meets. Tiers are validated to be strictly descending.
func tierFraction(tiers []config.Tier, n int) float64 {
	for _, t := range tiers {
		if n >= t.Min {
			return t.Fraction
		}
	}
	return 0
}

func pointTier(tiers []config.PointTier, n int) int {
	for _, t := range tiers {
		if n >= t.Min {
			return t.Points
		}
	}
	return 0
}

// templateMatch reports whether an already-normalized description starts
// with a known boilerplate opener.
func (c *Calculator) templateMatch(normalizedDesc string) bool {
	for _, t := range c.templates {
		if t != "" && strings.HasPrefix(normalizedDesc, t) {
			return true
		}
	}
	return false
}

func matchAny(patterns []string, s string) bool {
	if s == "" {
		return false
	}
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
