package score

import "github.com/mcptrust/scorecard/internal/signal"

// Signals is the published evidence behind a report: every observation the
// category scorers consumed, so a score can be audited without re-running
// enrichment. Fetched-but-unavailable observations marshal as null.
type Signals struct {
	HasSourceRepo         bool `json:"has_source_repo"`
	RepoNotArchived       bool `json:"repo_not_archived"`
	HasLicense            bool `json:"has_license"`
	HasInstallablePackage bool `json:"has_installable_package"`
	HasWebsiteURL         bool `json:"has_website_url"`
	HasIcon               bool `json:"has_icon"`
	NamespaceMatchesOwner bool `json:"namespace_matches_owner"`
	HasSecurityMD         bool `json:"has_security_md"`
	HasCodeOfConduct      bool `json:"has_code_of_conduct"`
	UniqueDescription     bool `json:"unique_description"`

	RepoAgeMature     bool            `json:"repo_age_mature"`
	LastPushRecency   float64         `json:"last_push_recency"`
	ActiveCommitWeeks signal.Opt[int] `json:"active_commit_weeks"`
	ContributorCount  signal.Opt[int] `json:"contributor_count"`
	VersionCount      int             `json:"version_count"`
	ReleaseCadence    int             `json:"release_cadence_points"`

	GitHubStars    signal.Opt[int] `json:"github_stars"`
	GitHubForks    signal.Opt[int] `json:"github_forks"`
	GitHubWatchers signal.Opt[int] `json:"github_watchers"`

	SecretEnvVarCount     int `json:"secret_env_var_count"`
	TransportRiskPoints   int `json:"transport_risk_points"`
	CredentialRiskPoints  int `json:"credential_risk_points"`
	PackageTypeRiskPoints int `json:"package_type_risk_points"`
}
