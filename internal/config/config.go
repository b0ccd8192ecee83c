// Package config handles loading, validating, and defaulting scorecard
// configuration. Every scoring curve and pattern list is policy and lives
// here; the four category weights are the published contract and are fixed
// constants in the score package instead.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Log format/output constants for configuration defaults.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
	LogStdout     = "stdout"
	LogFile       = "file"
	LogBoth       = "both"
)

// Registry points at the collector-produced entry snapshot.
type Registry struct {
	Snapshot string `yaml:"snapshot"`
}

// Budget is the shared external-API call budget: Calls per rolling window
// of WindowMinutes when a token is present, AnonymousCalls otherwise. The
// credential changes only the budget size, never behavior.
type Budget struct {
	Calls          int `yaml:"calls"`
	AnonymousCalls int `yaml:"anonymous_calls"`
	WindowMinutes  int `yaml:"window_minutes"`
}

// Cache configures the optional SQLite lookup cache. Correctness never
// depends on it; it only lets repeated runs build coverage under budget.
type Cache struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// GitHub configures the signal API client and the enrichment run.
type GitHub struct {
	APIBase           string `yaml:"api_base"`
	TokenEnv          string `yaml:"token_env"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
	Concurrency       int    `yaml:"concurrency"`
	RetryDelaySeconds int    `yaml:"retry_delay_seconds"`
	MaxRunMinutes     int    `yaml:"max_run_minutes"`
	Budget            Budget `yaml:"budget"`
	Cache             Cache  `yaml:"cache"`
}

// ProvenancePoints assigns a point value to each provenance indicator.
// Values must sum to 100.
type ProvenancePoints struct {
	HasSourceRepo         int `yaml:"has_source_repo"`
	RepoNotArchived       int `yaml:"repo_not_archived"`
	HasLicense            int `yaml:"has_license"`
	HasInstallablePackage int `yaml:"has_installable_package"`
	HasWebsiteURL         int `yaml:"has_website_url"`
	HasIcon               int `yaml:"has_icon"`
	NamespaceMatchesOwner int `yaml:"namespace_matches_owner"`
	HasSecurityMD         int `yaml:"has_security_md"`
	HasCodeOfConduct      int `yaml:"has_code_of_conduct"`
	UniqueDescription     int `yaml:"unique_description"`
}

func (p ProvenancePoints) sum() int {
	return p.HasSourceRepo + p.RepoNotArchived + p.HasLicense +
		p.HasInstallablePackage + p.HasWebsiteURL + p.HasIcon +
		p.NamespaceMatchesOwner + p.HasSecurityMD + p.HasCodeOfConduct +
		p.UniqueDescription
}

// Tier maps a minimum count to the fraction of a point pool awarded.
// Tiers are evaluated first-match in the configured order.
type Tier struct {
	Min      int     `yaml:"min"`
	Fraction float64 `yaml:"fraction"`
}

// PointTier maps a minimum count to an absolute point award.
type PointTier struct {
	Min    int `yaml:"min"`
	Points int `yaml:"points"`
}

// Maintenance configures the maintenance category: recency decay, activity
// scaling, and the tier tables.
type Maintenance struct {
	AgePoints           int         `yaml:"age_points"`
	AgeThresholdDays    int         `yaml:"age_threshold_days"`
	PushRecencyPoints   int         `yaml:"push_recency_points"`
	PushRecencyFullDays int         `yaml:"push_recency_full_days"`
	PushRecencyMaxDays  int         `yaml:"push_recency_max_days"`
	CommitWeeksPoints   int         `yaml:"commit_weeks_points"`
	CommitWeeksMax      int         `yaml:"commit_weeks_max"`
	ContributorPoints   int         `yaml:"contributor_points"`
	ContributorTiers    []Tier      `yaml:"contributor_tiers"`
	VersionTiers        []PointTier `yaml:"version_tiers"`
	ReleaseTiers        []PointTier `yaml:"release_tiers"`
}

// Popularity configures the saturating count-to-fraction brackets.
// Brackets are evaluated first-match and must be strictly descending.
type Popularity struct {
	StarsPoints      int    `yaml:"stars_points"`
	ForksPoints      int    `yaml:"forks_points"`
	WatchersPoints   int    `yaml:"watchers_points"`
	StarsBrackets    []Tier `yaml:"stars_brackets"`
	ForksBrackets    []Tier `yaml:"forks_brackets"`
	WatchersBrackets []Tier `yaml:"watchers_brackets"`
}

// Permissions configures the inverse-risk category. SecretCountPoints is
// indexed by the secret env var count; counts past the end score zero.
type Permissions struct {
	SecretCountPoints   []int          `yaml:"secret_count_points"`
	TransportRisk       map[string]int `yaml:"transport_risk"`
	TransportMixed      int            `yaml:"transport_mixed"`
	TransportDefault    int            `yaml:"transport_default"`
	CredentialNone      int            `yaml:"credential_none"`
	CredentialAPIKey    int            `yaml:"credential_api_key"`
	CredentialSensitive int            `yaml:"credential_sensitive"`
	PackageTypeRisk     map[string]int `yaml:"package_type_risk"`
	PackageTypeDefault  int            `yaml:"package_type_default"`
}

// Band maps an inclusive aggregate score range to a trust label.
type Band struct {
	Min   int    `yaml:"min"`
	Max   int    `yaml:"max"`
	Label string `yaml:"label"`
}

// Scoring bundles all category policy tables.
type Scoring struct {
	Provenance  ProvenancePoints `yaml:"provenance"`
	Maintenance Maintenance      `yaml:"maintenance"`
	Popularity  Popularity       `yaml:"popularity"`
	Permissions Permissions      `yaml:"permissions"`
	Bands       []Band           `yaml:"bands"`
}

// Patterns holds the text pattern lists used by flags and scoring.
type Patterns struct {
	TemplateDescriptions []string `yaml:"template_descriptions"`
	StagingNames         []string `yaml:"staging_names"`
	SensitiveCredentials []string `yaml:"sensitive_credentials"`
	APIKeys              []string `yaml:"api_keys"`
}

// Logging configures the structured run log.
type Logging struct {
	Format string `yaml:"format"` // json, text
	Output string `yaml:"output"` // stdout, file, both
	File   string `yaml:"file"`
}

// Metrics configures the optional Prometheus listener, active for the
// duration of a run.
type Metrics struct {
	Listen string `yaml:"listen"`
}

// Output configures where the published index lands.
type Output struct {
	Dir string `yaml:"dir"`
}

// Sentry configures optional error reporting for run-fatal failures.
// DSN may also come from the SENTRY_DSN environment variable.
type Sentry struct {
	DSN string `yaml:"dsn"`
}

// Config is the top-level scorecard configuration.
type Config struct {
	Version  int      `yaml:"version"`
	Registry Registry `yaml:"registry"`
	GitHub   GitHub   `yaml:"github"`
	Scoring  Scoring  `yaml:"scoring"`
	Patterns Patterns `yaml:"patterns"`
	Logging  Logging  `yaml:"logging"`
	Metrics  Metrics  `yaml:"metrics"`
	Output   Output   `yaml:"output"`
	Sentry   Sentry   `yaml:"sentry"`
}

// Load reads, defaults, and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path from caller
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.ApplyDefaults()

	// Resolve relative paths against the config file's directory.
	dir := filepath.Dir(path)
	if cfg.Registry.Snapshot != "" && !filepath.IsAbs(cfg.Registry.Snapshot) {
		cfg.Registry.Snapshot = filepath.Join(dir, cfg.Registry.Snapshot)
	}
	if cfg.GitHub.Cache.Path != "" && !filepath.IsAbs(cfg.GitHub.Cache.Path) {
		cfg.GitHub.Cache.Path = filepath.Join(dir, cfg.GitHub.Cache.Path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills every zero field with its default. Called by Load;
// also usable on a hand-built Config in tests.
func (c *Config) ApplyDefaults() {
	def := Defaults()

	if c.Version == 0 {
		c.Version = def.Version
	}
	if c.GitHub.APIBase == "" {
		c.GitHub.APIBase = def.GitHub.APIBase
	}
	if c.GitHub.TokenEnv == "" {
		c.GitHub.TokenEnv = def.GitHub.TokenEnv
	}
	if c.GitHub.TimeoutSeconds == 0 {
		c.GitHub.TimeoutSeconds = def.GitHub.TimeoutSeconds
	}
	if c.GitHub.Concurrency == 0 {
		c.GitHub.Concurrency = def.GitHub.Concurrency
	}
	if c.GitHub.RetryDelaySeconds == 0 {
		c.GitHub.RetryDelaySeconds = def.GitHub.RetryDelaySeconds
	}
	if c.GitHub.MaxRunMinutes == 0 {
		c.GitHub.MaxRunMinutes = def.GitHub.MaxRunMinutes
	}
	if c.GitHub.Budget.Calls == 0 {
		c.GitHub.Budget.Calls = def.GitHub.Budget.Calls
	}
	if c.GitHub.Budget.AnonymousCalls == 0 {
		c.GitHub.Budget.AnonymousCalls = def.GitHub.Budget.AnonymousCalls
	}
	if c.GitHub.Budget.WindowMinutes == 0 {
		c.GitHub.Budget.WindowMinutes = def.GitHub.Budget.WindowMinutes
	}
	if c.GitHub.Cache.Path == "" {
		c.GitHub.Cache.Path = def.GitHub.Cache.Path
	}
	if c.GitHub.Cache.MaxAgeDays == 0 {
		c.GitHub.Cache.MaxAgeDays = def.GitHub.Cache.MaxAgeDays
	}

	if c.Scoring.Provenance == (ProvenancePoints{}) {
		c.Scoring.Provenance = def.Scoring.Provenance
	}
	if c.Scoring.Maintenance.AgePoints == 0 && c.Scoring.Maintenance.PushRecencyPoints == 0 {
		c.Scoring.Maintenance = def.Scoring.Maintenance
	}
	if c.Scoring.Popularity.StarsPoints == 0 && c.Scoring.Popularity.ForksPoints == 0 {
		c.Scoring.Popularity = def.Scoring.Popularity
	}
	if len(c.Scoring.Permissions.SecretCountPoints) == 0 {
		c.Scoring.Permissions = def.Scoring.Permissions
	}
	if len(c.Scoring.Bands) == 0 {
		c.Scoring.Bands = def.Scoring.Bands
	}

	if len(c.Patterns.TemplateDescriptions) == 0 {
		c.Patterns.TemplateDescriptions = def.Patterns.TemplateDescriptions
	}
	if len(c.Patterns.StagingNames) == 0 {
		c.Patterns.StagingNames = def.Patterns.StagingNames
	}
	if len(c.Patterns.SensitiveCredentials) == 0 {
		c.Patterns.SensitiveCredentials = def.Patterns.SensitiveCredentials
	}
	if len(c.Patterns.APIKeys) == 0 {
		c.Patterns.APIKeys = def.Patterns.APIKeys
	}

	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Logging.Output == "" {
		c.Logging.Output = def.Logging.Output
	}
	if c.Output.Dir == "" {
		c.Output.Dir = def.Output.Dir
	}
	if c.Sentry.DSN == "" {
		c.Sentry.DSN = os.Getenv("SENTRY_DSN")
	}
}

// Validate checks structural invariants. Point tables must sum to 100 so
// category scores stay in [0,100] by construction; bands must tile [0,100]
// with inclusive, non-overlapping ranges.
func (c *Config) Validate() error {
	if c.GitHub.Budget.Calls <= 0 || c.GitHub.Budget.AnonymousCalls <= 0 {
		return fmt.Errorf("github.budget: calls and anonymous_calls must be positive")
	}
	if c.GitHub.Budget.WindowMinutes <= 0 {
		return fmt.Errorf("github.budget.window_minutes must be positive")
	}
	if c.GitHub.Concurrency <= 0 {
		return fmt.Errorf("github.concurrency must be positive")
	}
	if c.GitHub.TimeoutSeconds <= 0 {
		return fmt.Errorf("github.timeout_seconds must be positive")
	}
	if c.GitHub.MaxRunMinutes <= 0 {
		return fmt.Errorf("github.max_run_minutes must be positive")
	}

	if got := c.Scoring.Provenance.sum(); got != 100 {
		return fmt.Errorf("scoring.provenance points sum to %d, want 100", got)
	}
	if err := c.validateMaintenance(); err != nil {
		return err
	}
	if err := c.validatePopularity(); err != nil {
		return err
	}
	if err := c.validatePermissions(); err != nil {
		return err
	}
	return c.validateBands()
}

func (c *Config) validateMaintenance() error {
	m := c.Scoring.Maintenance
	if m.PushRecencyMaxDays <= m.PushRecencyFullDays {
		return fmt.Errorf("scoring.maintenance: push_recency_max_days must exceed push_recency_full_days")
	}
	if m.CommitWeeksMax <= 0 {
		return fmt.Errorf("scoring.maintenance.commit_weeks_max must be positive")
	}
	max := m.AgePoints + m.PushRecencyPoints + m.CommitWeeksPoints +
		m.ContributorPoints + maxPointTier(m.VersionTiers) + maxPointTier(m.ReleaseTiers)
	if max != 100 {
		return fmt.Errorf("scoring.maintenance points max out at %d, want 100", max)
	}
	if !tiersDescending(m.ContributorTiers) {
		return fmt.Errorf("scoring.maintenance.contributor_tiers must be strictly descending by min")
	}
	return nil
}

func (c *Config) validatePopularity() error {
	p := c.Scoring.Popularity
	if p.StarsPoints+p.ForksPoints+p.WatchersPoints != 100 {
		return fmt.Errorf("scoring.popularity points sum to %d, want 100",
			p.StarsPoints+p.ForksPoints+p.WatchersPoints)
	}
	for name, brackets := range map[string][]Tier{
		"stars_brackets":    p.StarsBrackets,
		"forks_brackets":    p.ForksBrackets,
		"watchers_brackets": p.WatchersBrackets,
	} {
		if len(brackets) == 0 {
			return fmt.Errorf("scoring.popularity.%s must not be empty", name)
		}
		if !tiersDescending(brackets) {
			return fmt.Errorf("scoring.popularity.%s must be strictly descending by min", name)
		}
	}
	return nil
}

func (c *Config) validatePermissions() error {
	p := c.Scoring.Permissions
	if len(p.SecretCountPoints) == 0 {
		return fmt.Errorf("scoring.permissions.secret_count_points must not be empty")
	}
	max := p.SecretCountPoints[0] + maxRisk(p.TransportRisk, p.TransportDefault) +
		p.CredentialNone + maxRisk(p.PackageTypeRisk, p.PackageTypeDefault)
	if max != 100 {
		return fmt.Errorf("scoring.permissions points max out at %d, want 100", max)
	}
	return nil
}

func (c *Config) validateBands() error {
	if len(c.Scoring.Bands) == 0 {
		return fmt.Errorf("scoring.bands must not be empty")
	}
	bands := make([]Band, len(c.Scoring.Bands))
	copy(bands, c.Scoring.Bands)
	sort.Slice(bands, func(i, j int) bool { return bands[i].Min < bands[j].Min })

	if bands[0].Min != 0 {
		return fmt.Errorf("scoring.bands must start at 0")
	}
	for i, b := range bands {
		if b.Max < b.Min {
			return fmt.Errorf("scoring.bands: band %q has max < min", b.Label)
		}
		if i > 0 && b.Min != bands[i-1].Max+1 {
			return fmt.Errorf("scoring.bands: gap or overlap at score %d", b.Min)
		}
	}
	if bands[len(bands)-1].Max != 100 {
		return fmt.Errorf("scoring.bands must end at 100")
	}
	return nil
}

func maxPointTier(tiers []PointTier) int {
	max := 0
	for _, t := range tiers {
		if t.Points > max {
			max = t.Points
		}
	}
	return max
}

func maxRisk(m map[string]int, def int) int {
	max := def
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	return max
}

func tiersDescending(tiers []Tier) bool {
	for i := 1; i < len(tiers); i++ {
		if tiers[i].Min >= tiers[i-1].Min {
			return false
		}
	}
	return true
}
