package config

// Defaults returns the full default configuration. Every curve here is a
// policy choice, tunable without touching scorer code; only the category
// weights are fixed (see the score package).
func Defaults() *Config {
	return &Config{
		Version: 1,
		GitHub: GitHub{
			APIBase:           "https://api.github.com",
			TokenEnv:          "GITHUB_TOKEN",
			TimeoutSeconds:    30,
			Concurrency:       10,
			RetryDelaySeconds: 2,
			MaxRunMinutes:     240,
			Budget: Budget{
				Calls:          5000,
				AnonymousCalls: 60,
				WindowMinutes:  60,
			},
			Cache: Cache{
				Enabled:    false,
				Path:       "data/github_cache.db",
				MaxAgeDays: 7,
			},
		},
		Scoring: Scoring{
			Provenance: ProvenancePoints{
				HasSourceRepo:         25,
				RepoNotArchived:       10,
				HasLicense:            10,
				HasInstallablePackage: 15,
				HasWebsiteURL:         5,
				HasIcon:               5,
				NamespaceMatchesOwner: 10,
				HasSecurityMD:         10,
				HasCodeOfConduct:      5,
				UniqueDescription:     5,
			},
			Maintenance: Maintenance{
				AgePoints:           10,
				AgeThresholdDays:    90,
				PushRecencyPoints:   25,
				PushRecencyFullDays: 30,
				PushRecencyMaxDays:  365,
				CommitWeeksPoints:   20,
				CommitWeeksMax:      52,
				ContributorPoints:   15,
				ContributorTiers: []Tier{
					{Min: 10, Fraction: 1.0},
					{Min: 4, Fraction: 0.75},
					{Min: 2, Fraction: 0.50},
					{Min: 1, Fraction: 0.25},
				},
				// >100 published versions is a flood signal, not health.
				VersionTiers: []PointTier{
					{Min: 101, Points: 5},
					{Min: 51, Points: 10},
					{Min: 2, Points: 15},
					{Min: 1, Points: 5},
				},
				ReleaseTiers: []PointTier{
					{Min: 27, Points: 15},
					{Min: 14, Points: 10},
					{Min: 5, Points: 5},
				},
			},
			Popularity: Popularity{
				StarsPoints:    55,
				ForksPoints:    30,
				WatchersPoints: 15,
				StarsBrackets: []Tier{
					{Min: 10000, Fraction: 1.0},
					{Min: 1000, Fraction: 0.8},
					{Min: 100, Fraction: 0.6},
					{Min: 10, Fraction: 0.4},
					{Min: 1, Fraction: 0.1},
				},
				ForksBrackets: []Tier{
					{Min: 1000, Fraction: 1.0},
					{Min: 100, Fraction: 0.8},
					{Min: 50, Fraction: 0.6},
					{Min: 10, Fraction: 0.4},
					{Min: 1, Fraction: 0.1},
				},
				WatchersBrackets: []Tier{
					{Min: 100, Fraction: 1.0},
					{Min: 50, Fraction: 0.8},
					{Min: 20, Fraction: 0.6},
					{Min: 5, Fraction: 0.4},
					{Min: 1, Fraction: 0.1},
				},
			},
			Permissions: Permissions{
				SecretCountPoints: []int{40, 30, 20, 10},
				TransportRisk: map[string]int{
					"stdio":           25,
					"sse":             10,
					"streamable-http": 10,
				},
				TransportMixed:      15,
				TransportDefault:    5,
				CredentialNone:      20,
				CredentialAPIKey:    15,
				CredentialSensitive: 5,
				PackageTypeRisk: map[string]int{
					"npm":  15,
					"pypi": 15,
					"oci":  10,
				},
				PackageTypeDefault: 5,
			},
			Bands: []Band{
				{Min: 80, Max: 100, Label: "High Trust"},
				{Min: 60, Max: 79, Label: "Moderate Trust"},
				{Min: 40, Max: 59, Label: "Low Trust"},
				{Min: 20, Max: 39, Label: "Very Low Trust"},
				{Min: 0, Max: 19, Label: "Unknown/Suspicious"},
			},
		},
		Patterns: Patterns{
			TemplateDescriptions: []string{
				"a model context protocol server",
				"an mcp server",
				"mcp server for",
				"a mcp server",
				"model context protocol server",
				"this is an mcp server",
				"this is a mcp server",
				"my mcp server",
				"test mcp server",
				"example mcp server",
				"sample mcp server",
				"hello world mcp server",
			},
			StagingNames: []string{
				"test-", "-test", "staging-", "-staging",
				"dev-", "-dev", "example-", "-example",
				"demo-", "-demo", "sample-", "-sample",
				"temp-", "-temp", "tmp-", "-tmp",
			},
			SensitiveCredentials: []string{
				"wallet", "private_key", "secret_key", "master_key",
				"db_password", "database_password", "db_pass",
				"root_password", "admin_password",
				"seed_phrase", "mnemonic",
				"ssh_key", "ssl_cert",
			},
			APIKeys: []string{
				"api_key", "api_token", "access_token", "auth_token",
				"bearer", "secret", "token", "key", "password", "credential",
			},
		},
		Logging: Logging{
			Format: LogFormatJSON,
			Output: LogStdout,
		},
		Output: Output{
			Dir: "output",
		},
	}
}
