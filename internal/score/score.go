// Package score converts an entry's signal set into a trust report: four
// bounded category scores, a weighted aggregate, a label, and independent
// risk flags. Scoring is pure. It does no I/O and reads no clock (the
// reference time is injected), so identical inputs always produce
// identical reports.
package score

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mcptrust/scorecard/internal/config"
	"github.com/mcptrust/scorecard/internal/enrich"
	"github.com/mcptrust/scorecard/internal/normalize"
	"github.com/mcptrust/scorecard/internal/registry"
)

// Category weights are the published scoring contract and are not
// configurable. The curves and point tables under them are policy and
// live in the config.
const (
	WeightProvenance  = 0.30
	WeightMaintenance = 0.25
	WeightPopularity  = 0.20
	WeightPermissions = 0.25
)

// ErrInvariant reports a category score outside [0,100]. That is a
// scoring-rule bug: the pipeline treats it as fatal rather than silently
// clamping a bad score into the published index.
var ErrInvariant = errors.New("category score out of range")

// CategoryScores holds the four independent 0-100 sub-scores.
type CategoryScores struct {
	Provenance  int `json:"provenance"`
	Maintenance int `json:"maintenance"`
	Popularity  int `json:"popularity"`
	Permissions int `json:"permissions"`
}

// Report is the complete scoring result for one entry. Immutable once
// produced; one per entry per run.
type Report struct {
	TrustScore int            `json:"trust_score"`
	TrustLabel string         `json:"trust_label"`
	Scores     CategoryScores `json:"scores"`
	Signals    Signals        `json:"signals"`
	Flags      []Flag         `json:"flags"`
}

// Calculator scores entries against one policy snapshot at one reference
// time. Safe for concurrent use: it holds no mutable state.
type Calculator struct {
	scoring config.Scoring
	now     time.Time

	// Pattern lists, pre-normalized so entry text and patterns meet in
	// the same canonical form.
	templates []string
	staging   []string
	sensitive []string
	apiKeys   []string
}

// NewCalculator builds a Calculator from validated config. now is the
// reference time for all age/recency math, fixed per run so the whole
// batch scores against the same instant.
func NewCalculator(cfg *config.Config, now time.Time) *Calculator {
	c := &Calculator{
		scoring: cfg.Scoring,
		now:     now,
	}
	for _, p := range cfg.Patterns.TemplateDescriptions {
		c.templates = append(c.templates, normalize.Description(p))
	}
	for _, p := range cfg.Patterns.StagingNames {
		c.staging = append(c.staging, strings.ToLower(p))
	}
	for _, p := range cfg.Patterns.SensitiveCredentials {
		c.sensitive = append(c.sensitive, strings.ToLower(p))
	}
	for _, p := range cfg.Patterns.APIKeys {
		c.apiKeys = append(c.apiKeys, strings.ToLower(p))
	}
	return c
}

// Score computes the full report for one entry. repo may be nil (no source
// repository or enrichment fully failed); flags come from DetectFlags and
// are recorded verbatim, never folded into the numeric score.
func (c *Calculator) Score(e registry.Entry, repo *enrich.RepoData, flags []Flag) (Report, error) {
	var sig Signals
	scores := CategoryScores{
		Provenance:  c.scoreProvenance(e, repo, &sig),
		Maintenance: c.scoreMaintenance(e, repo, &sig),
		Popularity:  c.scorePopularity(repo, &sig),
		Permissions: c.scorePermissions(e, &sig),
	}

	for name, s := range map[string]int{
		"provenance":  scores.Provenance,
		"maintenance": scores.Maintenance,
		"popularity":  scores.Popularity,
		"permissions": scores.Permissions,
	} {
		if s < 0 || s > 100 {
			return Report{}, fmt.Errorf("%w: %s=%d for %s", ErrInvariant, name, s, e.Name)
		}
	}

	weighted := float64(scores.Provenance)*WeightProvenance +
		float64(scores.Maintenance)*WeightMaintenance +
		float64(scores.Popularity)*WeightPopularity +
		float64(scores.Permissions)*WeightPermissions
	aggregate := int(math.Round(weighted))
	if aggregate > 100 {
		aggregate = 100
	}

	if len(flags) == 0 {
		flags = []Flag{}
	}
	return Report{
		TrustScore: aggregate,
		TrustLabel: c.Label(aggregate),
		Scores:     scores,
		Signals:    sig,
		Flags:      flags,
	}, nil
}

// Label maps an aggregate score to its trust band label. Bands are
// inclusive on both ends and validated to tile [0,100].
func (c *Calculator) Label(score int) string {
	for _, b := range c.scoring.Bands {
		if score >= b.Min && score <= b.Max {
			return b.Label
		}
	}
	return "Unknown/Suspicious"
}
