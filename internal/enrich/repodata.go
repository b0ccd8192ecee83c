package enrich

import (
	"time"

	"github.com/mcptrust/scorecard/internal/signal"
)

// RepoData is the repository-level signal set gathered for one entry.
// Every field is a tagged optional: a lookup that failed leaves its fields
// unknown, which downstream scoring treats differently from an observed
// false or zero. Serializes to JSON with null for unknowns (also the cache
// storage format).
type RepoData struct {
	Owner             string                  `json:"owner"`
	Stars             signal.Opt[int]         `json:"stars"`
	Forks             signal.Opt[int]         `json:"forks"`
	Watchers          signal.Opt[int]         `json:"watchers"`
	Archived          signal.Opt[bool]        `json:"archived"`
	License           signal.Opt[string]      `json:"license"` // SPDX id; known empty = no license
	CreatedAt         signal.Opt[time.Time]   `json:"created_at"`
	PushedAt          signal.Opt[time.Time]   `json:"pushed_at"`
	Contributors      signal.Opt[int]         `json:"contributors"`
	CommitWeeksActive signal.Opt[int]         `json:"commit_weeks_active"`
	HasSecurityPolicy signal.Opt[bool]        `json:"has_security_policy"`
	HasCodeOfConduct  signal.Opt[bool]        `json:"has_code_of_conduct"`
	HealthPercentage  signal.Opt[int]         `json:"health_percentage"`
}

// estimateContributors derives a conservative contributor lower bound from
// participation stats ("all" and "owner" commits per week). Weeks where
// all > owner prove someone besides the owner committed. Imprecise, but it
// avoids paginating the contributors endpoint and saves one budgeted call
// per repository.
func estimateContributors(all, owner []int) signal.Opt[int] {
	if len(all) == 0 {
		return signal.None[int]()
	}

	totalActive := 0
	for _, w := range all {
		if w > 0 {
			totalActive++
		}
	}
	if totalActive == 0 {
		return signal.None[int]()
	}

	if len(owner) != len(all) {
		n := totalActive / 10
		if n < 1 {
			n = 1
		}
		return signal.Some(n)
	}

	otherWeeks := 0
	for i, a := range all {
		if a > owner[i] {
			otherWeeks++
		}
	}

	switch {
	case otherWeeks == 0:
		return signal.Some(1)
	case otherWeeks >= 40:
		return signal.Some(10)
	case otherWeeks >= 25:
		return signal.Some(7)
	case otherWeeks >= 15:
		return signal.Some(5)
	case otherWeeks >= 8:
		return signal.Some(3)
	default:
		return signal.Some(2)
	}
}
