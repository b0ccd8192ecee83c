// Package enrich fetches repository-level signals for registry entries
// from the GitHub API under a shared call budget. It never writes to the
// external API and tolerates per-entry failures without halting the batch.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client issues GitHub REST v3 lookups. The token is optional and affects
// only the caller's rate budget, never behavior.
type Client struct {
	base  string
	token string
	httpc *http.Client
}

// NewClient creates a GitHub API client. base is the API root
// (https://api.github.com); token may be empty for anonymous access.
func NewClient(base, token string, timeout time.Duration) *Client {
	return &Client{
		base:  base,
		token: token,
		httpc: &http.Client{Timeout: timeout},
	}
}

// RepoMetadata is the subset of the repository object we score on.
type RepoMetadata struct {
	StargazersCount  int  `json:"stargazers_count"`
	ForksCount       int  `json:"forks_count"`
	SubscribersCount int  `json:"subscribers_count"`
	Archived         bool `json:"archived"`
	License          *struct {
		SpdxID string `json:"spdx_id"`
	} `json:"license"`
	CreatedAt time.Time `json:"created_at"`
	PushedAt  time.Time `json:"pushed_at"`
}

// CommunityProfile reports the presence of well-known community files.
type CommunityProfile struct {
	HealthPercentage int `json:"health_percentage"`
	Files            struct {
		Security      json.RawMessage `json:"security"`
		CodeOfConduct json.RawMessage `json:"code_of_conduct"`
	} `json:"files"`
}

// HasSecurity reports whether the repository has a security policy file.
func (p *CommunityProfile) HasSecurity() bool {
	return filePresent(p.Files.Security)
}

// HasCodeOfConduct reports whether the repository has a code of conduct.
func (p *CommunityProfile) HasCodeOfConduct() bool {
	return filePresent(p.Files.CodeOfConduct)
}

func filePresent(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// Participation is the yearly commit activity split into total and
// owner-only commits per week (52 buckets, oldest first).
type Participation struct {
	All   []int `json:"all"`
	Owner []int `json:"owner"`
}

// RepoMetadata fetches /repos/{owner}/{repo}.
func (c *Client) RepoMetadata(ctx context.Context, owner, repo string) (*RepoMetadata, error) {
	var meta RepoMetadata
	if err := c.get(ctx, fmt.Sprintf("/repos/%s/%s", owner, repo), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// CommunityProfile fetches /repos/{owner}/{repo}/community/profile.
func (c *Client) CommunityProfile(ctx context.Context, owner, repo string) (*CommunityProfile, error) {
	var profile CommunityProfile
	if err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/community/profile", owner, repo), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Participation fetches /repos/{owner}/{repo}/stats/participation. GitHub
// answers 202 while computing stats; that maps to a transient failure so
// the caller's standard retry covers it.
func (c *Client) Participation(ctx context.Context, owner, repo string) (*Participation, error) {
	var part Participation
	if err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/stats/participation", owner, repo), &part); err != nil {
		return nil, err
	}
	return &part, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrTransient, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrTransient, path, err)
	}
	return nil
}

// classifyStatus maps HTTP status codes to the four failure kinds. A 403
// is rate limiting when the quota header reads zero, forbidden otherwise.
func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Request.URL.Path)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status 429", ErrRateLimited)
	case resp.StatusCode == http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return fmt.Errorf("%w: quota exhausted", ErrRateLimited)
		}
		return fmt.Errorf("%w: status 403", ErrForbidden)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusUnavailableForLegalReasons:
		return fmt.Errorf("%w: status %d", ErrForbidden, resp.StatusCode)
	case resp.StatusCode == http.StatusAccepted:
		// Stats still being computed server-side.
		return fmt.Errorf("%w: stats pending (202)", ErrTransient)
	default:
		return fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	}
}
