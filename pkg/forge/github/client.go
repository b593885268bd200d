// Package github implements tag lookups against the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/pkgtools/updcheck/pkg/cache"
	"github.com/pkgtools/updcheck/pkg/forge"
)

var repoURLPattern = regexp.MustCompile(`https?://github\.com/([^/]+)/([^/]+?)(?:\.git)?(?:[/?#]|$)`)

// Client looks up version tags through api.github.com.
// The API enforces very low unauthenticated rate limits, so a token is
// required; lookups without one fail with [forge.ErrAuthMissing].
type Client struct {
	*forge.Client
	baseURL string
	token   string

	// Refresh bypasses the response cache for reads; fresh results are
	// still stored.
	Refresh bool
}

// NewClient creates a GitHub tag lookup client.
func NewClient(backend cache.Cache, token string, cacheTTL time.Duration) *Client {
	headers := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Client{
		Client:  forge.NewClient(backend, "github:", cacheTTL, headers),
		baseURL: "https://api.github.com",
		token:   token,
	}
}

// Name implements [forge.Provider].
func (c *Client) Name() string { return "github" }

// Match implements [forge.Provider].
func (c *Client) Match(host string) bool { return host == "github.com" }

// LatestTag implements [forge.Provider].
func (c *Client) LatestTag(ctx context.Context, repoURL string, strategy forge.TagStrategy) (string, error) {
	if c.token == "" {
		return "", fmt.Errorf("%w: GITHUB_TOKEN not set", forge.ErrAuthMissing)
	}

	owner, repo, ok := splitRepoURL(repoURL)
	if !ok {
		return "", fmt.Errorf("not a github repository url: %s", repoURL)
	}

	key := fmt.Sprintf("tag:%s:%s/%s", strategy, owner, repo)
	var result tagResult
	err := c.Cached(ctx, key, c.Refresh, &result, func() error {
		tag, err := c.fetchTag(ctx, owner, repo, strategy)
		if err != nil {
			return err
		}
		result.Tag = tag
		return nil
	})
	if err != nil {
		return "", err
	}
	if result.Tag == "" {
		return "", forge.ErrNoTag
	}
	return result.Tag, nil
}

func (c *Client) fetchTag(ctx context.Context, owner, repo string, strategy forge.TagStrategy) (string, error) {
	switch strategy {
	case forge.StrategyNewestTag:
		var tags []tagResponse
		url := fmt.Sprintf("%s/repos/%s/%s/tags?per_page=1", c.baseURL, owner, repo)
		if err := c.Get(ctx, url, &tags); err != nil {
			return "", classify(err)
		}
		if len(tags) == 0 || tags[0].Name == "" {
			return "", forge.ErrNoTag
		}
		return tags[0].Name, nil
	default:
		var rel releaseResponse
		url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, owner, repo)
		if err := c.Get(ctx, url, &rel); err != nil {
			return "", classify(err)
		}
		if rel.TagName == "" {
			return "", forge.ErrNoTag
		}
		return rel.TagName, nil
	}
}

// classify maps the shared client's 404 sentinel onto the tag taxonomy:
// a missing releases/tags endpoint means the repository has nothing to offer
// under the requested strategy.
func classify(err error) error {
	if errors.Is(err, cache.ErrNotFound) {
		return forge.ErrNoTag
	}
	return err
}

func splitRepoURL(repoURL string) (owner, repo string, ok bool) {
	m := repoURLPattern.FindStringSubmatch(repoURL)
	if len(m) < 3 {
		return "", "", false
	}
	return m[1], m[2], true
}

type releaseResponse struct {
	TagName string `json:"tag_name"`
}

type tagResponse struct {
	Name string `json:"name"`
}

type tagResult struct {
	Tag string `json:"tag"`
}
