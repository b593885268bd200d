// Package gitlab implements tag lookups against the GitLab REST API.
package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pkgtools/updcheck/pkg/cache"
	"github.com/pkgtools/updcheck/pkg/forge"
)

// Client looks up version tags through gitlab.com's API. Unlike GitHub,
// anonymous lookups are allowed; a token only raises the rate limits.
type Client struct {
	*forge.Client
	baseURL string

	// Refresh bypasses the response cache for reads; fresh results are
	// still stored.
	Refresh bool
}

// NewClient creates a GitLab tag lookup client. Pass an empty token for
// unauthenticated access.
func NewClient(backend cache.Cache, token string, cacheTTL time.Duration) *Client {
	var headers map[string]string
	if token != "" {
		headers = map[string]string{"PRIVATE-TOKEN": token}
	}
	return &Client{
		Client:  forge.NewClient(backend, "gitlab:", cacheTTL, headers),
		baseURL: "https://gitlab.com/api/v4",
	}
}

// Name implements [forge.Provider].
func (c *Client) Name() string { return "gitlab" }

// Match implements [forge.Provider].
func (c *Client) Match(host string) bool { return host == "gitlab.com" }

// LatestTag implements [forge.Provider].
func (c *Client) LatestTag(ctx context.Context, repoURL string, strategy forge.TagStrategy) (string, error) {
	project, ok := projectPath(repoURL)
	if !ok {
		return "", fmt.Errorf("not a gitlab repository url: %s", repoURL)
	}

	key := fmt.Sprintf("tag:%s:%s", strategy, project)
	var result tagResult
	err := c.Cached(ctx, key, c.Refresh, &result, func() error {
		tag, err := c.fetchTag(ctx, project, strategy)
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

func (c *Client) fetchTag(ctx context.Context, project string, strategy forge.TagStrategy) (string, error) {
	id := url.PathEscape(project)
	switch strategy {
	case forge.StrategyNewestTag:
		var tags []tagResponse
		u := fmt.Sprintf("%s/projects/%s/repository/tags?per_page=1", c.baseURL, id)
		if err := c.Get(ctx, u, &tags); err != nil {
			return "", classify(err)
		}
		if len(tags) == 0 || tags[0].Name == "" {
			return "", forge.ErrNoTag
		}
		return tags[0].Name, nil
	default:
		var rel releaseResponse
		u := fmt.Sprintf("%s/projects/%s/releases/permalink/latest", c.baseURL, id)
		if err := c.Get(ctx, u, &rel); err != nil {
			return "", classify(err)
		}
		if rel.TagName == "" {
			return "", forge.ErrNoTag
		}
		return rel.TagName, nil
	}
}

func classify(err error) error {
	if errors.Is(err, cache.ErrNotFound) {
		return forge.ErrNoTag
	}
	return err
}

// projectPath extracts the full project path from a gitlab.com URL.
// GitLab projects can be nested under groups, so everything after the host
// belongs to the path.
func projectPath(repoURL string) (string, bool) {
	u, err := url.Parse(repoURL)
	if err != nil || !strings.EqualFold(u.Hostname(), "gitlab.com") {
		return "", false
	}
	path := strings.Trim(u.Path, "/")
	path = strings.TrimSuffix(path, ".git")
	if path == "" || !strings.Contains(path, "/") {
		return "", false
	}
	return path, true
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
