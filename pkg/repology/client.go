// Package repology queries the Repology registry to decide whether a package
// is known to software distributions outside this packaging project.
//
// A package tracked by several independent distributions can be assumed to
// follow generic release conventions, which makes registry-based update
// detection viable even when its hosting service offers no usable tag API.
package repology

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkgtools/updcheck/pkg/cache"
)

// MethodLabel identifies this registry in persisted update-method
// declarations.
const MethodLabel = "repology"

const httpTimeout = 30 * time.Second

// Client fetches the set of project names unique to one packaging
// repository. The whole set comes back in a single blocking call; results
// are deliberately not cached on disk, the uniqueness verdict is scoped to
// one run.
type Client struct {
	http    *http.Client
	baseURL string
	repo    string
}

// NewClient creates a Repology client scoped to the given repository
// identifier (e.g. "termux").
func NewClient(repo string) *Client {
	return &Client{
		http:    &http.Client{Timeout: httpTimeout},
		baseURL: "https://repology.org/api/v1",
		repo:    repo,
	}
}

// UniqueProjects returns the names of all projects known only to this
// packaging repository. A package absent from this set is tracked by other
// distributions too.
func (c *Client) UniqueProjects(ctx context.Context) (map[string]struct{}, error) {
	url := fmt.Sprintf("%s/projects/?inrepo=%s&families=1", c.baseURL, c.repo)

	var projects map[string]json.RawMessage
	err := cache.RetryWithBackoff(ctx, func() error {
		return c.fetch(ctx, url, &projects)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch repology project set: %w", err)
	}

	names := make(map[string]struct{}, len(projects))
	for name := range projects {
		names[name] = struct{}{}
	}
	return names, nil
}

func (c *Client) fetch(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return cache.Retryable(fmt.Errorf("%w: %v", cache.ErrNetwork, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(v)
	case resp.StatusCode >= 500:
		return cache.Retryable(fmt.Errorf("%w: status %d", cache.ErrNetwork, resp.StatusCode))
	default:
		return fmt.Errorf("%w: status %d", cache.ErrNetwork, resp.StatusCode)
	}
}
