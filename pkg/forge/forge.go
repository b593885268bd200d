// Package forge abstracts the tag-discovery APIs of source hosting services.
//
// A Provider answers one question: what is the current version tag of the
// repository behind a source URL. Failures are classified into structured
// errors so the resolver never has to pattern-match error text:
//
//   - [ErrNoTag]: the repository exists but has no qualifying tag
//   - [ErrAuthMissing]: a required credential is not configured
//   - [ErrNoNetwork]: transport-level failure, the service was never reached
//   - [*HTTPError]: the service answered with an unexpected status
//
// Retry policy for transient failures lives inside the providers; callers
// treat a lookup as atomic.
package forge

import (
	"context"
	"errors"
	"fmt"
)

// TagStrategy selects how a provider picks the version tag of a repository.
type TagStrategy string

const (
	// StrategyLatestRelease asks for the tag of the newest published release.
	// This is the default and the most reliable signal.
	StrategyLatestRelease TagStrategy = "latest-release-tag"

	// StrategyNewestTag falls back to the newest git tag when a repository
	// publishes tags but no releases.
	StrategyNewestTag TagStrategy = "newest-tag"
)

// Classified lookup failures.
var (
	// ErrNoTag is returned when the repository has no tag qualifying under
	// the requested strategy.
	ErrNoTag = errors.New("no qualifying tag")

	// ErrAuthMissing is returned when the provider requires a credential
	// that is not configured. Callers treat this as fatal.
	ErrAuthMissing = errors.New("forge credential missing")

	// ErrNoNetwork is returned when the service could not be reached at the
	// transport level. Callers treat this as fatal: it is an environment
	// problem, not a package problem.
	ErrNoNetwork = errors.New("network unreachable")
)

// HTTPError reports a response status that does not fit any other category.
// These failures are recoverable per package: the caller moves on to the
// next provider.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Status)
}

// Provider is one hosting service capable of tag lookups.
type Provider interface {
	// Name identifies the provider in logs and verdicts.
	Name() string

	// Match reports whether the provider hosts repositories under host.
	Match(host string) bool

	// LatestTag returns the repository's version tag under the given
	// strategy, or one of the classified errors above.
	LatestTag(ctx context.Context, repoURL string, strategy TagStrategy) (string, error)
}
