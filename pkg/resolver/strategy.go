package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pkgtools/updcheck/pkg/buildfile"
	"github.com/pkgtools/updcheck/pkg/forge"
	"github.com/pkgtools/updcheck/pkg/repology"
)

// strategy is one detection attempt in the resolution chain. An attempt
// returns a successful Verdict, errStrategySkipped, a *strategyFailure, or
// a fatal error that aborts the whole run.
type strategy interface {
	name() string
	attempt(ctx context.Context, src buildfile.Source, pkgName string) (Verdict, error)
}

// hostingStrategy asks one hosting provider for the source's version tag.
type hostingStrategy struct {
	provider forge.Provider
}

func (s *hostingStrategy) name() string { return s.provider.Name() }

func (s *hostingStrategy) attempt(ctx context.Context, src buildfile.Source, pkgName string) (Verdict, error) {
	if !s.provider.Match(src.Host()) {
		return Verdict{}, errStrategySkipped
	}

	tag, err := s.provider.LatestTag(ctx, src.URL, forge.StrategyLatestRelease)
	if err == nil {
		return Verdict{Updatable: true, Provider: s.provider.Name(), Tag: tag}, nil
	}
	if fatal := classifyFatal(err); fatal != nil {
		return Verdict{}, fatal
	}

	if errors.Is(err, forge.ErrNoTag) && !src.Clone {
		// Tagged but never released: retry with the newest-tag strategy.
		// Clone sources skip this, release semantics don't apply to them.
		tag, err = s.provider.LatestTag(ctx, src.URL, forge.StrategyNewestTag)
		if err == nil {
			return Verdict{
				Updatable:   true,
				Provider:    s.provider.Name(),
				Tag:         tag,
				TagStrategy: forge.StrategyNewestTag,
			}, nil
		}
		if fatal := classifyFatal(err); fatal != nil {
			return Verdict{}, fatal
		}
	}

	return Verdict{}, failed(err)
}

// classifyFatal picks out the failures that are environment problems rather
// than package problems.
func classifyFatal(err error) error {
	if errors.Is(err, forge.ErrNoNetwork) {
		return fmt.Errorf("no network connectivity: %w", err)
	}
	if errors.Is(err, forge.ErrAuthMissing) {
		return err
	}
	return nil
}

// registryStrategy infers updatability from the package being tracked by
// distributions outside this packaging project.
type registryStrategy struct {
	names *repology.NamesCache
	delay time.Duration
}

func (s *registryStrategy) name() string { return repology.MethodLabel }

func (s *registryStrategy) attempt(ctx context.Context, src buildfile.Source, pkgName string) (Verdict, error) {
	// Courtesy throttle ahead of every uniqueness query.
	select {
	case <-ctx.Done():
		return Verdict{}, ctx.Err()
	case <-time.After(s.delay):
	}

	unique, err := s.names.Contains(ctx, pkgName)
	if err != nil {
		return Verdict{}, fmt.Errorf("registry uniqueness lookup: %w", err)
	}
	if unique {
		return Verdict{}, failed(fmt.Errorf("package is unique to this repository, registry cannot track it"))
	}
	return Verdict{Updatable: true, MethodLabel: repology.MethodLabel}, nil
}
