// Package resolver decides whether a package's upstream source supports
// automated version-update detection.
//
// Resolution runs an ordered chain of detection strategies: one per hosting
// provider (tag lookups), then the registry-uniqueness fallback. The first
// strategy that succeeds determines the verdict; expected failures advance
// the chain. Only environment problems (no connectivity, missing credential,
// registry fetch failure) surface as errors, and callers treat those as
// fatal for the whole run.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/pkgtools/updcheck/pkg/buildfile"
	"github.com/pkgtools/updcheck/pkg/forge"
	"github.com/pkgtools/updcheck/pkg/repology"
)

// DefaultCourtesyDelay is the pause inserted before each registry-uniqueness
// query. Repology is a shared community service; a batch run over a whole
// packages tree must not hammer it.
const DefaultCourtesyDelay = time.Second

// Verdict is the outcome of resolving one package.
type Verdict struct {
	// Updatable reports whether any detection strategy succeeded.
	Updatable bool

	// Provider names the hosting provider for tag-based verdicts.
	Provider string

	// Tag is the discovered version tag for tag-based verdicts.
	Tag string

	// TagStrategy is set only when the newest-tag fallback was needed;
	// empty means the default latest-release lookup succeeded.
	TagStrategy forge.TagStrategy

	// MethodLabel is set only for registry-based verdicts and identifies
	// the registry (always "repology").
	MethodLabel string
}

// Logf receives warnings about failed strategy attempts.
type Logf func(format string, args ...any)

// Config assembles a Resolver.
type Config struct {
	// Providers are tried in slice order.
	Providers []forge.Provider

	// Names is the process-wide unique-project cache.
	Names *repology.NamesCache

	// CourtesyDelay overrides DefaultCourtesyDelay when positive.
	CourtesyDelay time.Duration

	// Logf receives strategy warnings; nil discards them.
	Logf Logf
}

// Resolver runs the detection strategy chain.
type Resolver struct {
	chain []strategy
	logf  Logf
}

// New creates a Resolver from cfg.
func New(cfg Config) *Resolver {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	delay := cfg.CourtesyDelay
	if delay <= 0 {
		delay = DefaultCourtesyDelay
	}

	chain := make([]strategy, 0, len(cfg.Providers)+1)
	for _, p := range cfg.Providers {
		chain = append(chain, &hostingStrategy{provider: p})
	}
	chain = append(chain, &registryStrategy{names: cfg.Names, delay: delay})

	return &Resolver{chain: chain, logf: logf}
}

// errStrategySkipped advances the chain silently: the provider simply does
// not host this source.
var errStrategySkipped = errors.New("strategy skipped")

// strategyFailure marks a recoverable attempt failure. The chain advances
// and the cause is logged as a warning.
type strategyFailure struct{ cause error }

func (f *strategyFailure) Error() string { return f.cause.Error() }
func (f *strategyFailure) Unwrap() error { return f.cause }

// failed marks err as a recoverable strategy failure.
func failed(err error) error { return &strategyFailure{cause: err} }

// Resolve classifies the package behind src. A Verdict with Updatable=false
// and a nil error means every strategy was exhausted; a non-nil error means
// the run itself cannot continue.
func (r *Resolver) Resolve(ctx context.Context, src buildfile.Source, pkgName string) (Verdict, error) {
	for _, s := range r.chain {
		v, err := s.attempt(ctx, src, pkgName)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, errStrategySkipped) {
			continue
		}
		var fail *strategyFailure
		if errors.As(err, &fail) {
			r.logf("%s: %s: %v", pkgName, s.name(), fail.cause)
			continue
		}
		return Verdict{}, err
	}
	return Verdict{}, nil
}
