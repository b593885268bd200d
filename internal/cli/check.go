package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pkgtools/updcheck/pkg/buildfile"
	"github.com/pkgtools/updcheck/pkg/forge"
	"github.com/pkgtools/updcheck/pkg/forge/github"
	"github.com/pkgtools/updcheck/pkg/forge/gitlab"
	"github.com/pkgtools/updcheck/pkg/repology"
	"github.com/pkgtools/updcheck/pkg/resolver"
)

// checkOpts holds the command-line flags for the check command.
type checkOpts struct {
	enable  bool // persist the verdict into build.sh
	silent  bool // suppress non-essential output
	refresh bool // bypass the forge response cache
}

// checkCommand creates the check command.
func (c *CLI) checkCommand() *cobra.Command {
	opts := checkOpts{}

	cmd := &cobra.Command{
		Use:   "check <package-dir>...",
		Short: "Decide whether packages support automated update detection",
		Long: `Check one or more package directories for auto-update capability.

For each package the source URL from build.sh is run through the detection
chain: hosting-service tag lookup (GitHub, then GitLab), falling back to the
Repology uniqueness check. Packages that already declare
TERMUX_PKG_AUTO_UPDATE are reported as classified without re-resolving.

With --enable, positive verdicts are written back into build.sh.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(cmd.Context(), opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.enable, "enable", false, "write positive verdicts into build.sh")
	cmd.Flags().BoolVarP(&opts.silent, "silent", "s", false, "suppress non-essential output")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the forge response cache")

	return cmd
}

func (c *CLI) runCheck(ctx context.Context, opts checkOpts, dirs []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	backend, err := newCacheBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open cache backend: %w", err)
	}
	defer backend.Close()

	gh := github.NewClient(backend, cfg.GitHubToken(), cfg.CacheTTL())
	gh.Refresh = opts.refresh
	gl := gitlab.NewClient(backend, cfg.GitLabToken(), cfg.CacheTTL())
	gl.Refresh = opts.refresh

	names := repology.NewNamesCache(repology.NewClient(cfg.RepologyRepo).UniqueProjects)

	logf := resolver.Logf(func(format string, args ...any) {
		c.Logger.Warnf(format, args...)
	})
	if opts.silent {
		logf = nil
	}

	res := resolver.New(resolver.Config{
		Providers:     []forge.Provider{gh, gl},
		Names:         names,
		CourtesyDelay: cfg.CourtesyDelay(),
		Logf:          logf,
	})

	runID := uuid.NewString()[:8]
	logger := c.Logger.With("run", runID)
	logger.Debugf("checking %d package(s)", len(dirs))

	failed := 0
	for _, dir := range dirs {
		ok, err := c.checkPackage(ctx, res, opts, dir)
		if err != nil {
			return err
		}
		if !ok {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d package(s) cannot be auto-updated", failed, len(dirs))
	}
	return nil
}

// checkPackage resolves one package directory. The boolean reports the
// per-package outcome; a non-nil error is fatal for the whole run.
func (c *CLI) checkPackage(ctx context.Context, res *resolver.Resolver, opts checkOpts, dir string) (bool, error) {
	pkg, err := buildfile.Load(dir)
	if err != nil {
		printError("%s: %v", dir, err)
		return false, nil
	}

	// Pre-check gate: an existing declaration is an explicit maintainer
	// decision, never re-resolve over it.
	if pkg.HasAutoUpdate() {
		printSuccess("%s: already classified (%s=%s)", pkg.Name, buildfile.KeyAutoUpdate, pkg.AutoUpdate)
		return true, nil
	}

	if pkg.SrcURL == "" {
		printError("%s: build.sh has no %s", pkg.Name, buildfile.KeySrcURL)
		return false, nil
	}

	src := buildfile.ParseSource(pkg.SrcURL)
	verdict, err := res.Resolve(ctx, src, pkg.Name)
	if err != nil {
		return false, err
	}

	if !verdict.Updatable {
		printError("%s: cannot be auto-updated", pkg.Name)
		return false, nil
	}

	switch {
	case verdict.MethodLabel != "":
		printSuccess("%s: auto-updatable via %s", pkg.Name, verdict.MethodLabel)
	case verdict.TagStrategy != "":
		printSuccess("%s: auto-updatable via %s (%s %s)", pkg.Name, verdict.Provider, verdict.TagStrategy, verdict.Tag)
	default:
		printSuccess("%s: auto-updatable via %s (latest release %s)", pkg.Name, verdict.Provider, verdict.Tag)
	}

	if opts.enable {
		if err := persistVerdict(pkg, verdict); err != nil {
			return false, err
		}
		if !opts.silent {
			printDetail("updated %s", pkg.ScriptPath())
		}
	}
	return true, nil
}

// persistVerdict writes the declarations for a positive verdict into the
// package's build.sh, one insertion per declaration so each lands before
// the file's current first blank line.
func persistVerdict(pkg *buildfile.Package, v resolver.Verdict) error {
	if !v.Updatable {
		return errors.New("refusing to persist a negative verdict")
	}

	path := pkg.ScriptPath()
	if err := buildfile.InsertDeclaration(path, buildfile.KeyAutoUpdate+"=true"); err != nil {
		return err
	}
	if v.TagStrategy != "" {
		decl := fmt.Sprintf("%s=%q", buildfile.KeyTagType, string(v.TagStrategy))
		if err := buildfile.InsertDeclaration(path, decl); err != nil {
			return err
		}
	}
	if v.MethodLabel != "" {
		if err := buildfile.InsertDeclaration(path, buildfile.KeyMethod+"="+v.MethodLabel); err != nil {
			return err
		}
	}
	return nil
}
