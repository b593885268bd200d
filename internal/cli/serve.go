package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pkgtools/updcheck/pkg/buildfile"
	"github.com/pkgtools/updcheck/pkg/forge"
	"github.com/pkgtools/updcheck/pkg/forge/github"
	"github.com/pkgtools/updcheck/pkg/forge/gitlab"
	"github.com/pkgtools/updcheck/pkg/repology"
	"github.com/pkgtools/updcheck/pkg/resolver"
)

// serveCommand creates the serve command, a small read-only HTTP API around
// the resolver. CI dashboards can query updatability for arbitrary source
// URLs without a packages-tree checkout; nothing is ever written back.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the update-method resolver over HTTP",
		Long: `Run an HTTP server exposing the detection chain.

GET /v1/check?srcurl=<url>&name=<package> responds with the resolution
verdict as JSON. The server shares one Repology uniqueness set across all
requests for its whole lifetime.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8417", "listen address")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	backend, err := newCacheBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	gh := github.NewClient(backend, cfg.GitHubToken(), cfg.CacheTTL())
	gl := gitlab.NewClient(backend, cfg.GitLabToken(), cfg.CacheTTL())
	names := repology.NewNamesCache(repology.NewClient(cfg.RepologyRepo).UniqueProjects)

	res := resolver.New(resolver.Config{
		Providers:     []forge.Provider{gh, gl},
		Names:         names,
		CourtesyDelay: cfg.CourtesyDelay(),
		Logf: func(format string, args ...any) {
			c.Logger.Warnf(format, args...)
		},
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(c.requestLogger)
	r.Get("/v1/check", c.handleCheck(res))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	c.Logger.Infof("listening on %s", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// requestLogger tags every request with an ID and logs it at debug level.
func (c *CLI) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()[:8]
		w.Header().Set("X-Request-Id", id)
		c.Logger.Debugf("request %s %s %s", id, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// checkResponse is the JSON body for /v1/check.
type checkResponse struct {
	Updatable   bool   `json:"updatable"`
	Provider    string `json:"provider,omitempty"`
	Tag         string `json:"tag,omitempty"`
	TagStrategy string `json:"tag_strategy,omitempty"`
	Method      string `json:"method,omitempty"`
}

func (c *CLI) handleCheck(res *resolver.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		srcURL := r.URL.Query().Get("srcurl")
		name := r.URL.Query().Get("name")
		if srcURL == "" || name == "" {
			http.Error(w, "srcurl and name query parameters are required", http.StatusBadRequest)
			return
		}

		verdict, err := res.Resolve(r.Context(), buildfile.ParseSource(srcURL), name)
		if err != nil {
			c.Logger.Errorf("resolve %s: %v", name, err)
			http.Error(w, "resolution unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(checkResponse{
			Updatable:   verdict.Updatable,
			Provider:    verdict.Provider,
			Tag:         verdict.Tag,
			TagStrategy: string(verdict.TagStrategy),
			Method:      verdict.MethodLabel,
		})
	}
}
