package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkgtools/updcheck/pkg/cache"
	"github.com/pkgtools/updcheck/pkg/forge"
)

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	return &Client{
		Client:  forge.NewClient(cache.NewNullCache(), "github:", time.Hour, nil),
		baseURL: serverURL,
		token:   "test-token",
	}
}

func TestLatestTagRelease(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/example/foo/releases/latest" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(releaseResponse{TagName: "v1.2.3"})
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	tag, err := c.LatestTag(context.Background(), "https://github.com/example/foo", forge.StrategyLatestRelease)
	if err != nil {
		t.Fatalf("LatestTag: %v", err)
	}
	if tag != "v1.2.3" {
		t.Errorf("tag = %q, want v1.2.3", tag)
	}
}

func TestLatestTagNoRelease(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	_, err := c.LatestTag(context.Background(), "https://github.com/example/foo", forge.StrategyLatestRelease)
	if !errors.Is(err, forge.ErrNoTag) {
		t.Fatalf("expected ErrNoTag, got %v", err)
	}
}

func TestLatestTagNewestStrategy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/example/foo/tags" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]tagResponse{{Name: "20240101"}})
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	tag, err := c.LatestTag(context.Background(), "https://github.com/example/foo", forge.StrategyNewestTag)
	if err != nil {
		t.Fatalf("LatestTag: %v", err)
	}
	if tag != "20240101" {
		t.Errorf("tag = %q, want 20240101", tag)
	}
}

func TestLatestTagEmptyTagList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]tagResponse{})
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	_, err := c.LatestTag(context.Background(), "https://github.com/example/foo", forge.StrategyNewestTag)
	if !errors.Is(err, forge.ErrNoTag) {
		t.Fatalf("expected ErrNoTag, got %v", err)
	}
}

func TestLatestTagMissingToken(t *testing.T) {
	c := NewClient(cache.NewNullCache(), "", time.Hour)
	_, err := c.LatestTag(context.Background(), "https://github.com/example/foo", forge.StrategyLatestRelease)
	if !errors.Is(err, forge.ErrAuthMissing) {
		t.Fatalf("expected ErrAuthMissing, got %v", err)
	}
}

func TestLatestTagHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	_, err := c.LatestTag(context.Background(), "https://github.com/example/foo", forge.StrategyLatestRelease)
	var httpErr *forge.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", httpErr.Status)
	}
}

func TestMatch(t *testing.T) {
	c := NewClient(cache.NewNullCache(), "tok", time.Hour)
	if !c.Match("github.com") {
		t.Error("github.com should match")
	}
	if c.Match("gitlab.com") || c.Match("example.org") {
		t.Error("foreign hosts must not match")
	}
}

func TestSplitRepoURL(t *testing.T) {
	tests := []struct {
		url       string
		wantOwner string
		wantRepo  string
		wantOK    bool
	}{
		{"https://github.com/example/foo", "example", "foo", true},
		{"https://github.com/example/foo.git", "example", "foo", true},
		{"https://github.com/example/foo/archive/v1.0.tar.gz", "example", "foo", true},
		{"https://example.org/foo.tar.gz", "", "", false},
	}

	for _, tt := range tests {
		owner, repo, ok := splitRepoURL(tt.url)
		if ok != tt.wantOK {
			t.Errorf("splitRepoURL(%q) ok=%v, want %v", tt.url, ok, tt.wantOK)
			continue
		}
		if owner != tt.wantOwner || repo != tt.wantRepo {
			t.Errorf("splitRepoURL(%q) = %s/%s, want %s/%s", tt.url, owner, repo, tt.wantOwner, tt.wantRepo)
		}
	}
}
