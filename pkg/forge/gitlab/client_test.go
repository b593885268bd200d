package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkgtools/updcheck/pkg/cache"
	"github.com/pkgtools/updcheck/pkg/forge"
)

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	return &Client{
		Client:  forge.NewClient(cache.NewNullCache(), "gitlab:", time.Hour, nil),
		baseURL: serverURL,
	}
}

func TestLatestTagRelease(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/releases/permalink/latest") {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(releaseResponse{TagName: "v2.0.0"})
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	tag, err := c.LatestTag(context.Background(), "https://gitlab.com/example/foo", forge.StrategyLatestRelease)
	if err != nil {
		t.Fatalf("LatestTag: %v", err)
	}
	if tag != "v2.0.0" {
		t.Errorf("tag = %q, want v2.0.0", tag)
	}
}

func TestLatestTagNewestStrategy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/repository/tags") {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]tagResponse{{Name: "v1.9"}})
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	tag, err := c.LatestTag(context.Background(), "https://gitlab.com/example/foo", forge.StrategyNewestTag)
	if err != nil {
		t.Fatalf("LatestTag: %v", err)
	}
	if tag != "v1.9" {
		t.Errorf("tag = %q, want v1.9", tag)
	}
}

func TestLatestTagNoRelease(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	c := testClient(t, server.URL)
	_, err := c.LatestTag(context.Background(), "https://gitlab.com/example/foo", forge.StrategyLatestRelease)
	if !errors.Is(err, forge.ErrNoTag) {
		t.Fatalf("expected ErrNoTag, got %v", err)
	}
}

func TestProjectPath(t *testing.T) {
	tests := []struct {
		url    string
		want   string
		wantOK bool
	}{
		{"https://gitlab.com/example/foo", "example/foo", true},
		{"https://gitlab.com/example/foo.git", "example/foo", true},
		{"https://gitlab.com/group/subgroup/foo", "group/subgroup/foo", true},
		{"https://gitlab.com/onlyowner", "", false},
		{"https://github.com/example/foo", "", false},
	}

	for _, tt := range tests {
		got, ok := projectPath(tt.url)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("projectPath(%q) = %q, %v; want %q, %v", tt.url, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestMatch(t *testing.T) {
	c := NewClient(cache.NewNullCache(), "", time.Hour)
	if !c.Match("gitlab.com") {
		t.Error("gitlab.com should match")
	}
	if c.Match("github.com") {
		t.Error("github.com must not match")
	}
}
