package repology

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient("termux")
	c.baseURL = server.URL
	return c
}

func TestUniqueProjects(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.RawQuery; got != "inrepo=termux&families=1" {
			t.Errorf("unexpected query %q", got)
		}
		fmt.Fprint(w, `{"termux-api": [], "termux-exec": []}`)
	})

	names, err := c.UniqueProjects(context.Background())
	if err != nil {
		t.Fatalf("UniqueProjects: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d", len(names))
	}
	if _, ok := names["termux-api"]; !ok {
		t.Error("termux-api missing from set")
	}
}

func TestUniqueProjectsClientError(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	if _, err := c.UniqueProjects(context.Background()); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestNamesCacheSingleFetch(t *testing.T) {
	fetches := 0
	cache := NewNamesCache(func(ctx context.Context) (map[string]struct{}, error) {
		fetches++
		return map[string]struct{}{"unique-pkg": {}}, nil
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		present, err := cache.Contains(ctx, "unique-pkg")
		if err != nil {
			t.Fatalf("Contains: %v", err)
		}
		if !present {
			t.Error("unique-pkg should be present")
		}
	}
	if present, _ := cache.Contains(ctx, "other-pkg"); present {
		t.Error("other-pkg should be absent")
	}

	if fetches != 1 {
		t.Errorf("expected exactly 1 fetch, got %d", fetches)
	}
}

func TestNamesCacheEmptySetStaysPopulated(t *testing.T) {
	fetches := 0
	cache := NewNamesCache(func(ctx context.Context) (map[string]struct{}, error) {
		fetches++
		return map[string]struct{}{}, nil
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if present, err := cache.Contains(ctx, "anything"); err != nil || present {
			t.Fatalf("expected clean absence, got present=%v err=%v", present, err)
		}
	}

	// An empty result is a valid population; it must not refetch.
	if fetches != 1 {
		t.Errorf("empty set triggered %d fetches, want 1", fetches)
	}
	if !cache.Populated() {
		t.Error("cache should report populated after an empty fetch")
	}
}

func TestNamesCacheFetchFailureStaysUnpopulated(t *testing.T) {
	fetchErr := errors.New("registry down")
	fetches := 0
	cache := NewNamesCache(func(ctx context.Context) (map[string]struct{}, error) {
		fetches++
		return nil, fetchErr
	})

	if _, err := cache.Contains(context.Background(), "pkg"); !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if cache.Populated() {
		t.Error("failed fetch must leave the cache unpopulated")
	}

	// A later call may try again.
	_, _ = cache.Contains(context.Background(), "pkg")
	if fetches != 2 {
		t.Errorf("expected retry after failure, got %d fetches", fetches)
	}
}
