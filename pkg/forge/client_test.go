package forge

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkgtools/updcheck/pkg/cache"
)

func TestCheckStatus(t *testing.T) {
	if err := checkStatus(http.StatusOK); err != nil {
		t.Errorf("200 should be nil, got %v", err)
	}
	if err := checkStatus(http.StatusNotFound); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("404 should map to ErrNotFound, got %v", err)
	}

	err := checkStatus(http.StatusForbidden)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != http.StatusForbidden {
		t.Errorf("403 should map to HTTPError, got %v", err)
	}
	if cache.IsRetryable(err) {
		t.Error("403 should not be retryable")
	}

	err = checkStatus(http.StatusBadGateway)
	if !errors.As(err, &httpErr) || httpErr.Status != http.StatusBadGateway {
		t.Errorf("502 should map to HTTPError, got %v", err)
	}
	if !cache.IsRetryable(err) {
		t.Error("5xx should be retryable")
	}
}

func TestDoRequestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close() // connection refused from here on

	c := NewClient(cache.NewNullCache(), "test:", time.Hour, nil)
	_, err := c.doRequest(context.Background(), url)
	if !errors.Is(err, ErrNoNetwork) {
		t.Fatalf("transport failure should map to ErrNoNetwork, got %v", err)
	}
	if !cache.IsRetryable(err) {
		t.Error("transport failure should be retryable")
	}
}

func TestCachedStoresResults(t *testing.T) {
	backend, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient(backend, "test:", time.Hour, nil)

	type payload struct {
		Value string `json:"value"`
	}

	calls := 0
	fetch := func(v *payload) func() error {
		return func() error {
			calls++
			v.Value = "fetched"
			return nil
		}
	}

	var first payload
	if err := c.Cached(context.Background(), "key", false, &first, fetch(&first)); err != nil {
		t.Fatalf("first Cached: %v", err)
	}
	var second payload
	if err := c.Cached(context.Background(), "key", false, &second, fetch(&second)); err != nil {
		t.Fatalf("second Cached: %v", err)
	}

	if calls != 1 {
		t.Errorf("expected 1 fetch, got %d", calls)
	}
	if second.Value != "fetched" {
		t.Errorf("cache hit should populate value, got %q", second.Value)
	}

	// refresh bypasses the cached entry
	var third payload
	if err := c.Cached(context.Background(), "key", true, &third, fetch(&third)); err != nil {
		t.Fatalf("refresh Cached: %v", err)
	}
	if calls != 2 {
		t.Errorf("refresh should force a fetch, got %d calls", calls)
	}
}

func TestCachedDoesNotCacheFailures(t *testing.T) {
	backend, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient(backend, "test:", time.Hour, nil)

	var v struct{}
	failing := func() error { return ErrNoTag }
	if err := c.Cached(context.Background(), "key", false, &v, failing); !errors.Is(err, ErrNoTag) {
		t.Fatalf("expected ErrNoTag, got %v", err)
	}

	calls := 0
	if err := c.Cached(context.Background(), "key", false, &v, func() error {
		calls++
		return nil
	}); err != nil {
		t.Fatalf("Cached after failure: %v", err)
	}
	if calls != 1 {
		t.Error("failure must not be cached")
	}
}
