package firecrawl

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mikeboe/toolscout/pkg/workflow"
)

func newTestClient(handler http.HandlerFunc) (*Client, func()) {
	srv := httptest.NewServer(handler)
	c := NewClientWithKey("test-key")
	c.baseURL = srv.URL
	return c, srv.Close
}

func TestSearch(t *testing.T) {
	c, closeFn := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %s, want /search", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		w.Write([]byte(`{"success":true,"data":[
			{"title":"Alpaca","description":"Trading API","url":"https://alpaca.markets"},
			{"title":"Tradier","description":"Brokerage API","url":"https://tradier.com"}
		]}`))
	})
	defer closeFn()

	results, err := c.Search(context.Background(), "trading APIs", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].URL != "https://alpaca.markets" || results[0].Snippet != "Trading API" {
		t.Errorf("results[0] = %+v", results[0])
	}
}

func TestSearchEmptyIsNotError(t *testing.T) {
	c, closeFn := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":[]}`))
	})
	defer closeFn()

	results, err := c.Search(context.Background(), "nothing", 5)
	if err != nil {
		t.Fatalf("Search() error = %v, want nil for empty result", err)
	}
	if len(results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(results))
	}
}

func TestSearchProviderFailure(t *testing.T) {
	c, closeFn := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"success":false,"error":"rate limited"}`))
	})
	defer closeFn()

	_, err := c.Search(context.Background(), "q", 5)
	var searchErr *workflow.SearchError
	if !errors.As(err, &searchErr) {
		t.Fatalf("Search() error = %v, want SearchError", err)
	}
}

func TestScrape(t *testing.T) {
	c, closeFn := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scrape" {
			t.Errorf("path = %s, want /scrape", r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"data":{"markdown":"# Pricing\nFree tier.","metadata":{"title":"Alpaca"}}}`))
	})
	defer closeFn()

	page, err := c.Scrape(context.Background(), "https://alpaca.markets")
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if page.Markdown == "" {
		t.Error("Markdown is empty")
	}
	if page.Metadata["title"] != "Alpaca" {
		t.Errorf("Metadata = %v", page.Metadata)
	}
}

func TestScrapeNonTextContent(t *testing.T) {
	c, closeFn := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"markdown":""}}`))
	})
	defer closeFn()

	_, err := c.Scrape(context.Background(), "https://example.com/image.png")
	var scrapeErr *workflow.ScrapeError
	if !errors.As(err, &scrapeErr) {
		t.Fatalf("Scrape() error = %v, want ScrapeError", err)
	}
}
