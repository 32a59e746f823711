package listing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"harborcal/internal/config"
	"harborcal/internal/event"
	"harborcal/internal/fetch"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Company = "acmetours"
	cfg.Flow = "67890"
	cfg.Browser = false
	cfg.Normalize()
	return cfg
}

func TestResolveStatic(t *testing.T) {
	const listingHTML = `<html><body>
<a href="/embeds/book/acmetours/items/101/?flow=67890">Sunset Sail</a>
<a href="https://fareharbor.com/embeds/book/acmetours/items/202/?flow=67890">Harbor Tour</a>
<a href="/embeds/book/acmetours/items/101/?flow=67890">Sunset Sail again</a>
<a href="/embeds/book/othertours/items/303/">Someone else's boat</a>
<a href="/embeds/book/acmetours/about/">About us</a>
</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingHTML))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.ListingURL = server.URL + "/listing"

	urls, err := NewResolver(fetch.NewClient(cfg.HTTPTimeout), cfg).Resolve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(urls) != 2 {
		t.Fatalf("expected 2 item URLs, got %d: %v", len(urls), urls)
	}
	if urls[0] != server.URL+"/embeds/book/acmetours/items/101/?flow=67890" {
		t.Errorf("relative link should resolve against the listing URL, got %q", urls[0])
	}
	if urls[1] != "https://fareharbor.com/embeds/book/acmetours/items/202/?flow=67890" {
		t.Errorf("absolute link should pass through, got %q", urls[1])
	}
}

func TestResolveScriptEmbeddedLinks(t *testing.T) {
	// No anchors at all, but the client-side bootstrap state carries
	// item URLs.
	const listingHTML = `<html><body>
<script>window.__STATE__ = {"items":["/embeds/book/acmetours/items/55/","/embeds/book/acmetours/items/66/"]}</script>
</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingHTML))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.ListingURL = server.URL + "/listing"

	urls, err := NewResolver(fetch.NewClient(cfg.HTTPTimeout), cfg).Resolve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("expected 2 item URLs, got %v", urls)
	}
}

func TestResolveCap(t *testing.T) {
	var listingHTML string
	for i := 0; i < 60; i++ {
		listingHTML += `<a href="/embeds/book/acmetours/items/` + strconv.Itoa(1000+i) + `/">x</a>`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>" + listingHTML + "</body></html>"))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.ListingURL = server.URL + "/listing"

	urls, err := NewResolver(fetch.NewClient(cfg.HTTPTimeout), cfg).Resolve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(urls) != cfg.MaxItems {
		t.Errorf("expected cap of %d, got %d", cfg.MaxItems, len(urls))
	}
}

func TestResolveFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.ListingURL = server.URL + "/listing"

	if _, err := NewResolver(fetch.NewClient(cfg.HTTPTimeout), cfg).Resolve(context.Background()); err == nil {
		t.Fatal("expected an error so the caller can fall back to reconstruction")
	}
}

func TestReconstruct(t *testing.T) {
	cfg := testConfig()
	previous := []event.Event{
		{URL: "https://fareharbor.com/embeds/book/acmetours/items/101/calendar/2026/09/"},
		{URL: "https://fareharbor.com/embeds/book/acmetours/items/101/calendar/2026/10/"}, // same item
		{URL: "https://fareharbor.com/embeds/book/acmetours/items/202/calendar/2026/09/"},
		{URL: "https://townhall.example.org/concerts/summer"}, // foreign, ignored
	}

	urls := Reconstruct(previous, cfg)
	want := []string{
		"https://fareharbor.com/embeds/book/acmetours/items/101/?flow=67890",
		"https://fareharbor.com/embeds/book/acmetours/items/202/?flow=67890",
	}
	if len(urls) != len(want) {
		t.Fatalf("got %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}

func TestReconstructNothingUsable(t *testing.T) {
	cfg := testConfig()
	urls := Reconstruct([]event.Event{
		{URL: "https://townhall.example.org/concerts/summer"},
	}, cfg)
	if len(urls) != 0 {
		t.Errorf("expected no URLs, got %v", urls)
	}
}
