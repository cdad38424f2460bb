package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"feedhub/internal/domain/fetcherr"
)

const sampleRSS = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Example Feed</title>
    <link>https://example.com/</link>
    <description>desc</description>
    <item>
      <title>First post</title>
      <link>https://example.com/1</link>
      <guid>https://example.com/1</guid>
      <pubDate>Mon, 10 Jan 2024 00:00:00 GMT</pubDate>
      <description>&lt;p&gt;hello&lt;/p&gt;</description>
    </item>
  </channel>
</rss>`

func testFetcher(t *testing.T) *Fetcher {
	t.Helper()
	cfg := DefaultConfig()
	cfg.TotalTimeout = 2 * time.Second
	cfg.ConnectTimeout = 2 * time.Second
	return New(cfg, nil)
}

func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	f := testFetcher(t)
	feed, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if feed.Meta.Title != "Example Feed" {
		t.Fatalf("Meta.Title = %q, want %q", feed.Meta.Title, "Example Feed")
	}
	if len(feed.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(feed.Entries))
	}
	if feed.Entries[0].ID != "https://example.com/1" {
		t.Fatalf("Entries[0].ID = %q, want guid", feed.Entries[0].ID)
	}
}

func TestFetchNonTwoXX(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := testFetcher(t)
	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatalf("expected error for 500 response")
	}
	if err.Kind != fetcherr.KindFetch {
		t.Fatalf("Kind = %v, want %v", err.Kind, fetcherr.KindFetch)
	}
}

func TestFetchResponseLimitExceeded(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("a", 2048)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BuffLimit = 1024
	cfg.TotalTimeout = 2 * time.Second
	f := New(cfg, nil)

	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatalf("expected ResponseLimitExceed error")
	}
	if err.Kind != fetcherr.KindResponseLimitExceed {
		t.Fatalf("Kind = %v, want %v", err.Kind, fetcherr.KindResponseLimitExceed)
	}
}

func TestFetchInvalidFeed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a feed at all"))
	}))
	defer srv.Close()

	f := testFetcher(t)
	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatalf("expected InvalidFeed error")
	}
	if err.Kind != fetcherr.KindInvalidFeed {
		t.Fatalf("Kind = %v, want %v", err.Kind, fetcherr.KindInvalidFeed)
	}
}

func TestValidateURLBlocksPrivateHosts(t *testing.T) {
	t.Parallel()

	cases := []string{
		"http://localhost/feed.xml",
		"http://127.0.0.1/feed.xml",
		"http://169.254.1.1/feed.xml",
		"http://10.0.0.1/feed.xml",
		"ftp://example.com/feed.xml",
	}
	for _, c := range cases {
		if err := ValidateURL(c); err == nil {
			t.Errorf("ValidateURL(%q) = nil, want error", c)
		}
	}
	if err := ValidateURL("https://example.com/feed.xml"); err != nil {
		t.Errorf("ValidateURL(public url) = %v, want nil", err)
	}
}
