// Package fetch implements FeedFetcher: an HTTP client that GETs a feed URL,
// streams the body under a byte cap, parses it into a normalized feed.Feed,
// and sanitizes entry HTML before it ever reaches the cache.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"

	"feedhub/internal/domain/feed"
	"feedhub/internal/domain/fetcherr"
	"feedhub/internal/observability/metrics"
	"feedhub/internal/resilience/circuitbreaker"
)

// Config holds the fetcher's external interface tunables (spec §6).
type Config struct {
	UserAgent      string
	BuffLimit      int64
	ConnectTimeout time.Duration
	TotalTimeout   time.Duration
}

// DefaultConfig returns the fetcher defaults from spec §6.
func DefaultConfig() Config {
	return Config{
		UserAgent:      "feedhub/1.0",
		BuffLimit:      10 * 1024 * 1024,
		ConnectTimeout: 10 * time.Second,
		TotalTimeout:   10 * time.Second,
	}
}

// Fetcher is the FeedFetcher of spec §4.1: fetch(url) -> Feed | FetchError.
// Each call is an independent operation against no shared mutable state
// beyond the pooled http.Client and the circuit breaker guarding the
// upstream host population as a whole.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	parser  *gofeed.Parser
	cleaner *bluemonday.Policy
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// New builds a Fetcher with connection pooling tuned the way the pack's
// feed crawlers tune it, and a circuit breaker around the outbound GET
// using the preset the teacher ships for feed fetching.
func New(cfg Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ConnectTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	policy := bluemonday.UGCPolicy()
	policy.AllowURLSchemes("http", "https")
	policy.AllowAttrs("alt", "title").OnElements("img")
	policy.AllowAttrs("href", "title").OnElements("a")

	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.TotalTimeout,
		},
		parser:  gofeed.NewParser(),
		cleaner: policy,
		breaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		logger:  logger,
	}
}

// ValidateURL rejects URLs that are not safe to fetch: non-http(s) schemes,
// localhost, and private/link-local addresses (SSRF prevention).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty url")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme == "" {
		return fmt.Errorf("invalid url: missing scheme")
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", scheme)
	}

	host := parsed.Hostname()
	for _, blocked := range []string{"localhost", "127.0.0.1", "::1", "0.0.0.0"} {
		if strings.EqualFold(host, blocked) {
			return fmt.Errorf("host %q is blocked", host)
		}
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			return fmt.Errorf("host %q resolves to a private address", host)
		}
	}
	return nil
}

// Fetch implements the §4.1 algorithm.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (feed.Feed, *fetcherr.Error) {
	start := time.Now()
	parsed, err := f.fetch(ctx, rawURL)
	metrics.RecordFetch(time.Since(start), err == nil)
	return parsed, err
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (feed.Feed, *fetcherr.Error) {
	if err := ValidateURL(rawURL); err != nil {
		return feed.Feed{}, fetcherr.New(fetcherr.KindFetch, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.TotalTimeout)
	defer cancel()

	body, ferr := f.get(ctx, rawURL)
	if ferr != nil {
		return feed.Feed{}, ferr
	}

	return f.parse(body, rawURL)
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, *fetcherr.Error) {
	result, err := f.breaker.Execute(func() (interface{}, error) {
		return f.doGet(ctx, rawURL)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fetcherr.Wrap(fetcherr.KindFetch, err)
		}
		if fe, ok := err.(*fetcherr.Error); ok {
			return nil, fe
		}
		return nil, fetcherr.Wrap(fetcherr.KindFetch, err)
	}
	return result.([]byte), nil
}

func (f *Fetcher) doGet(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fetcherr.Wrap(fetcherr.KindFetch, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fetcherr.Wrap(fetcherr.KindFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fetcherr.New(fetcherr.KindFetch, fmt.Sprintf("unexpected status %d", resp.StatusCode)).WithStatus(resp.StatusCode)
	}

	limited := io.LimitedReader{R: resp.Body, N: f.cfg.BuffLimit + 1}
	body, err := io.ReadAll(&limited)
	if err != nil {
		return nil, fetcherr.Wrap(fetcherr.KindIO, err)
	}
	if int64(len(body)) > f.cfg.BuffLimit {
		return nil, fetcherr.New(fetcherr.KindResponseLimitExceed, fmt.Sprintf("body exceeded %d bytes", f.cfg.BuffLimit))
	}
	return body, nil
}
