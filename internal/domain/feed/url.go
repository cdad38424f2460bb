// Package feed holds the value types shared between the fetcher, cache and
// usecases: parsed feed URLs, feed metadata, and entries.
package feed

import (
	"fmt"
	"net/url"
	"strings"
)

// Url is a parsed, validated absolute http/https URL. Equality is byte-equal
// serialization of the normalized form, which makes it safe to use as a map
// key (cache key, subscription-row key).
type Url struct {
	raw string
}

// ParseUrl validates rawURL as an absolute http/https URL and returns its
// normalized form.
func ParseUrl(rawURL string) (Url, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return Url{}, fmt.Errorf("feed url: empty")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return Url{}, fmt.Errorf("feed url: %w", err)
	}
	if !u.IsAbs() {
		return Url{}, fmt.Errorf("feed url: must be absolute: %q", rawURL)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return Url{}, fmt.Errorf("feed url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return Url{}, fmt.Errorf("feed url: missing host")
	}

	return Url{raw: u.String()}, nil
}

// MustParseUrl panics if rawURL does not parse. Intended for literals in
// tests and fixed configuration, never for request-supplied input.
func MustParseUrl(rawURL string) Url {
	u, err := ParseUrl(rawURL)
	if err != nil {
		panic(err)
	}
	return u
}

// String returns the normalized serialization, used as the cache key and the
// subscription-row key.
func (u Url) String() string {
	return u.raw
}

// IsZero reports whether u is the zero value.
func (u Url) IsZero() bool {
	return u.raw == ""
}
