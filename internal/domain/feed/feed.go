package feed

import "time"

// Type identifies the wire format a Feed was parsed from.
type Type string

const (
	TypeAtom Type = "Atom"
	TypeRSS0 Type = "RSS0"
	TypeRSS1 Type = "RSS1"
	TypeRSS2 Type = "RSS2"
	TypeJSON Type = "JSON"
)

// Link is a single feed- or entry-level link, carrying its rel attribute so
// that website-URL resolution (see FindWebsiteURL) can apply the type-
// specific rule. gofeed's universal model loses rel fidelity for some feed
// types; the fetcher's best-effort bridge is documented in internal/fetch.
type Link struct {
	Href string
	Rel  string
}

// Meta is the parsed header of a feed.
type Meta struct {
	Type        Type
	Title       string
	Updated     *time.Time
	Authors     []string
	Description string
	Generator   string
	Links       []Link
	WebsiteURL  string
}

// Entry is a single item within a feed.
type Entry struct {
	ID        string
	Title     string
	Published *time.Time
	Updated   *time.Time
	Summary   string
	Content   string
	Links     []Link
}

// ApproximateSize is the byte cost used for cache weight accounting.
func (e Entry) ApproximateSize() int {
	return len(e.Content) + len(e.Summary)
}

// Feed is a parsed Atom/RSS/JSON document: metadata plus zero or more
// entries. Feed values are immutable once constructed and are shared by
// reference (via the cache's shared handle) rather than copied.
type Feed struct {
	Meta    Meta
	Entries []Entry
}

// ApproximateSize is the sum of every entry's ApproximateSize; used as the
// cache weight for this feed.
func (f Feed) ApproximateSize() int {
	total := 0
	for _, e := range f.Entries {
		total += e.ApproximateSize()
	}
	return total
}

// FindWebsiteURL applies the type-specific rule from the data model to pick
// the feed's human-facing website URL out of its links, or "" if none
// qualifies.
//
//   - Atom: first link with rel="alternate".
//   - RSS1/RSS2: first link with rel != "self".
//   - JSON: first link whose path does not end in ".json".
//   - RSS0: none.
func FindWebsiteURL(typ Type, links []Link) string {
	switch typ {
	case TypeAtom:
		for _, l := range links {
			if l.Rel == "alternate" {
				return l.Href
			}
		}
	case TypeRSS1, TypeRSS2:
		for _, l := range links {
			if l.Rel != "self" {
				return l.Href
			}
		}
	case TypeJSON:
		for _, l := range links {
			if !hasJSONExtension(l.Href) {
				return l.Href
			}
		}
	case TypeRSS0:
		// No rule defined; logged by the caller, never resolved here.
	}
	return ""
}

func hasJSONExtension(href string) bool {
	const suffix = ".json"
	if len(href) < len(suffix) {
		return false
	}
	return href[len(href)-len(suffix):] == suffix
}
