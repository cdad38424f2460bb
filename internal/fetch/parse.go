package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mmcdole/gofeed"

	"feedhub/internal/domain/feed"
	"feedhub/internal/domain/fetcherr"
)

// parse converts a raw feed body into a normalized feed.Feed, sanitizing
// HTML content/summary so a cached Feed never carries script-bearing markup.
func (f *Fetcher) parse(body []byte, baseURL string) (feed.Feed, *fetcherr.Error) {
	parsed, err := f.parser.ParseString(string(body))
	if err != nil {
		return feed.Feed{}, fetcherr.Wrap(fetcherr.KindInvalidFeed, err)
	}

	typ := classify(parsed)
	links := candidateLinks(parsed, typ)

	meta := feed.Meta{
		Type:        typ,
		Title:       strings.TrimSpace(parsed.Title),
		Description: parsed.Description,
		Generator:   parsed.Generator,
		Links:       links,
		WebsiteURL:  feed.FindWebsiteURL(typ, links),
	}
	if parsed.Author != nil && parsed.Author.Name != "" {
		meta.Authors = append(meta.Authors, parsed.Author.Name)
	}
	for _, a := range parsed.Authors {
		if a != nil && a.Name != "" {
			meta.Authors = append(meta.Authors, a.Name)
		}
	}
	if parsed.UpdatedParsed != nil {
		meta.Updated = parsed.UpdatedParsed
	}

	entries := make([]feed.Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entries = append(entries, f.normalizeEntry(item, parsed, baseURL))
	}

	return feed.Feed{Meta: meta, Entries: entries}, nil
}

// classify maps gofeed's FeedType/FeedVersion onto the closed feed.Type set
// the data model names.
func classify(parsed *gofeed.Feed) feed.Type {
	switch strings.ToLower(parsed.FeedType) {
	case "atom":
		return feed.TypeAtom
	case "json":
		return feed.TypeJSON
	case "rss":
		switch parsed.FeedVersion {
		case "1.0":
			return feed.TypeRSS1
		case "0.90", "0.91", "0.91U", "0.91N", "0.92", "0.93", "0.94":
			return feed.TypeRSS0
		default:
			return feed.TypeRSS2
		}
	default:
		return feed.TypeRSS2
	}
}

// candidateLinks builds the best-effort rel-tagged link set gofeed's
// universal model can support: the canonical Link is tagged "alternate",
// the feed's own FeedLink (if distinct) is tagged "self", and any remaining
// gofeed.Links entries are tagged "" (unknown rel).
func candidateLinks(parsed *gofeed.Feed, typ feed.Type) []feed.Link {
	var links []feed.Link
	seen := make(map[string]bool)

	add := func(href, rel string) {
		if href == "" || seen[href] {
			return
		}
		seen[href] = true
		links = append(links, feed.Link{Href: href, Rel: rel})
	}

	switch typ {
	case feed.TypeAtom:
		// Atom's self-link is the feed's own URL; its human-facing page is
		// the canonical Link.
		add(parsed.FeedLink, "self")
		add(parsed.Link, "alternate")
	case feed.TypeJSON:
		add(parsed.FeedLink, "self") // has a .json-like path in practice
		add(parsed.Link, "alternate")
	default: // RSS1/RSS2/RSS0
		add(parsed.FeedLink, "self")
		add(parsed.Link, "")
	}
	for _, href := range parsed.Links {
		add(href, "")
	}
	return links
}

const generatedIDLength = 16

func (f *Fetcher) normalizeEntry(item *gofeed.Item, parsed *gofeed.Feed, baseURL string) feed.Entry {
	entry := feed.Entry{
		ID:    extractID(item, baseURL),
		Title: strings.TrimSpace(item.Title),
	}

	if item.PublishedParsed != nil && !item.PublishedParsed.IsZero() {
		t := *item.PublishedParsed
		entry.Published = &t
	} else if item.UpdatedParsed != nil && !item.UpdatedParsed.IsZero() {
		t := *item.UpdatedParsed
		entry.Published = &t
	}
	if item.UpdatedParsed != nil && !item.UpdatedParsed.IsZero() {
		t := *item.UpdatedParsed
		entry.Updated = &t
	}

	if item.Content != "" {
		entry.Content = f.cleaner.Sanitize(item.Content)
	} else if item.Description != "" {
		entry.Content = f.cleaner.Sanitize(item.Description)
	}
	if item.Description != "" && item.Content != "" {
		entry.Summary = f.cleaner.Sanitize(item.Description)
	}

	if item.Link != "" {
		entry.Links = append(entry.Links, feed.Link{Href: item.Link, Rel: "alternate"})
	}

	return entry
}

func extractID(item *gofeed.Item, baseURL string) string {
	if item.GUID != "" {
		return item.GUID
	}
	if item.Link != "" {
		return item.Link
	}
	if item.Title != "" {
		return hashID(baseURL, item.Title, publishedKey(item))
	}
	return hashID(baseURL, item.Description, item.Content)
}

func publishedKey(item *gofeed.Item) string {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.String()
	}
	return ""
}

func hashID(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))[:generatedIDLength]
}
