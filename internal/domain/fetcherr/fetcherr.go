// Package fetcherr defines the closed error taxonomy FeedFetcher and
// FeedCache surface, so that every layer above them classifies failures the
// same way instead of pattern-matching on strings.
package fetcherr

import "fmt"

// Kind is the closed set of fetch-failure classifications.
type Kind string

const (
	// KindFetch is a transport-level HTTP failure (non-2xx status, dial
	// error, timeout).
	KindFetch Kind = "Fetch"
	// KindResponseLimitExceed means the body exceeded the configured
	// buff_limit; treated as a transport failure per the spec.
	KindResponseLimitExceed Kind = "ResponseLimitExceed"
	// KindInvalidFeed means the parser rejected the body.
	KindInvalidFeed Kind = "InvalidFeed"
	// KindIO is a streaming I/O failure distinct from the initial
	// transport failure (connection reset mid-body, etc).
	KindIO Kind = "Io"
	// KindJSONFormat is a malformed JSON Feed document.
	KindJSONFormat Kind = "JsonFormat"
	// KindJSONUnsupportedVersion is a JSON Feed document whose version
	// field this parser does not support.
	KindJSONUnsupportedVersion Kind = "JsonUnsupportedVersion"
	// KindXMLFormat is a malformed Atom/RSS document.
	KindXMLFormat Kind = "XmlFormat"
	// KindOther is any failure that does not fit the above.
	KindOther Kind = "Other"
)

// Error is the error value every FeedFetcher/FeedCache call fails with.
// Kind classifies it per the taxonomy in spec §4.1/§7; Status carries the
// HTTP status for KindFetch when known; Detail carries free-form context
// (parse-kind, JSON version, XML error message).
type Error struct {
	Kind   Kind
	Status int
	Detail string
	cause  error
}

// New constructs an Error of the given kind with a detail message.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap constructs an Error of the given kind that wraps cause.
func Wrap(kind Kind, cause error) *Error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &Error{Kind: kind, Detail: detail, cause: cause}
}

// WithStatus attaches an HTTP status code, returning e for chaining.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s(status=%d): %s", e.Kind, e.Status, e.Detail)
	}
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.cause }

// IsTransport reports whether kind is treated as a transport failure for
// client-facing error mapping (Fetch and ResponseLimitExceed both surface as
// FEED_UNAVAILABLE on subscribe per spec §7).
func (k Kind) IsTransport() bool {
	return k == KindFetch || k == KindResponseLimitExceed
}

// IsInvalidFeed reports whether kind is a parse failure (surfaced as
// INVALID_FEED_URL on subscribe per spec §7).
func (k Kind) IsInvalidFeed() bool {
	return k == KindInvalidFeed
}
