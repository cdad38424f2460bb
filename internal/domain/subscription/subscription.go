// Package subscription holds the external-collaborator value types the core
// consumes but never mutates: subscription rows and the authenticated
// principal.
package subscription

import (
	"fmt"
	"strings"

	"feedhub/internal/domain/feed"
)

// Requirement is a per-subscription annotation used by clients for
// filtering, totally ordered Must > Should > May.
type Requirement int

const (
	May Requirement = iota
	Should
	Must
)

// DefaultRequirement is the zero-value requirement, per the data model.
const DefaultRequirement = May

func (r Requirement) String() string {
	switch r {
	case Must:
		return "Must"
	case Should:
		return "Should"
	case May:
		return "May"
	default:
		return fmt.Sprintf("Requirement(%d)", int(r))
	}
}

const maxCategoryLen = 30

// Category is a non-empty lowercase string of at most 30 code units,
// trimmed on construction.
type Category struct {
	value string
}

// NewCategory trims and lowercases raw, then validates it.
func NewCategory(raw string) (Category, error) {
	trimmed := strings.TrimSpace(strings.ToLower(raw))
	if trimmed == "" {
		return Category{}, fmt.Errorf("category: empty")
	}
	if n := len([]rune(trimmed)); n > maxCategoryLen {
		return Category{}, fmt.Errorf("category: %d code units exceeds max %d", n, maxCategoryLen)
	}
	return Category{value: trimmed}, nil
}

func (c Category) String() string { return c.value }

// IsZero reports whether c is the zero value (no category annotated).
func (c Category) IsZero() bool { return c.value == "" }

// Subscription is a (user, feed URL, annotations) tuple persisted by the
// external subscription store. The core never mutates it; it is produced by
// the subscribe mutation and consumed read-only by the fan-out usecases.
type Subscription struct {
	UserID      string
	URL         feed.Url
	Requirement Requirement
	Category    Category
}

// Principal is an opaque authenticated identity attached to a request.
type Principal struct {
	userID string
}

// NewPrincipal constructs a Principal for userID. An empty userID produces a
// zero Principal, which UserID reports via ok=false so that authorization
// steps can reject it uniformly.
func NewPrincipal(userID string) Principal {
	return Principal{userID: userID}
}

// UserID returns the principal's user id and whether one is present.
func (p Principal) UserID() (string, bool) {
	if p.userID == "" {
		return "", false
	}
	return p.userID, true
}
