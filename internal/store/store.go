// Package store defines SubscriptionStore: the abstract CRUD interface the
// core consumes over (user_id, feed_url, requirement, category) rows. The
// core treats the store as opaque; only its interface contract matters
// (spec §1, §4.4).
package store

import (
	"context"
	"errors"

	"feedhub/internal/domain/feed"
	"feedhub/internal/domain/subscription"
)

// ErrInternal is returned for any underlying store failure; the core maps
// it uniformly to Repository(internal) / INTERNAL_ERROR.
var ErrInternal = errors.New("subscription store: internal error")

// Annotation is the (requirement, category) pair attached to a subscription
// row.
type Annotation struct {
	Requirement subscription.Requirement
	Category    subscription.Category
}

// SubscribedFeeds is the result of fetch_subscribed: the user's subscribed
// URLs in newest-first order, plus the annotations for each.
type SubscribedFeeds struct {
	URLs        []feed.Url
	Annotations map[string]Annotation // keyed by feed.Url.String()
}

// Store is the SubscriptionStore interface of spec §4.4.
type Store interface {
	// Put upserts sub on (user_id, url); newly inserted rows sort
	// newest-first.
	Put(ctx context.Context, sub subscription.Subscription) error

	// Delete is idempotent: deleting a (user_id, url) pair that does not
	// exist is not an error.
	Delete(ctx context.Context, userID string, url feed.Url) error

	// FetchSubscribed returns the user's subscribed URLs and their
	// annotations, ordered newest-first. Ordering is load-bearing for
	// pagination.
	FetchSubscribed(ctx context.Context, userID string) (SubscribedFeeds, error)
}
