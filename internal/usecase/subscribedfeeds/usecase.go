// Package subscribedfeeds implements FetchSubscribedFeeds (spec §4.5):
// per-feed parallel fetch with bounded concurrency, error partitioning,
// and cursor pagination over a user's subscription rows.
package subscribedfeeds

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"feedhub/internal/domain/fetcherr"
	"feedhub/internal/domain/feed"
	"feedhub/internal/domain/subscription"
	"feedhub/internal/pagination"
	"feedhub/internal/store"
)

// fanoutCap is the in-flight cap of §5's bounded-concurrency rationale.
const fanoutCap = 10

const (
	defaultFirst = 20
	maxFirst     = 100
)

// Cache is the capability subscribedfeeds needs from FeedCache.
type Cache interface {
	Fetch(ctx context.Context, url string) (feed.Feed, *fetcherr.Error)
}

// AnnotatedFeed pairs a fetched feed with its subscription annotations.
type AnnotatedFeed struct {
	URL         feed.Url
	Feed        feed.Feed
	Requirement subscription.Requirement
	Category    subscription.Category
}

// FailedFeed is the per-feed diagnostic reported alongside successes (spec
// §6: per-feed `{ url, error_message }`).
type FailedFeed struct {
	URL feed.Url
	Err *fetcherr.Error
}

// Slot is one output position: either a success or a failure, never both.
type Slot struct {
	Feed *AnnotatedFeed
	Fail *FailedFeed
}

// Input is the FetchSubscribedFeeds request.
type Input struct {
	After *string
	First int
}

// Output preserves subscription order restricted to the paginated window.
type Output struct {
	Feeds   []Slot
	HasPrev bool
	HasNext bool
}

// ErrUnauthorized is returned by Authorize when the principal has no
// user_id.
var ErrUnauthorized = errors.New("subscribedfeeds: principal has no user_id")

// Usecase implements runtime.Usecase[Input, Output].
type Usecase struct {
	Store store.Store
	Cache Cache
}

func (u *Usecase) Name() string { return "FetchSubscribedFeeds" }

// Authorize rejects principals with no user_id (spec §4.5 step 1).
func (u *Usecase) Authorize(ctx context.Context, principal subscription.Principal, input Input) error {
	if _, ok := principal.UserID(); !ok {
		return ErrUnauthorized
	}
	return nil
}

// Run implements the §4.5 algorithm.
func (u *Usecase) Run(ctx context.Context, principal subscription.Principal, input Input) (Output, error) {
	userID, _ := principal.UserID()

	subscribed, err := u.Store.FetchSubscribed(ctx, userID)
	if err != nil {
		return Output{}, store.ErrInternal
	}

	first := pagination.Clamp(input.First, defaultFirst, maxFirst)
	page := pagination.Paginate(subscribed.URLs, input.After, first, feed.Url.String)

	slots := make([]Slot, len(page.Nodes))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, fanoutCap)

	for i, url := range page.Nodes {
		i, url := i, url
		ann := subscribed.Annotations[url.String()]

		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			f, ferr := u.Cache.Fetch(gctx, url.String())
			if ferr != nil {
				slots[i] = Slot{Fail: &FailedFeed{URL: url, Err: ferr}}
				return nil
			}
			slots[i] = Slot{Feed: &AnnotatedFeed{
				URL:         url,
				Feed:        f,
				Requirement: ann.Requirement,
				Category:    ann.Category,
			}}
			return nil
		})
	}

	// Fan-out failures are values (partial failure per-slot), not errors;
	// g.Wait only ever returns non-nil if a goroutine itself panics/returns
	// an error, which none do above.
	_ = g.Wait()

	return Output{Feeds: slots, HasPrev: page.HasPrev, HasNext: page.HasNext}, nil
}
