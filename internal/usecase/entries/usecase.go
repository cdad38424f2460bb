// Package entries implements FetchEntries (spec §4.6): fan out across all
// subscribed feeds, flatten entries, sort by published time descending, and
// paginate by entry id.
package entries

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"feedhub/internal/domain/fetcherr"
	"feedhub/internal/domain/feed"
	"feedhub/internal/domain/subscription"
	"feedhub/internal/pagination"
	"feedhub/internal/store"
)

const fanoutCap = 10

const (
	defaultFirst = 20
	maxFirst     = 100
)

// Cache is the capability entries needs from FeedCache.
type Cache interface {
	Fetch(ctx context.Context, url string) (feed.Feed, *fetcherr.Error)
}

// Input is the FetchEntries request.
type Input struct {
	After *string
	First int
}

// dated pairs an Entry with its feed URL for the flattened, sorted view.
type Dated struct {
	Entry feed.Entry
	URL   feed.Url
}

// Output is the merged, paginated entry list plus the feed metadata
// referenced by it.
type Output struct {
	Entries []Dated
	Feeds   map[string]feed.Meta // keyed by feed.Url.String()
	HasPrev bool
	HasNext bool
}

// ErrUnauthorized is returned by Authorize when the principal has no
// user_id.
var ErrUnauthorized = errors.New("entries: principal has no user_id")

// Usecase implements runtime.Usecase[Input, Output].
type Usecase struct {
	Store  store.Store
	Cache  Cache
	Logger *slog.Logger
}

func (u *Usecase) Name() string { return "FetchEntries" }

// Authorize rejects principals with no user_id.
func (u *Usecase) Authorize(ctx context.Context, principal subscription.Principal, input Input) error {
	if _, ok := principal.UserID(); !ok {
		return ErrUnauthorized
	}
	return nil
}

// Run implements the §4.6 algorithm.
func (u *Usecase) Run(ctx context.Context, principal subscription.Principal, input Input) (Output, error) {
	userID, _ := principal.UserID()
	logger := u.Logger
	if logger == nil {
		logger = slog.Default()
	}

	subscribed, err := u.Store.FetchSubscribed(ctx, userID)
	if err != nil {
		return Output{}, store.ErrInternal
	}

	var (
		mu    sync.Mutex
		dated []Dated
		feeds = make(map[string]feed.Meta, len(subscribed.URLs))
	)

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, fanoutCap)

	for _, url := range subscribed.URLs {
		url := url
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			f, ferr := u.Cache.Fetch(gctx, url.String())
			if ferr != nil {
				logger.Warn("entries: feed fetch failed, skipping",
					slog.String("url", url.String()), slog.String("kind", string(ferr.Kind)))
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			feeds[url.String()] = f.Meta
			for _, e := range f.Entries {
				dated = append(dated, Dated{Entry: e, URL: url})
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(dated, func(i, j int) bool {
		return entryLess(dated[i].Entry, dated[j].Entry)
	})

	first := pagination.Clamp(input.First, defaultFirst, maxFirst)
	page := pagination.Paginate(dated, input.After, first, func(d Dated) string { return d.Entry.ID })

	return Output{Entries: page.Nodes, Feeds: feeds, HasPrev: page.HasPrev, HasNext: page.HasNext}, nil
}

// entryLess reports whether a sorts strictly before b under the §4.6
// ordering: published descending, with a missing published time sorting
// after every entry that has one.
func entryLess(a, b feed.Entry) bool {
	switch {
	case a.Published == nil && b.Published == nil:
		return false
	case a.Published == nil:
		return false
	case b.Published == nil:
		return true
	default:
		return a.Published.After(*b.Published)
	}
}
