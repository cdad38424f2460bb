package subscribedfeeds_test

import (
	"context"
	"sync"
	"testing"

	"feedhub/internal/domain/fetcherr"
	"feedhub/internal/domain/feed"
	"feedhub/internal/domain/subscription"
	"feedhub/internal/store"
	"feedhub/internal/usecase/subscribedfeeds"
)

type stubStore struct {
	out store.SubscribedFeeds
	err error
}

func (s stubStore) Put(ctx context.Context, sub subscription.Subscription) error { return nil }
func (s stubStore) Delete(ctx context.Context, userID string, url feed.Url) error { return nil }
func (s stubStore) FetchSubscribed(ctx context.Context, userID string) (store.SubscribedFeeds, error) {
	return s.out, s.err
}

type stubCache struct {
	mu   sync.Mutex
	fail map[string]*fetcherr.Error
}

func (c *stubCache) Fetch(ctx context.Context, url string) (feed.Feed, *fetcherr.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ferr, ok := c.fail[url]; ok {
		return feed.Feed{}, ferr
	}
	return feed.Feed{Meta: feed.Meta{Title: "ok:" + url}}, nil
}

func mustURL(t *testing.T, raw string) feed.Url {
	t.Helper()
	u, err := feed.ParseUrl(raw)
	if err != nil {
		t.Fatalf("ParseUrl(%q) error = %v", raw, err)
	}
	return u
}

func TestFetchSubscribedFeedsOrderPreservation(t *testing.T) {
	t.Parallel()

	urls := []feed.Url{
		mustURL(t, "https://a.example/feed.xml"),
		mustURL(t, "https://b.example/feed.xml"),
		mustURL(t, "https://c.example/feed.xml"),
	}
	uc := &subscribedfeeds.Usecase{
		Store: stubStore{out: store.SubscribedFeeds{URLs: urls, Annotations: map[string]store.Annotation{}}},
		Cache: &stubCache{},
	}

	out, err := uc.Run(context.Background(), subscription.NewPrincipal("U1"), subscribedfeeds.Input{First: 10})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out.Feeds) != 3 {
		t.Fatalf("len(Feeds) = %d, want 3", len(out.Feeds))
	}
	for i, slot := range out.Feeds {
		if slot.Feed == nil {
			t.Fatalf("slot %d: want success", i)
		}
		if slot.Feed.URL.String() != urls[i].String() {
			t.Fatalf("slot %d URL = %q, want %q (order must equal subscription order)", i, slot.Feed.URL.String(), urls[i].String())
		}
	}
}

func TestFetchSubscribedFeedsPartialFailure(t *testing.T) {
	t.Parallel()

	urls := []feed.Url{
		mustURL(t, "https://a.example/feed.xml"),
		mustURL(t, "https://b.example/feed.xml"),
		mustURL(t, "https://c.example/feed.xml"),
	}
	uc := &subscribedfeeds.Usecase{
		Store: stubStore{out: store.SubscribedFeeds{URLs: urls, Annotations: map[string]store.Annotation{}}},
		Cache: &stubCache{fail: map[string]*fetcherr.Error{
			"https://b.example/feed.xml": fetcherr.New(fetcherr.KindFetch, "dial refused"),
		}},
	}

	out, err := uc.Run(context.Background(), subscription.NewPrincipal("U1"), subscribedfeeds.Input{First: 10})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Feeds[0].Feed == nil || out.Feeds[2].Feed == nil {
		t.Fatalf("want positions 0 and 2 to be Ok")
	}
	if out.Feeds[1].Fail == nil {
		t.Fatalf("want position 1 to be Err")
	}
	if out.Feeds[1].Fail.URL.String() != urls[1].String() {
		t.Fatalf("Fail.URL = %q, want %q", out.Feeds[1].Fail.URL.String(), urls[1].String())
	}
}

func TestFetchSubscribedFeedsUnauthorized(t *testing.T) {
	t.Parallel()

	uc := &subscribedfeeds.Usecase{Store: stubStore{}, Cache: &stubCache{}}
	err := uc.Authorize(context.Background(), subscription.NewPrincipal(""), subscribedfeeds.Input{})
	if err == nil {
		t.Fatalf("Authorize() error = nil, want ErrUnauthorized for an empty principal")
	}
}

func TestFetchSubscribedFeedsPagination(t *testing.T) {
	t.Parallel()

	urls := []feed.Url{
		mustURL(t, "https://a.example/feed.xml"),
		mustURL(t, "https://b.example/feed.xml"),
		mustURL(t, "https://c.example/feed.xml"),
	}
	uc := &subscribedfeeds.Usecase{
		Store: stubStore{out: store.SubscribedFeeds{URLs: urls, Annotations: map[string]store.Annotation{}}},
		Cache: &stubCache{},
	}

	out, err := uc.Run(context.Background(), subscription.NewPrincipal("U1"), subscribedfeeds.Input{First: 2})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out.Feeds) != 2 || !out.HasNext {
		t.Fatalf("got %d feeds, HasNext=%v; want 2 feeds with a next page", len(out.Feeds), out.HasNext)
	}

	after := urls[1].String()
	out2, err := uc.Run(context.Background(), subscription.NewPrincipal("U1"), subscribedfeeds.Input{First: 2, After: &after})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out2.Feeds) != 1 || out2.HasNext {
		t.Fatalf("got %d feeds, HasNext=%v; want the last remaining feed with no next page", len(out2.Feeds), out2.HasNext)
	}
}
