package store

import (
	"context"
	"testing"

	"feedhub/internal/domain/feed"
	"feedhub/internal/domain/subscription"
)

func TestMemoryStoreSubscribeThenList(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	cat, err := subscription.NewCategory("rust")
	if err != nil {
		t.Fatal(err)
	}
	url := feed.MustParseUrl("https://a.example/feed.xml")

	if err := s.Put(ctx, subscription.Subscription{
		UserID: "U1", URL: url, Requirement: subscription.Must, Category: cat,
	}); err != nil {
		t.Fatal(err)
	}

	result, err := s.FetchSubscribed(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.URLs) != 1 {
		t.Fatalf("len(URLs) = %d, want 1", len(result.URLs))
	}
	ann := result.Annotations[url.String()]
	if ann.Requirement != subscription.Must || ann.Category.String() != "rust" {
		t.Fatalf("annotations = %+v, want Must/rust", ann)
	}
}

func TestMemoryStoreUpsertReplacesAnnotations(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	url := feed.MustParseUrl("https://a.example/feed.xml")
	rust, _ := subscription.NewCategory("rust")
	linux, _ := subscription.NewCategory("linux")

	_ = s.Put(ctx, subscription.Subscription{UserID: "U1", URL: url, Requirement: subscription.Must, Category: rust})
	_ = s.Put(ctx, subscription.Subscription{UserID: "U1", URL: url, Requirement: subscription.Should, Category: linux})

	result, err := s.FetchSubscribed(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.URLs) != 1 {
		t.Fatalf("len(URLs) = %d, want 1 (upsert, not append)", len(result.URLs))
	}
	ann := result.Annotations[url.String()]
	if ann.Requirement != subscription.Should || ann.Category.String() != "linux" {
		t.Fatalf("annotations = %+v, want Should/linux", ann)
	}
}

func TestMemoryStoreNewestFirstOrdering(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	u1 := feed.MustParseUrl("https://a.example/1.xml")
	u2 := feed.MustParseUrl("https://a.example/2.xml")

	_ = s.Put(ctx, subscription.Subscription{UserID: "U1", URL: u1})
	_ = s.Put(ctx, subscription.Subscription{UserID: "U1", URL: u2})

	result, _ := s.FetchSubscribed(ctx, "U1")
	if len(result.URLs) != 2 || result.URLs[0].String() != u2.String() {
		t.Fatalf("URLs = %v, want newest (u2) first", result.URLs)
	}
}

func TestMemoryStoreIdempotentUnsubscribe(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	url := feed.MustParseUrl("https://a.example/feed.xml")
	_ = s.Put(ctx, subscription.Subscription{UserID: "U1", URL: url})

	if err := s.Delete(ctx, "U1", url); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "U1", url); err != nil {
		t.Fatal(err)
	}

	result, _ := s.FetchSubscribed(ctx, "U1")
	if len(result.URLs) != 0 {
		t.Fatalf("expected no rows after unsubscribe, got %v", result.URLs)
	}
}
