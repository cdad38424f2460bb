package store

import (
	"container/list"
	"context"
	"sync"

	"feedhub/internal/domain/feed"
	"feedhub/internal/domain/subscription"
)

type row struct {
	url        feed.Url
	annotation Annotation
}

// MemoryStore is an in-memory Store, used by tests and as a reference
// implementation of the interface contract. Per user it keeps an
// insertion-ordered list (front = newest) so FetchSubscribed can return
// rows newest-first without a separate sort step.
type MemoryStore struct {
	mu    sync.Mutex
	rows  map[string]*list.List               // userID -> list of *row, front = newest
	byURL map[string]map[string]*list.Element  // userID -> url string -> element
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:  make(map[string]*list.List),
		byURL: make(map[string]map[string]*list.Element),
	}
}

// Put upserts sub on (user_id, url). An existing row is updated in place
// and moved to the front, reflecting that it is now the most recently
// touched subscription; a brand new row is inserted at the front.
func (s *MemoryStore) Put(ctx context.Context, sub subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userRows, ok := s.rows[sub.UserID]
	if !ok {
		userRows = list.New()
		s.rows[sub.UserID] = userRows
		s.byURL[sub.UserID] = make(map[string]*list.Element)
	}
	key := sub.URL.String()
	annotation := Annotation{Requirement: sub.Requirement, Category: sub.Category}

	if el, exists := s.byURL[sub.UserID][key]; exists {
		el.Value.(*row).annotation = annotation
		userRows.MoveToFront(el)
		return nil
	}

	el := userRows.PushFront(&row{url: sub.URL, annotation: annotation})
	s.byURL[sub.UserID][key] = el
	return nil
}

// Delete removes (user_id, url) if present; deleting an absent pair is a
// no-op, making the operation idempotent.
func (s *MemoryStore) Delete(ctx context.Context, userID string, url feed.Url) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userRows, ok := s.rows[userID]
	if !ok {
		return nil
	}
	key := url.String()
	el, exists := s.byURL[userID][key]
	if !exists {
		return nil
	}
	userRows.Remove(el)
	delete(s.byURL[userID], key)
	return nil
}

// FetchSubscribed returns the user's rows newest-first.
func (s *MemoryStore) FetchSubscribed(ctx context.Context, userID string) (SubscribedFeeds, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := SubscribedFeeds{Annotations: make(map[string]Annotation)}
	userRows, ok := s.rows[userID]
	if !ok {
		return result, nil
	}
	for el := userRows.Front(); el != nil; el = el.Next() {
		r := el.Value.(*row)
		result.URLs = append(result.URLs, r.url)
		result.Annotations[r.url.String()] = r.annotation
	}
	return result, nil
}
