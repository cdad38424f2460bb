// Package postgres implements store.Store against PostgreSQL via the pgx
// stdlib driver, following the teacher's repository-adapter shape: a thin
// struct around *sql.DB with one exported constructor and hand-written SQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	httpambient "feedhub/internal/handler/http"

	"feedhub/internal/domain/feed"
	"feedhub/internal/domain/subscription"
	"feedhub/internal/resilience/retry"
	"feedhub/internal/store"
)

// SubscriptionStore persists (user_id, feed_url, requirement, category)
// rows in a `subscriptions` table. Insertion order is tracked with a
// monotonically increasing `seq` column so FetchSubscribed can return rows
// newest-first with a single ORDER BY.
type SubscriptionStore struct {
	db       *sql.DB
	retryCfg retry.Config
}

// New wraps db as a store.Store.
func New(db *sql.DB) store.Store {
	return &SubscriptionStore{db: db, retryCfg: retry.DBConfig()}
}

// Put upserts sub on (user_id, feed_url); note the database-level
// `ON CONFLICT` supplies the same semantics as the in-memory store's
// map-and-list upsert, and bumping `seq` on conflict keeps a re-subscribed
// row newest-first.
func (s *SubscriptionStore) Put(ctx context.Context, sub subscription.Subscription) error {
	const query = `
INSERT INTO subscriptions (user_id, feed_url, requirement, category, seq)
VALUES ($1, $2, $3, $4, nextval('subscriptions_seq'))
ON CONFLICT (user_id, feed_url) DO UPDATE SET
    requirement = EXCLUDED.requirement,
    category    = EXCLUDED.category,
    seq         = EXCLUDED.seq`

	defer recordQuery("put", time.Now())
	err := retry.WithBackoff(ctx, s.retryCfg, func() error {
		_, err := s.db.ExecContext(ctx, query,
			sub.UserID, sub.URL.String(), int(sub.Requirement), sub.Category.String())
		if err != nil {
			return fmt.Errorf("%w: put: %v", store.ErrInternal, err)
		}
		return nil
	})
	if err == nil {
		s.refreshSubscribedFeedsTotal(ctx)
	}
	return err
}

// Delete is idempotent: a DELETE that matches no row is not an error.
func (s *SubscriptionStore) Delete(ctx context.Context, userID string, url feed.Url) error {
	const query = `DELETE FROM subscriptions WHERE user_id = $1 AND feed_url = $2`

	defer recordQuery("delete", time.Now())
	err := retry.WithBackoff(ctx, s.retryCfg, func() error {
		if _, err := s.db.ExecContext(ctx, query, userID, url.String()); err != nil {
			return fmt.Errorf("%w: delete: %v", store.ErrInternal, err)
		}
		return nil
	})
	if err == nil {
		s.refreshSubscribedFeedsTotal(ctx)
	}
	return err
}

// FetchSubscribed returns the user's subscribed URLs and annotations,
// ordered newest-first by seq.
func (s *SubscriptionStore) FetchSubscribed(ctx context.Context, userID string) (store.SubscribedFeeds, error) {
	const query = `
SELECT feed_url, requirement, category
FROM subscriptions
WHERE user_id = $1
ORDER BY seq DESC`

	result := store.SubscribedFeeds{Annotations: make(map[string]store.Annotation)}

	defer recordQuery("fetch_subscribed", time.Now())
	err := retry.WithBackoff(ctx, s.retryCfg, func() error {
		rows, err := s.db.QueryContext(ctx, query, userID)
		if err != nil {
			return fmt.Errorf("%w: fetch_subscribed: %v", store.ErrInternal, err)
		}
		defer func() { _ = rows.Close() }()

		result.URLs = nil
		for rows.Next() {
			var rawURL string
			var requirement int
			var category string
			if err := rows.Scan(&rawURL, &requirement, &category); err != nil {
				return fmt.Errorf("%w: fetch_subscribed: scan: %v", store.ErrInternal, err)
			}
			u, err := feed.ParseUrl(rawURL)
			if err != nil {
				return fmt.Errorf("%w: fetch_subscribed: stored url %q is invalid: %v", store.ErrInternal, rawURL, err)
			}
			cat, _ := subscription.NewCategory(category)
			result.URLs = append(result.URLs, u)
			result.Annotations[u.String()] = store.Annotation{
				Requirement: subscription.Requirement(requirement),
				Category:    cat,
			}
		}
		return rows.Err()
	})
	if err != nil {
		return store.SubscribedFeeds{}, err
	}
	return result, nil
}

// recordQuery reports a query's duration to the http package's
// db_query_duration_seconds histogram under the given operation label.
func recordQuery(operation string, start time.Time) {
	httpambient.RecordDBQuery(operation, time.Since(start))
}

// refreshSubscribedFeedsTotal recounts all subscription rows and updates the
// feedhub_subscribed_feeds_total gauge. Best-effort: a failure here doesn't
// fail the write that triggered it, since the gauge is informational.
func (s *SubscriptionStore) refreshSubscribedFeedsTotal(ctx context.Context) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM subscriptions`).Scan(&count); err != nil {
		return
	}
	httpambient.UpdateSubscribedFeedsTotal(count)
}
