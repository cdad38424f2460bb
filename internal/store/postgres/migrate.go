package postgres

import "database/sql"

// MigrateUp creates the subscriptions table and its supporting sequence and
// indexes, adapted from the teacher's exec-based migration style. The
// monotonic `subscriptions_seq` sequence backs the newest-first ordering
// FetchSubscribed relies on.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`CREATE SEQUENCE IF NOT EXISTS subscriptions_seq`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS subscriptions (
    user_id     TEXT NOT NULL,
    feed_url    TEXT NOT NULL,
    requirement SMALLINT NOT NULL DEFAULT 0,
    category    TEXT NOT NULL DEFAULT '',
    seq         BIGINT NOT NULL,
    PRIMARY KEY (user_id, feed_url)
)`); err != nil {
		return err
	}

	indexes := []string{
		// FetchSubscribed orders by seq DESC per user.
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_user_seq ON subscriptions(user_id, seq DESC)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown drops the subscriptions table and its sequence. Use with
// caution: this deletes all subscription rows.
func MigrateDown(db *sql.DB) error {
	if _, err := db.Exec(`DROP TABLE IF EXISTS subscriptions`); err != nil {
		return err
	}
	_, err := db.Exec(`DROP SEQUENCE IF EXISTS subscriptions_seq`)
	return err
}
