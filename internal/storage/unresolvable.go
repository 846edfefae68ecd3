package storage

import (
	"strconv"
	"time"
)

// UnresolvableDomain is one persisted row of unresolvable_domains.
type UnresolvableDomain struct {
	Domain      string
	WildcardRef string
	RetryCount  int
	FirstSeenAt time.Time
	LastRetryAt time.Time
}

// BatchInsertUnresolvable flushes the RetryQueue's in-memory buffer in a
// single transaction, grounded on the teacher's transaction-scoped batch
// write idiom (database.MigrateFromConfig).
func (db *DB) BatchInsertUnresolvable(rows []UnresolvableDomain) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(
		`INSERT INTO unresolvable_domains (domain, wildcard_ref, retry_count, last_retry_at)
		 VALUES (?, ?, 0, CURRENT_TIMESTAMP)
		 ON CONFLICT(domain) DO NOTHING`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.Domain, r.WildcardRef); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SelectForRetry returns up to limit rows ordered by retry_count
// ascending, the sweep's candidate set.
func (db *DB) SelectForRetry(limit int) ([]UnresolvableDomain, error) {
	rows, err := db.conn.Query(
		`SELECT domain, wildcard_ref, retry_count, created_at, last_retry_at
		 FROM unresolvable_domains ORDER BY retry_count ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UnresolvableDomain
	for rows.Next() {
		var u UnresolvableDomain
		if err := rows.Scan(&u.Domain, &u.WildcardRef, &u.RetryCount, &u.FirstSeenAt, &u.LastRetryAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// IncrementRetry bumps retry_count and stamps last_retry_at on failure.
func (db *DB) IncrementRetry(domain string) error {
	_, err := db.conn.Exec(
		`UPDATE unresolvable_domains SET retry_count = retry_count + 1, last_retry_at = CURRENT_TIMESTAMP
		 WHERE domain = ?`, domain)
	return err
}

// DeleteUnresolvable removes a row — on successful resolution, on a
// private-only resolution, or once MAX_RETRIES is exceeded.
func (db *DB) DeleteUnresolvable(domain string) error {
	_, err := db.conn.Exec(`DELETE FROM unresolvable_domains WHERE domain = ?`, domain)
	return err
}

// PurgeOlderThan deletes every row whose created_at predates the given
// age (BATCH_PURGE_AGE), regardless of retry outcome, and returns the
// count removed. The age is truncated to whole hours, with a minimum of
// one hour.
func (db *DB) PurgeOlderThan(age time.Duration) (int64, error) {
	res, err := db.conn.Exec(
		`DELETE FROM unresolvable_domains WHERE created_at < datetime('now', ?)`,
		sqliteRelativeOffset(age),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// sqliteRelativeOffset renders a Go duration as a SQLite datetime()
// modifier, e.g. "-72 hours".
func sqliteRelativeOffset(d time.Duration) string {
	hours := int(d.Hours())
	if hours <= 0 {
		hours = 1
	}
	return "-" + strconv.Itoa(hours) + " hours"
}
