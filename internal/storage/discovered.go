package storage

import (
	"database/sql"
	"time"
)

// DiscoveredDomain is one persisted row of discovered_domains.
type DiscoveredDomain struct {
	Domain       string
	IP           string
	Program      string
	DiscoveredAt time.Time
}

// DomainExists reports whether domain already has a discovered_domains
// row — the worker pool's stage 6 persistence check.
func (db *DB) DomainExists(domain string) (bool, error) {
	var one int
	err := db.conn.QueryRow(`SELECT 1 FROM discovered_domains WHERE domain = ?`, domain).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertDiscovered persists a new discovery. It returns inserted=false
// without error when the domain was already present — the unique
// constraint is the ground-truth idempotency guarantee (spec.md §3).
func (db *DB) InsertDiscovered(domain, ip, program string) (inserted bool, err error) {
	res, err := db.conn.Exec(
		`INSERT OR IGNORE INTO discovered_domains (domain, ip, program) VALUES (?, ?, ?)`,
		domain, ip, program,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecentDiscovered returns up to limit of the most recently discovered
// domains, used to pre-populate the Deduplicator on cold start.
func (db *DB) RecentDiscovered(limit int) ([]string, error) {
	rows, err := db.conn.Query(
		`SELECT domain FROM discovered_domains ORDER BY discovered_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}
