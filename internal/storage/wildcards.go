package storage

// UpsertWildcard inserts or updates one row of the wildcards table. The
// table is not the trie's source of truth — the external APIs are — and
// the wildcard refresher does not write to it.
func (db *DB) UpsertWildcard(pattern, program string) error {
	_, err := db.conn.Exec(
		`INSERT INTO wildcards (pattern, program) VALUES (?, ?)
		 ON CONFLICT(pattern) DO UPDATE SET program = excluded.program`,
		pattern, program,
	)
	return err
}

// ReplaceWildcards syncs the audit table to the given pattern set inside
// a single transaction: upsert everything present, leave stale rows in
// place (nothing deletes them; nothing reads this table for matching).
func (db *DB) ReplaceWildcards(patterns map[string]string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(
		`INSERT INTO wildcards (pattern, program) VALUES (?, ?)
		 ON CONFLICT(pattern) DO UPDATE SET program = excluded.program`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for pattern, program := range patterns {
		if _, err := stmt.Exec(pattern, program); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
