package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctwarden.db")
	db, err := Open(path, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInsertDiscoveredIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	inserted, err := db.InsertDiscovered("api.example.com", "93.184.216.34", "ct")
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = db.InsertDiscovered("api.example.com", "93.184.216.34", "ct")
	require.NoError(t, err)
	require.False(t, inserted, "re-inserting the same domain must not add a second row")

	exists, err := db.DomainExists("api.example.com")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestUnresolvableRetrySweep(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.BatchInsertUnresolvable([]UnresolvableDomain{
		{Domain: "flaky.example.com", WildcardRef: "example.com"},
	}))

	rows, err := db.SelectForRetry(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 0, rows[0].RetryCount)

	require.NoError(t, db.IncrementRetry("flaky.example.com"))
	rows, err = db.SelectForRetry(10)
	require.NoError(t, err)
	require.Equal(t, 1, rows[0].RetryCount)

	require.NoError(t, db.DeleteUnresolvable("flaky.example.com"))
	rows, err = db.SelectForRetry(10)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestPurgeOlderThanRemovesStaleRows(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.BatchInsertUnresolvable([]UnresolvableDomain{
		{Domain: "old.example.com", WildcardRef: "example.com"},
	}))
	_, err := db.conn.Exec(`UPDATE unresolvable_domains SET created_at = datetime('now', '-5 hours')`)
	require.NoError(t, err)

	purged, err := db.PurgeOlderThan(1 * time.Nanosecond)
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)
}

func TestHealthAndMigrationsRanOnOpen(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Health())
}
