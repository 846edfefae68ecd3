// Package storage is the SQLite persistence backend: wildcards,
// discovered_domains, unresolvable_domains, behind a pooled *sql.DB with
// embedded golang-migrate migrations.
package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a pooled SQLite connection sized to the worker count.
type DB struct {
	conn *sql.DB
}

// Open opens or creates the SQLite file at path, running migrations and
// sizing the connection pool to poolSize (the pipeline's worker count).
func Open(path string, poolSize int) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	if poolSize <= 0 {
		poolSize = 10
	}
	conn.SetMaxOpenConns(poolSize)
	conn.SetMaxIdleConns(poolSize / 2)
	conn.SetConnMaxLifetime(time.Hour)

	db := &DB{conn: conn}
	if err := db.runMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return db, nil
}

func (db *DB) runMigrations() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	dbDriver, err := sqlite.WithInstance(db.conn, &sqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Health pings the database.
func (db *DB) Health() error {
	return db.conn.Ping()
}

// BeginTx starts a transaction for batched multi-row writes. The batch
// writers in this package (BatchInsertUnresolvable, ReplaceWildcards)
// open their own transactions and do not call it.
func (db *DB) BeginTx() (*sql.Tx, error) {
	return db.conn.Begin()
}
