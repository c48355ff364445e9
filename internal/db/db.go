// Package db provides the SQLite database wrapper backing the ecowatch key-value store.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps *sql.DB and provides migration support.
type DB struct {
	*sql.DB
}

// New opens a SQLite connection with WAL mode enabled.
// Driver name is "sqlite" (modernc.org/sqlite, not mattn/go-sqlite3).
func New(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("db.New: open: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("db.New: ping: %w", err)
	}
	// Limit to 1 writer at a time to avoid SQLITE_BUSY in WAL mode.
	sqlDB.SetMaxOpenConns(1)
	return &DB{sqlDB}, nil
}

// Migrate runs all CREATE TABLE IF NOT EXISTS migrations exactly once per schema version.
func (d *DB) Migrate() error {
	if _, err := d.Exec(ddlMeta); err != nil {
		return fmt.Errorf("db.Migrate: meta table: %w", err)
	}

	var version int
	row := d.QueryRow(`SELECT value FROM meta WHERE key='schema_version' LIMIT 1`)
	_ = row.Scan(&version) // Row may not exist yet (version=0).

	if version >= schemaVersion {
		return nil
	}

	for _, ddl := range []string{ddlKV} {
		if _, err := d.Exec(ddl); err != nil {
			return fmt.Errorf("db.Migrate: %w", err)
		}
	}

	_, err := d.Exec(`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, schemaVersion)
	if err != nil {
		return fmt.Errorf("db.Migrate: schema_version upsert: %w", err)
	}
	return nil
}

const schemaVersion = 1

// ── DDL Statements ───────────────────────────────────────────────────────────

const ddlMeta = `CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);`

// kv holds one JSON document per storage key.
const ddlKV = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// ── Key-value access ─────────────────────────────────────────────────────────

// Get returns the stored values for keys. Absent keys are omitted from the result.
func (d *DB) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	rows, err := d.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE key IN (`+placeholders(len(keys))+`)`, toArgs(keys)...)
	if err != nil {
		return nil, fmt.Errorf("db.Get: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("db.Get: scan: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Put upserts items in one transaction and returns the values they replaced.
func (d *DB) Put(ctx context.Context, items map[string]string) (map[string]string, error) {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("db.Put: begin tx: %w", err)
	}
	defer tx.Rollback()

	old, err := previous(ctx, tx, mapKeys(items))
	if err != nil {
		return nil, fmt.Errorf("db.Put: %w", err)
	}
	for k, v := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
			k, v); err != nil {
			return nil, fmt.Errorf("db.Put: upsert %q: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("db.Put: commit: %w", err)
	}
	return old, nil
}

// Delete removes keys in one transaction and returns the values that were removed.
func (d *DB) Delete(ctx context.Context, keys ...string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("db.Delete: begin tx: %w", err)
	}
	defer tx.Rollback()

	old, err := previous(ctx, tx, keys)
	if err != nil {
		return nil, fmt.Errorf("db.Delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM kv WHERE key IN (`+placeholders(len(keys))+`)`, toArgs(keys)...); err != nil {
		return nil, fmt.Errorf("db.Delete: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("db.Delete: commit: %w", err)
	}
	return old, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func previous(ctx context.Context, tx *sql.Tx, keys []string) (map[string]string, error) {
	old := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return old, nil
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE key IN (`+placeholders(len(keys))+`)`, toArgs(keys)...)
	if err != nil {
		return nil, fmt.Errorf("read previous: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("read previous: scan: %w", err)
		}
		old[k] = v
	}
	return old, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(keys []string) []interface{} {
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	return args
}

func mapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
