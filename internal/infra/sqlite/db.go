// Package sqlite provides the durable record store for the economy engine.
// Persistence for players, ledgers, houses, bounties, the audit log,
// player-count snapshots, shared rate-limit counters, and the catalog.
//
// All balance arithmetic happens inside single SQL statements (atomic
// increment, conditional decrement) or explicit transactions; the engine
// never does read-modify-write on a balance in Go.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite connection and exposes typed operations.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
//
// Transactions start with BEGIN IMMEDIATE: a claimant racing for the same
// bounty queues on busy_timeout at BEGIN instead of failing its
// read-to-write upgrade with SQLITE_BUSY mid-transaction.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	db := &DB{db: sqlDB}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// New wraps an existing connection without running migrations.
// Used by tests that inject a mock or pre-migrated handle.
func New(sqlDB *sql.DB) *DB {
	return &DB{db: sqlDB}
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Registered players
		`CREATE TABLE IF NOT EXISTS players (
			roblox_user_id  TEXT PRIMARY KEY,
			roblox_username TEXT NOT NULL DEFAULT '',
			created_at      TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Drogons ledger, one row per player, created lazily on first credit
		`CREATE TABLE IF NOT EXISTS player_balances (
			roblox_user_id TEXT PRIMARY KEY,
			balance        INTEGER NOT NULL DEFAULT 0,
			updated_at     TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Houses: balance plus a last-write-wins activity counter
		`CREATE TABLE IF NOT EXISTS houses (
			name            TEXT PRIMARY KEY,
			balance         INTEGER NOT NULL DEFAULT 0,
			activity_points INTEGER NOT NULL DEFAULT 0,
			updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Bounties
		`CREATE TABLE IF NOT EXISTS bounties (
			id                    TEXT PRIMARY KEY,
			target_roblox_user_id TEXT NOT NULL,
			amount                INTEGER NOT NULL DEFAULT 0,
			status                TEXT NOT NULL DEFAULT 'ACTIVE',
			claimed_by_user_id    TEXT,
			claimed_by_username   TEXT,
			claimed_at            TEXT,
			created_at            TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bounties_target_status ON bounties(target_roblox_user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_bounties_status ON bounties(status)`,

		// Append-only audit log
		`CREATE TABLE IF NOT EXISTS audit_events (
			id         TEXT PRIMARY KEY,
			type       TEXT NOT NULL,
			message    TEXT,
			payload    TEXT,
			actor      TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_type ON audit_events(type)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_events(created_at)`,

		// Player-count observations
		`CREATE TABLE IF NOT EXISTS player_count_snapshots (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			player_count INTEGER NOT NULL,
			created_at   TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Shared rate-limit counters (fixed windows)
		`CREATE TABLE IF NOT EXISTS rate_windows (
			identifier   TEXT NOT NULL,
			window_start TEXT NOT NULL,
			count        INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (identifier, window_start)
		)`,

		// Game-client catalog, served read-only on the fetch surface
		`CREATE TABLE IF NOT EXISTS catalog_items (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			asset_id   TEXT NOT NULL DEFAULT '',
			price      INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
	}
}
