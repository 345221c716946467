// Package sqlite implements the repository interfaces on SQLite.
//
// SQLite plays the role of the document store: each entity lives in its own
// table, and the lock transitions rely on single-row conditional UPDATEs
// (UPDATE ... WHERE id = ? AND <precondition>) checked via RowsAffected.
// Set-valued user fields and project membership are join tables; project
// files and language tags are JSON-encoded TEXT columns so a project stays
// one row and its lock state can be flipped atomically.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the pure-Go "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps the sql.DB connection pool shared by the per-entity stores.
type DB struct {
	conn *sql.DB
}

// New opens the database, applies pragmas, and runs migrations.
// Use ":memory:" for throwaway databases in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows one writer at a time, and a ":memory:" database exists
	// per connection, so the pool must stay at a single connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows reads to proceed while a write is in flight — needed for a
	// web server where every request hits the database.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Callers should defer this right after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Health verifies the database is reachable.
func (db *DB) Health(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows so the same scan
// helpers serve single-row and multi-row queries.
type rowScanner interface {
	Scan(dest ...any) error
}

// stringColumn collects a single TEXT column into a slice. The result is
// never nil so set-valued fields serialize as [] rather than null.
func (db *DB) stringColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

func (db *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER,
			name          TEXT NOT NULL,
			bio           TEXT NOT NULL DEFAULT '',
			avatar        TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		)`,
		// Partial unique index: many rows may have NULL github_id (accounts
		// that never linked GitHub), but a linked GitHub account maps to at
		// most one user.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id
			ON users(github_id) WHERE github_id IS NOT NULL`,

		// Symmetric friendship: two rows per edge, (a,b) and (b,a).
		// AcceptFriendRequest/Unfriend write both rows in one transaction.
		`CREATE TABLE IF NOT EXISTS friendships (
			user_id    TEXT NOT NULL,
			friend_id  TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, friend_id)
		)`,
		// Pending incoming requests: row (user, requester) means requester
		// has asked user to be friends.
		`CREATE TABLE IF NOT EXISTS friend_requests (
			user_id      TEXT NOT NULL,
			requester_id TEXT NOT NULL,
			created_at   DATETIME NOT NULL,
			PRIMARY KEY (user_id, requester_id)
		)`,
		`CREATE TABLE IF NOT EXISTS saved_projects (
			user_id    TEXT NOT NULL,
			project_id TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, project_id)
		)`,

		`CREATE TABLE IF NOT EXISTS projects (
			id             TEXT PRIMARY KEY,
			name           TEXT NOT NULL,
			description    TEXT NOT NULL DEFAULT '',
			owner_id       TEXT NOT NULL,
			languages      TEXT NOT NULL DEFAULT '[]',
			type           TEXT NOT NULL DEFAULT '',
			version        TEXT NOT NULL DEFAULT '1.0.0',
			files          TEXT NOT NULL DEFAULT '[]',
			status         TEXT NOT NULL DEFAULT 'checked-in'
				CHECK (status IN ('checked-in', 'checked-out')),
			checked_out_by TEXT,
			created_at     DATETIME NOT NULL,
			updated_at     DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_owner_id ON projects(owner_id)`,
		`CREATE TABLE IF NOT EXISTS project_members (
			project_id TEXT NOT NULL,
			user_id    TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (project_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS checkins (
			id            TEXT PRIMARY KEY,
			project_id    TEXT NOT NULL,
			user_id       TEXT NOT NULL,
			username      TEXT NOT NULL,
			message       TEXT NOT NULL DEFAULT '',
			version       TEXT NOT NULL,
			files_changed TEXT NOT NULL DEFAULT '[]',
			created_at    DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checkins_project_id ON checkins(project_id)`,

		`CREATE TABLE IF NOT EXISTS activities (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			username     TEXT NOT NULL,
			project_id   TEXT NOT NULL,
			project_name TEXT NOT NULL,
			action       TEXT NOT NULL,
			message      TEXT NOT NULL DEFAULT '',
			created_at   DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_user_id ON activities(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_created_at ON activities(created_at)`,

		`CREATE TABLE IF NOT EXISTS discussions (
			id         TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			user_id    TEXT NOT NULL,
			username   TEXT NOT NULL,
			message    TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_discussions_project_id ON discussions(project_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}
	return nil
}
