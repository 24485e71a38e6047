// LiftLog - Self-Hosted Fitness Tracking
// Copyright 2026 LiftLog contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/liftlogapp/liftlog

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/liftlogapp/liftlog/internal/logging"
)

// schema is the workout store schema, applied idempotently on open.
const schema = `
CREATE TABLE IF NOT EXISTS exercises (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	muscle_group TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);

CREATE TABLE IF NOT EXISTS workouts (
	id INTEGER PRIMARY KEY,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	notes TEXT
);

CREATE TABLE IF NOT EXISTS workout_sets (
	id INTEGER PRIMARY KEY,
	workout_id INTEGER NOT NULL REFERENCES workouts(id) ON DELETE CASCADE,
	exercise_id INTEGER NOT NULL REFERENCES exercises(id),
	set_index INTEGER NOT NULL,
	reps INTEGER NOT NULL,
	weight_kg REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS body_metrics (
	id INTEGER PRIMARY KEY,
	recorded_at TEXT NOT NULL,
	weight_kg REAL,
	body_fat_pct REAL
);

CREATE INDEX IF NOT EXISTS idx_sets_workout ON workout_sets(workout_id);
CREATE INDEX IF NOT EXISTS idx_workouts_started ON workouts(started_at);
`

// DB wraps the SQLite connection for the workout store.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (creating if necessary) the workout store at path and applies
// the schema. The store runs in WAL mode, which is why the file set includes
// -wal and -shm siblings.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", path, err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.initialize(); err != nil {
		conn.Close() //nolint:errcheck // Best effort cleanup on error
		return nil, err
	}

	logging.Info().Str("path", path).Msg("Workout store opened")
	return db, nil
}

// initialize applies the schema.
func (db *DB) initialize() error {
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply store schema: %w", err)
	}
	return nil
}

// Path returns the primary store file path.
func (db *DB) Path() string {
	return db.path
}

// Conn exposes the underlying connection for the CRUD layer.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Checkpoint flushes the WAL into the primary file so a file copy sees a
// consistent store. TRUNCATE also resets the WAL, keeping archives small.
func (db *DB) Checkpoint(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("wal checkpoint failed: %w", err)
	}
	return nil
}

// RecordCounts returns the number of workouts and logged sets, used for
// backup metadata and post-restore verification.
func (db *DB) RecordCounts(ctx context.Context) (workouts, sets int64, err error) {
	row := db.conn.QueryRowContext(ctx, "SELECT count(*) FROM workouts")
	if err := row.Scan(&workouts); err != nil {
		return 0, 0, fmt.Errorf("failed to count workouts: %w", err)
	}
	row = db.conn.QueryRowContext(ctx, "SELECT count(*) FROM workout_sets")
	if err := row.Scan(&sets); err != nil {
		return 0, 0, fmt.Errorf("failed to count workout sets: %w", err)
	}
	return workouts, sets, nil
}

// Close checkpoints and closes the store.
func (db *DB) Close() error {
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		logging.Warn().Err(err).Msg("Checkpoint on close failed")
	}
	return db.conn.Close()
}

// Verify opens the store file at path read-only and checks its integrity.
// Used after a restore before the caller is told to restart.
func Verify(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("restored store missing: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("restored store is empty")
	}

	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open restored store: %w", err)
	}
	defer conn.Close() //nolint:errcheck // Best effort cleanup

	var result string
	row := conn.QueryRowContext(ctx, "PRAGMA integrity_check")
	if err := row.Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check reported %q", result)
	}

	var tables int64
	row = conn.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master WHERE type = 'table'")
	if err := row.Scan(&tables); err != nil {
		return fmt.Errorf("failed to inspect restored store: %w", err)
	}
	if tables == 0 {
		return fmt.Errorf("restored store contains no tables")
	}
	return nil
}
