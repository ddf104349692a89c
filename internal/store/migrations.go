package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "assignments: indexed mirror of the JSONL log",
		SQL: `
CREATE TABLE assignments (
    id          INTEGER PRIMARY KEY,
    run_id      TEXT NOT NULL,
    path        TEXT NOT NULL,
    fingerprint TEXT,
    action      TEXT NOT NULL CHECK (action IN ('updated', 'no_match', 'skipped', 'failed')),
    reason      TEXT,
    stream_type TEXT,
    glyphs      TEXT,
    rationales  TEXT,
    denials     TEXT,
    violations  TEXT,
    warnings    TEXT,
    error       TEXT,
    created_at  INTEGER NOT NULL
);

CREATE INDEX idx_assignments_path    ON assignments(path);
CREATE INDEX idx_assignments_run     ON assignments(run_id);
CREATE INDEX idx_assignments_created ON assignments(created_at DESC);
`,
	},
	{
		Version:     2,
		Description: "runs: per-run summary tracking",
		SQL: `
CREATE TABLE runs (
    id          INTEGER PRIMARY KEY,
    run_id      TEXT NOT NULL UNIQUE,
    started_at  INTEGER NOT NULL,
    finished_at INTEGER,
    processed   INTEGER NOT NULL DEFAULT 0,
    skipped     INTEGER NOT NULL DEFAULT 0,
    failed      INTEGER NOT NULL DEFAULT 0,
    no_match    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_runs_started ON runs(started_at DESC);
`,
	},
}

func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
