package store

import (
	"database/sql"
	"fmt"
	"time"
)

// RunInfo is one engine run's summary row.
type RunInfo struct {
	RunID      string     `json:"run_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Processed  int        `json:"processed"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	NoMatch    int        `json:"no_match"`
}

// StartRun records the beginning of an engine run.
func (db *DB) StartRun(runID string, startedAt time.Time) error {
	_, err := db.Exec(
		"INSERT INTO runs (run_id, started_at) VALUES (?, ?)",
		runID, startedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun records a run's final counts.
func (db *DB) FinishRun(runID string, finishedAt time.Time, processed, skipped, failed, noMatch int) error {
	res, err := db.Exec(`
		UPDATE runs
		SET finished_at = ?, processed = ?, skipped = ?, failed = ?, no_match = ?
		WHERE run_id = ?`,
		finishedAt.UnixMilli(), processed, skipped, failed, noMatch, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("finish run: unknown run %s", runID)
	}
	return nil
}

// ListRuns returns recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT run_id, started_at, finished_at, processed, skipped, failed, no_match
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var r RunInfo
		var started int64
		var finished sql.NullInt64
		if err := rows.Scan(&r.RunID, &started, &finished, &r.Processed, &r.Skipped, &r.Failed, &r.NoMatch); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			t := time.UnixMilli(finished.Int64)
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
