package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lazypower/autoglyph/internal/audit"
)

// InsertRecord mirrors one audit log record into the index.
func (db *DB) InsertRecord(rec audit.Record) error {
	glyphs, _ := json.Marshal(rec.Glyphs)
	rationales, _ := json.Marshal(rec.Rationales)
	denials, _ := json.Marshal(rec.Denials)
	violations, _ := json.Marshal(rec.Violations)
	warnings, _ := json.Marshal(rec.Warnings)

	_, err := db.Exec(`
		INSERT INTO assignments
			(run_id, path, fingerprint, action, reason, stream_type,
			 glyphs, rationales, denials, violations, warnings, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Path, rec.Fingerprint, rec.Action, rec.Reason, rec.StreamType,
		string(glyphs), string(rationales), string(denials), string(violations),
		string(warnings), rec.Error, rec.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// LatestFingerprint returns the fingerprint from the most recent processed
// record (updated or no_match) for a path, or "" when the document has never
// been processed. Skips and failures don't count: those documents should be
// retried on the next run.
func (db *DB) LatestFingerprint(path string) (string, error) {
	var fp sql.NullString
	err := db.QueryRow(`
		SELECT fingerprint FROM assignments
		WHERE path = ? AND action IN ('updated', 'no_match')
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, path).Scan(&fp)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest fingerprint: %w", err)
	}
	return fp.String, nil
}

// DocState is the reconstructed current state of one document: its latest
// record, reduced from full history.
type DocState struct {
	Path        string    `json:"path"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Action      string    `json:"action"`
	Reason      string    `json:"reason,omitempty"`
	StreamType  string    `json:"stream_type,omitempty"`
	Glyphs      []string  `json:"glyphs,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// LatestAssignments returns the latest record per document path.
func (db *DB) LatestAssignments() ([]DocState, error) {
	rows, err := db.Query(`
		SELECT a.path, a.fingerprint, a.action, a.reason, a.stream_type, a.glyphs, a.created_at
		FROM assignments a
		JOIN (
			SELECT path, MAX(created_at) AS latest
			FROM assignments
			GROUP BY path
		) m ON a.path = m.path AND a.created_at = m.latest
		GROUP BY a.path
		ORDER BY a.path`)
	if err != nil {
		return nil, fmt.Errorf("latest assignments: %w", err)
	}
	defer rows.Close()

	var states []DocState
	for rows.Next() {
		var s DocState
		var fp, reason, stream, glyphs sql.NullString
		var created int64
		if err := rows.Scan(&s.Path, &fp, &s.Action, &reason, &stream, &glyphs, &created); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		s.Fingerprint = fp.String
		s.Reason = reason.String
		s.StreamType = stream.String
		s.Timestamp = time.UnixMilli(created)
		if glyphs.Valid && glyphs.String != "" {
			json.Unmarshal([]byte(glyphs.String), &s.Glyphs)
		}
		states = append(states, s)
	}
	return states, rows.Err()
}

// History returns the full record history for one document, newest first.
func (db *DB) History(path string, limit int) ([]audit.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT run_id, path, fingerprint, action, reason, stream_type,
		       glyphs, rationales, denials, violations, warnings, error, created_at
		FROM assignments
		WHERE path = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, path, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// RecentFailures returns the most recent failed records across all paths.
func (db *DB) RecentFailures(limit int) ([]audit.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT run_id, path, fingerprint, action, reason, stream_type,
		       glyphs, rationales, denials, violations, warnings, error, created_at
		FROM assignments
		WHERE action = 'failed'
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent failures: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]audit.Record, error) {
	var records []audit.Record
	for rows.Next() {
		var rec audit.Record
		var fp, reason, stream, glyphs, rationales, denials, violations, warnings, errStr sql.NullString
		var created int64
		if err := rows.Scan(&rec.RunID, &rec.Path, &fp, &rec.Action, &reason, &stream,
			&glyphs, &rationales, &denials, &violations, &warnings, &errStr, &created); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Fingerprint = fp.String
		rec.Reason = reason.String
		rec.StreamType = stream.String
		rec.Error = errStr.String
		rec.Timestamp = time.UnixMilli(created)
		unmarshalList(glyphs, &rec.Glyphs)
		unmarshalList(denials, &rec.Denials)
		unmarshalList(violations, &rec.Violations)
		unmarshalList(warnings, &rec.Warnings)
		if rationales.Valid && rationales.String != "" {
			json.Unmarshal([]byte(rationales.String), &rec.Rationales)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func unmarshalList(col sql.NullString, dst *[]string) {
	if col.Valid && col.String != "" {
		json.Unmarshal([]byte(col.String), dst)
	}
}

// Reindex replaces the entire index with the given log history.
func (db *DB) Reindex(records []audit.Record) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin reindex: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM assignments"); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear assignments: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM runs"); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear runs: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO assignments
			(run_id, path, fingerprint, action, reason, stream_type,
			 glyphs, rationales, denials, violations, warnings, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		glyphs, _ := json.Marshal(rec.Glyphs)
		rationales, _ := json.Marshal(rec.Rationales)
		denials, _ := json.Marshal(rec.Denials)
		violations, _ := json.Marshal(rec.Violations)
		warnings, _ := json.Marshal(rec.Warnings)

		if _, err := stmt.Exec(
			rec.RunID, rec.Path, rec.Fingerprint, rec.Action, rec.Reason, rec.StreamType,
			string(glyphs), string(rationales), string(denials), string(violations),
			string(warnings), rec.Error, rec.Timestamp.UnixMilli(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("reindex %s: %w", rec.Path, err)
		}
	}

	return tx.Commit()
}
