package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAppendAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assignments.jsonl")
	alog, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer alog.Close()

	recs := []Record{
		{
			RunID: "run-1", Path: "a.md", Action: ActionUpdated,
			Timestamp: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
			Glyphs:    []string{"∷", "🜁"},
			Rationales: map[string]string{
				"∷": "the loop",
			},
		},
		{
			RunID: "run-1", Path: "b.md", Action: ActionSkipped, Reason: "empty_document",
			Timestamp: time.Date(2026, 8, 30, 10, 0, 1, 0, time.UTC),
		},
	}
	for _, rec := range recs {
		if err := alog.Append(rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records = %d, want 2", len(got))
	}
	if got[0].Path != "a.md" || got[0].Action != ActionUpdated {
		t.Errorf("record 0 = %+v", got[0])
	}
	if len(got[0].Glyphs) != 2 || got[0].Rationales["∷"] != "the loop" {
		t.Errorf("record 0 payload = %+v", got[0])
	}
	if got[1].Reason != "empty_document" {
		t.Errorf("record 1 = %+v", got[1])
	}
}

func TestAppendOnlyAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assignments.jsonl")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := first.Append(Record{RunID: "run-1", Path: "a.md", Action: ActionUpdated}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := second.Append(Record{RunID: "run-2", Path: "a.md", Action: ActionNoMatch}); err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}
	second.Close()

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records = %d, want 2 (reopen must not truncate)", len(got))
	}
	if got[0].RunID != "run-1" || got[1].RunID != "run-2" {
		t.Errorf("records = %+v", got)
	}
}

func TestReadAllSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assignments.jsonl")
	content := `{"run_id":"run-1","path":"a.md","timestamp":"2026-08-30T10:00:00Z","action":"updated"}
this line is not json
{"run_id":"run-1","path":"b.md","timestamp":"2026-08-30T10:00:01Z","action":"skipped","reason":"empty_document"}

{"truncated":
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records = %d, want 2 valid", len(got))
	}
	if got[0].Path != "a.md" || got[1].Path != "b.md" {
		t.Errorf("records = %+v", got)
	}
}

func TestReadAllMissingFile(t *testing.T) {
	got, err := ReadAll(filepath.Join(t.TempDir(), "nope.jsonl"))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if got != nil {
		t.Errorf("records = %v, want nil", got)
	}
}

func TestLatest(t *testing.T) {
	t0 := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	records := []Record{
		{Path: "a.md", Action: ActionUpdated, Timestamp: t0},
		{Path: "b.md", Action: ActionSkipped, Timestamp: t0.Add(time.Second)},
		{Path: "a.md", Action: ActionNoMatch, Timestamp: t0.Add(2 * time.Second)},
		{Path: "a.md", Action: ActionFailed, Timestamp: t0.Add(time.Second)},
	}

	latest := Latest(records)
	if len(latest) != 2 {
		t.Fatalf("latest = %d paths, want 2", len(latest))
	}
	if latest["a.md"].Action != ActionNoMatch {
		t.Errorf("a.md latest = %+v, want most recent record", latest["a.md"])
	}
	if latest["b.md"].Action != ActionSkipped {
		t.Errorf("b.md latest = %+v", latest["b.md"])
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "log.jsonl")
	alog, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer alog.Close()
	if alog.Path() != path {
		t.Errorf("Path() = %q", alog.Path())
	}
}
