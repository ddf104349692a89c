package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lazypower/autoglyph/internal/audit"
	"github.com/lazypower/autoglyph/internal/lexicon"
	"github.com/lazypower/autoglyph/internal/llm"
	"github.com/lazypower/autoglyph/internal/vault"
)

const testBody = "Woke up at seven, made coffee, walked the dog. Same routine as always, " +
	"and I breathed through the morning slowly, watching the pattern repeat itself."

func newTestEngine(t *testing.T, client llm.Client) (*Engine, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "assignments.jsonl")
	alog, err := audit.Open(logPath)
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	t.Cleanup(func() { alog.Close() })
	return New(client, lexicon.Default(), alog), logPath
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestProcessUpdatesHeader(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{
		Content: "∷ :: the routine repeats\n🜁 :: breathing through the morning",
	}}
	eng, logPath := newTestEngine(t, mock)

	dir := t.TempDir()
	path := writeDoc(t, dir, "note.md", "---\ntitle: Morning\ntags: [draft]\n---\n\n"+testBody+"\n")

	action, reason, fatal := eng.Process(context.Background(), path)
	if fatal != nil {
		t.Fatalf("fatal = %v", fatal)
	}
	if action != audit.ActionUpdated || reason != "" {
		t.Fatalf("action = %q reason = %q, want updated", action, reason)
	}

	doc, err := vault.Read(path)
	if err != nil {
		t.Fatalf("re-read note: %v", err)
	}
	if doc.Header["title"] != "Morning" {
		t.Errorf("title = %v, foreign key not preserved", doc.Header["title"])
	}
	stream, ok := doc.Header[KeyGlyphstream].([]any)
	if !ok || len(stream) != 2 || stream[0] != "∷" || stream[1] != "🜁" {
		t.Errorf("glyphstream = %v", doc.Header[KeyGlyphstream])
	}
	if doc.Header[KeyStreamType] != "personal" {
		t.Errorf("stream_type = %v", doc.Header[KeyStreamType])
	}
	if doc.Content != testBody+"\n" {
		t.Errorf("body changed: %q", doc.Content)
	}

	records, err := audit.ReadAll(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.Action != audit.ActionUpdated || rec.RunID != eng.RunID {
		t.Errorf("record = %+v", rec)
	}
	if rec.Fingerprint != vault.Fingerprint(testBody+"\n") {
		t.Errorf("fingerprint = %q", rec.Fingerprint)
	}
	if rec.Rationales["∷"] != "the routine repeats" {
		t.Errorf("rationales = %v", rec.Rationales)
	}
}

func TestProcessDeniesPermissionGlyph(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{
		Content: "∷ :: the routine\n⧖ :: time felt slow\n🜁 :: the breath",
	}}
	eng, logPath := newTestEngine(t, mock)

	dir := t.TempDir()
	path := writeDoc(t, dir, "note.md", testBody+"\n")

	action, _, fatal := eng.Process(context.Background(), path)
	if fatal != nil || action != audit.ActionUpdated {
		t.Fatalf("action = %q fatal = %v", action, fatal)
	}

	doc, err := vault.Read(path)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	stream, _ := doc.Header[KeyGlyphstream].([]any)
	for _, s := range stream {
		if s == "⧖" {
			t.Error("denied permission glyph landed in glyphstream")
		}
	}

	records, _ := audit.ReadAll(logPath)
	if len(records) != 1 || len(records[0].Denials) != 1 {
		t.Fatalf("records = %+v, want one denial", records)
	}
	if !strings.Contains(records[0].Denials[0], "⧖") {
		t.Errorf("denial = %q", records[0].Denials[0])
	}
}

func TestProcessSharedStream(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: "⚯ :: witnessing together"}}
	eng, _ := newTestEngine(t, mock)

	dir := t.TempDir()
	path := writeDoc(t, dir, "note.md",
		"---\ntags:\n  - shared_experience\n---\n\n"+testBody+"\n")

	action, _, fatal := eng.Process(context.Background(), path)
	if fatal != nil || action != audit.ActionUpdated {
		t.Fatalf("action = %q fatal = %v", action, fatal)
	}

	doc, _ := vault.Read(path)
	if doc.Header[KeyStreamType] != "shared" {
		t.Errorf("stream_type = %v, want shared", doc.Header[KeyStreamType])
	}
	if len(mock.Calls) != 1 || !strings.Contains(mock.Calls[0], "at most 7 glyphs") {
		t.Errorf("prompt should carry the shared-stream glyph limit")
	}
}

func TestProcessSkipsShortDocument(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: "∷ :: loops"}}
	eng, logPath := newTestEngine(t, mock)

	dir := t.TempDir()
	original := "---\ntitle: Stub\n---\n\nToo short.\n"
	path := writeDoc(t, dir, "stub.md", original)

	action, reason, fatal := eng.Process(context.Background(), path)
	if fatal != nil {
		t.Fatalf("fatal = %v", fatal)
	}
	if action != audit.ActionSkipped || reason != ReasonEmptyDocument {
		t.Fatalf("action = %q reason = %q", action, reason)
	}
	if len(mock.Calls) != 0 {
		t.Error("short document reached the model")
	}

	data, _ := os.ReadFile(path)
	if string(data) != original {
		t.Error("skipped document was modified")
	}

	records, _ := audit.ReadAll(logPath)
	if len(records) != 1 || records[0].Reason != ReasonEmptyDocument {
		t.Errorf("records = %+v", records)
	}
}

func TestProcessCorruptHeader(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: "∷ :: loops"}}
	eng, logPath := newTestEngine(t, mock)

	dir := t.TempDir()
	original := "---\ntitle: Broken\n\n" + testBody + "\n"
	path := writeDoc(t, dir, "broken.md", original)

	action, reason, fatal := eng.Process(context.Background(), path)
	if fatal != nil {
		t.Fatalf("fatal = %v", fatal)
	}
	if action != audit.ActionFailed || reason != ReasonCorruptHeader {
		t.Fatalf("action = %q reason = %q", action, reason)
	}
	if len(mock.Calls) != 0 {
		t.Error("corrupt document reached the model")
	}

	data, _ := os.ReadFile(path)
	if string(data) != original {
		t.Error("corrupt document was modified")
	}

	records, _ := audit.ReadAll(logPath)
	if len(records) != 1 || records[0].Reason != ReasonCorruptHeader {
		t.Errorf("records = %+v", records)
	}
}

func TestProcessNoMatch(t *testing.T) {
	// Only a permission glyph proposed, content not eligible: validated
	// result is empty and the header stays untouched.
	mock := &llm.MockClient{Response: &llm.Response{Content: "⧖ :: feels timeless"}}
	eng, logPath := newTestEngine(t, mock)

	dir := t.TempDir()
	original := testBody + "\n"
	path := writeDoc(t, dir, "note.md", original)

	action, _, fatal := eng.Process(context.Background(), path)
	if fatal != nil || action != audit.ActionNoMatch {
		t.Fatalf("action = %q fatal = %v", action, fatal)
	}

	data, _ := os.ReadFile(path)
	if string(data) != original {
		t.Error("no-match document was modified")
	}

	records, _ := audit.ReadAll(logPath)
	if len(records) != 1 || records[0].Action != audit.ActionNoMatch {
		t.Fatalf("records = %+v", records)
	}
	if len(records[0].Denials) != 1 {
		t.Errorf("denials = %v", records[0].Denials)
	}
}

func TestProcessUnparsableRetries(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{
		Content: "I am sorry, I cannot identify any meaningful symbols here.",
	}}
	eng, logPath := newTestEngine(t, mock)

	dir := t.TempDir()
	original := testBody + "\n"
	path := writeDoc(t, dir, "note.md", original)

	action, reason, fatal := eng.Process(context.Background(), path)
	if fatal != nil {
		t.Fatalf("fatal = %v", fatal)
	}
	if action != audit.ActionFailed || reason != ReasonUnparsableResponse {
		t.Fatalf("action = %q reason = %q", action, reason)
	}
	if len(mock.Calls) != maxParseAttempts {
		t.Errorf("calls = %d, want %d", len(mock.Calls), maxParseAttempts)
	}

	data, _ := os.ReadFile(path)
	if string(data) != original {
		t.Error("failed document was modified")
	}

	records, _ := audit.ReadAll(logPath)
	if len(records) != 1 || records[0].Reason != ReasonUnparsableResponse {
		t.Errorf("records = %+v", records)
	}
}

func TestProcessRecoversOnSecondAttempt(t *testing.T) {
	mock := &llm.MockClient{Responses: []*llm.Response{
		{Content: "Let me think about which symbols might apply to this entry."},
		{Content: "∷ :: the routine repeats"},
	}}
	eng, _ := newTestEngine(t, mock)

	dir := t.TempDir()
	path := writeDoc(t, dir, "note.md", testBody+"\n")

	action, _, fatal := eng.Process(context.Background(), path)
	if fatal != nil || action != audit.ActionUpdated {
		t.Fatalf("action = %q fatal = %v", action, fatal)
	}
	if len(mock.Calls) != 2 {
		t.Errorf("calls = %d, want 2", len(mock.Calls))
	}
}

func TestRunAbortsOnRepeatedProviderFailure(t *testing.T) {
	mock := &llm.MockClient{Err: errors.New("connection refused")}
	eng, logPath := newTestEngine(t, mock)

	dir := t.TempDir()
	for _, name := range []string{"a.md", "b.md", "c.md", "d.md"} {
		writeDoc(t, dir, name, testBody+"\n")
	}

	sum, err := eng.Run(context.Background(), dir, nil)
	if !errors.Is(err, ErrRunAborted) {
		t.Fatalf("err = %v, want ErrRunAborted", err)
	}
	if sum.Failed != providerFailureLimit {
		t.Errorf("failed = %d, want %d", sum.Failed, providerFailureLimit)
	}

	// The fourth document was never attempted.
	records, _ := audit.ReadAll(logPath)
	if len(records) != providerFailureLimit {
		t.Errorf("records = %d, want %d", len(records), providerFailureLimit)
	}
	for _, rec := range records {
		if rec.Reason != ReasonProviderUnavailable {
			t.Errorf("reason = %q", rec.Reason)
		}
	}
}

func TestRunProcessesVaultInOrder(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: "∷ :: loops"}}
	eng, _ := newTestEngine(t, mock)

	dir := t.TempDir()
	writeDoc(t, dir, "b.md", testBody+"\n")
	writeDoc(t, dir, "a.md", testBody+"\n")
	writeDoc(t, dir, "short.md", "tiny\n")

	sum, err := eng.Run(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Total != 3 || sum.Processed != 2 || sum.Skipped != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Reasons[ReasonEmptyDocument] != 1 {
		t.Errorf("reasons = %v", sum.Reasons)
	}
}

func TestRunHonorsContextCancel(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: "∷ :: loops"}}
	eng, _ := newTestEngine(t, mock)

	dir := t.TempDir()
	writeDoc(t, dir, "a.md", testBody+"\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := eng.Run(ctx, dir, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if sum.Processed != 0 {
		t.Errorf("processed = %d after immediate cancel", sum.Processed)
	}
}

func TestSharedStreamDetection(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]any
		want   bool
	}{
		{"no header", nil, false},
		{"no tags", map[string]any{"title": "X"}, false},
		{"sequence with marker", map[string]any{"tags": []any{"journal", "shared_experience"}}, true},
		{"sequence without marker", map[string]any{"tags": []any{"journal"}}, false},
		{"string tag", map[string]any{"tags": "shared_experience"}, true},
		{"string slice", map[string]any{"tags": []string{"shared_experience"}}, true},
		{"wrong type", map[string]any{"tags": 42}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SharedStream(tt.header); got != tt.want {
				t.Errorf("SharedStream = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProcessDeterministic(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{
		Content: "∷ :: the routine repeats\n🜁 :: breathing slowly",
	}}
	eng, _ := newTestEngine(t, mock)
	eng.Force = true

	dir := t.TempDir()
	path := writeDoc(t, dir, "note.md", testBody+"\n")

	if _, _, err := eng.Process(context.Background(), path); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	first, err := vault.Read(path)
	if err != nil {
		t.Fatalf("read after first pass: %v", err)
	}

	if _, _, err := eng.Process(context.Background(), path); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	second, err := vault.Read(path)
	if err != nil {
		t.Fatalf("read after second pass: %v", err)
	}

	gotFirst, _ := first.Header[KeyGlyphstream].([]any)
	gotSecond, _ := second.Header[KeyGlyphstream].([]any)
	if len(gotFirst) != len(gotSecond) {
		t.Fatalf("glyphstream drifted: %v vs %v", gotFirst, gotSecond)
	}
	for i := range gotFirst {
		if gotFirst[i] != gotSecond[i] {
			t.Errorf("glyphstream[%d] = %v then %v", i, gotFirst[i], gotSecond[i])
		}
	}
	if first.Content != second.Content {
		t.Error("body drifted between passes")
	}
}
