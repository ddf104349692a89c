// Package engine is the glyph decision engine: it prompts the completion
// provider with document content and the lexicon, parses and validates the
// proposal, gates permission glyphs on engine-owned eligibility rules, and
// persists the result into document headers and the assignment log.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lazypower/autoglyph/internal/audit"
	"github.com/lazypower/autoglyph/internal/lexicon"
	"github.com/lazypower/autoglyph/internal/llm"
	"github.com/lazypower/autoglyph/internal/store"
	"github.com/lazypower/autoglyph/internal/vault"
)

const (
	// minContentChars skips very short notes without a model call.
	minContentChars = 50

	// maxParseAttempts bounds retries when a completion has no parseable
	// glyph grammar.
	maxParseAttempts = 3

	personalGlyphCap = 3
	sharedGlyphCap   = 7

	// providerFailureLimit escalates to a run abort after this many
	// consecutive provider failures: the model host is presumed down.
	providerFailureLimit = 3
)

// ErrRunAborted wraps the fatal escalation when the provider fails for
// several documents in a row.
var ErrRunAborted = errors.New("run aborted")

// Engine processes documents one at a time: the model host is a single
// local resource, so there is nothing to gain from concurrency.
type Engine struct {
	LLM     llm.Client
	Lexicon *lexicon.Lexicon
	Log     *audit.Log
	Index   *store.DB // optional query index; the JSONL log is ground truth
	Force   bool      // reprocess documents with an unchanged fingerprint
	RunID   string

	providerFails int // consecutive, reset on any successful completion
}

// New creates an Engine with a fresh run ID.
func New(client llm.Client, lex *lexicon.Lexicon, alog *audit.Log) *Engine {
	return &Engine{
		LLM:     client,
		Lexicon: lex,
		Log:     alog,
		RunID:   uuid.NewString(),
	}
}

// SetIndex configures the optional sqlite index mirror.
func (e *Engine) SetIndex(db *store.DB) {
	e.Index = db
}

// Summary is the user-visible result of a run.
type Summary struct {
	RunID     string
	Total     int
	Processed int
	Skipped   int
	Failed    int
	NoMatch   int
	Reasons   map[string]int
	Duration  time.Duration
}

// Run processes every markdown note under root. Per-document errors never
// abort the run; only repeated provider failure does. An interrupt between
// documents leaves no partial per-document state behind.
func (e *Engine) Run(ctx context.Context, root string, ignore []string) (*Summary, error) {
	start := time.Now()

	paths, err := vault.Walk(root, ignore)
	if err != nil {
		return nil, fmt.Errorf("enumerate vault: %w", err)
	}

	if e.Index != nil {
		if err := e.Index.StartRun(e.RunID, start); err != nil {
			log.Printf("engine: record run start: %v", err)
		}
	}

	sum := &Summary{RunID: e.RunID, Total: len(paths), Reasons: make(map[string]int)}
	var fatal error

	for _, path := range paths {
		if ctx.Err() != nil {
			fatal = ctx.Err()
			break
		}

		action, reason, err := e.Process(ctx, path)
		sum.tally(action, reason)
		if err != nil {
			fatal = err
			break
		}
	}

	sum.Duration = time.Since(start)
	if e.Index != nil {
		if err := e.Index.FinishRun(e.RunID, time.Now(), sum.Processed, sum.Skipped, sum.Failed, sum.NoMatch); err != nil {
			log.Printf("engine: record run finish: %v", err)
		}
	}

	return sum, fatal
}

// Process runs the full decision pipeline for one document and logs exactly
// one record for the attempt. The returned error is nil except for the
// fatal provider escalation.
func (e *Engine) Process(ctx context.Context, path string) (action, reason string, fatal error) {
	doc, err := vault.Read(path)
	if err != nil {
		reason := ReasonReadError
		if errors.Is(err, vault.ErrMalformedHeader) {
			reason = ReasonCorruptHeader
		}
		e.record(audit.Record{Path: path, Action: audit.ActionFailed, Reason: reason, Error: err.Error()})
		return audit.ActionFailed, reason, nil
	}

	if len(strings.TrimSpace(doc.Content)) < minContentChars {
		err := fmt.Errorf("%w: content below %d chars", ErrEmptyDocument, minContentChars)
		e.record(audit.Record{
			Path: path, Fingerprint: doc.Fingerprint,
			Action: audit.ActionSkipped, Reason: ReasonEmptyDocument, Error: err.Error(),
		})
		return audit.ActionSkipped, ReasonEmptyDocument, nil
	}

	if !e.Force && e.Index != nil {
		fp, err := e.Index.LatestFingerprint(path)
		if err != nil {
			log.Printf("engine: fingerprint check %s: %v", path, err)
		} else if fp == doc.Fingerprint {
			e.record(audit.Record{
				Path: path, Fingerprint: doc.Fingerprint,
				Action: audit.ActionSkipped, Reason: ReasonAlreadyProcessed,
			})
			return audit.ActionSkipped, ReasonAlreadyProcessed, nil
		}
	}

	shared := SharedStream(doc.Header)
	limit := personalGlyphCap
	streamType := "personal"
	if shared {
		limit = sharedGlyphCap
		streamType = "shared"
	}

	prompt, err := llm.AssignmentPrompt(doc.Content, e.Lexicon, shared, limit)
	if err != nil {
		e.record(audit.Record{
			Path: path, Fingerprint: doc.Fingerprint,
			Action: audit.ActionSkipped, Reason: ReasonEmptyDocument, Error: err.Error(),
		})
		return audit.ActionSkipped, ReasonEmptyDocument, nil
	}

	cand, reason, fatal := e.complete(ctx, path, doc.Fingerprint, prompt, limit)
	if cand == nil {
		return audit.ActionFailed, reason, fatal
	}

	res := Gate(cand, doc.Content, e.Lexicon)
	res.StreamType = streamType

	if len(res.Assignments) == 0 {
		e.record(audit.Record{
			Path: path, Fingerprint: doc.Fingerprint,
			Action: audit.ActionNoMatch, StreamType: streamType,
			Denials: res.Denials, Violations: res.Violations, Warnings: res.Warnings,
		})
		return audit.ActionNoMatch, "", nil
	}

	doc.Header = Merge(doc.Header, res, e.Lexicon, time.Now())

	rec := audit.Record{
		Path: path, Fingerprint: doc.Fingerprint,
		Action: audit.ActionUpdated, StreamType: streamType,
		Glyphs:     res.Symbols(),
		Rationales: rationaleMap(res.Assignments),
		Denials:    res.Denials,
		Violations: res.Violations,
		Warnings:   res.Warnings,
	}

	// Logged whether or not the header write lands: every attempted
	// document leaves a trace.
	if err := vault.Write(doc); err != nil {
		rec.Action = audit.ActionFailed
		rec.Reason = ReasonWriteError
		rec.Error = err.Error()
	}
	e.record(rec)
	return rec.Action, rec.Reason, nil
}

// complete calls the provider and parses the response, retrying on
// unparsable output up to the attempt bound. Returns a nil candidate on
// failure, with the logged reason and any fatal escalation.
func (e *Engine) complete(ctx context.Context, path, fingerprint, prompt string, limit int) (*Candidate, string, error) {
	var parseErr error

	for attempt := 1; attempt <= maxParseAttempts; attempt++ {
		resp, err := e.LLM.Complete(ctx, prompt)
		if err != nil {
			e.providerFails++
			wrapped := fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
			e.record(audit.Record{
				Path: path, Fingerprint: fingerprint,
				Action: audit.ActionFailed, Reason: ReasonProviderUnavailable, Error: wrapped.Error(),
			})
			if e.providerFails >= providerFailureLimit {
				return nil, ReasonProviderUnavailable,
					fmt.Errorf("%w: provider failed for %d consecutive documents", ErrRunAborted, e.providerFails)
			}
			return nil, ReasonProviderUnavailable, nil
		}
		e.providerFails = 0

		cand, err := ParseResponse(resp.Content, e.Lexicon, limit)
		if err == nil {
			return cand, "", nil
		}
		parseErr = err
		log.Printf("engine: %s attempt %d/%d: %v", path, attempt, maxParseAttempts, err)
	}

	e.record(audit.Record{
		Path: path, Fingerprint: fingerprint,
		Action: audit.ActionFailed, Reason: ReasonUnparsableResponse, Error: parseErr.Error(),
	})
	return nil, ReasonUnparsableResponse, nil
}

// record appends one audit record, filling run metadata, and mirrors it into
// the index when one is configured. Index errors never block the log write.
func (e *Engine) record(rec audit.Record) {
	rec.RunID = e.RunID
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	if e.Log != nil {
		if err := e.Log.Append(rec); err != nil {
			log.Printf("engine: append log record for %s: %v", rec.Path, err)
		}
	}
	if e.Index != nil {
		if err := e.Index.InsertRecord(rec); err != nil {
			log.Printf("engine: index record for %s: %v", rec.Path, err)
		}
	}
}

// SharedStream reports whether a document header marks the note as a shared
// experience. Tags may be a YAML sequence or a single string.
func SharedStream(header map[string]any) bool {
	tags, ok := header["tags"]
	if !ok {
		return false
	}
	switch v := tags.(type) {
	case string:
		return v == "shared_experience"
	case []any:
		for _, t := range v {
			if s, ok := t.(string); ok && s == "shared_experience" {
				return true
			}
		}
	case []string:
		for _, s := range v {
			if s == "shared_experience" {
				return true
			}
		}
	}
	return false
}

func rationaleMap(assignments []Assignment) map[string]string {
	m := make(map[string]string, len(assignments))
	for _, a := range assignments {
		if a.Rationale != "" {
			m[a.Symbol] = a.Rationale
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func (s *Summary) tally(action, reason string) {
	switch action {
	case audit.ActionUpdated:
		s.Processed++
	case audit.ActionSkipped:
		s.Skipped++
	case audit.ActionFailed:
		s.Failed++
	case audit.ActionNoMatch:
		s.NoMatch++
	}
	if reason != "" {
		s.Reasons[reason]++
	}
}

// String renders the final run report.
func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d documents in %s\n", s.RunID, s.Total, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "  processed: %d\n", s.Processed)
	fmt.Fprintf(&b, "  no match:  %d\n", s.NoMatch)
	fmt.Fprintf(&b, "  skipped:   %d\n", s.Skipped)
	fmt.Fprintf(&b, "  failed:    %d\n", s.Failed)
	for reason, n := range s.Reasons {
		fmt.Fprintf(&b, "    %s: %d\n", reason, n)
	}
	return strings.TrimRight(b.String(), "\n")
}
