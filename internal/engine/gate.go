package engine

import (
	"fmt"
	"strings"

	"github.com/lazypower/autoglyph/internal/lexicon"
)

// Result is the validated assignment for one document: the only thing ever
// persisted. A Result contains no permission glyph unless Eligible passed on
// the document content.
type Result struct {
	Assignments []Assignment
	StreamType  string   // "personal" or "shared"
	Denials     []string // permission glyphs removed, with reasons
	Violations  []string
	Warnings    []string
}

// Symbols returns the assigned glyph symbols in order.
func (r *Result) Symbols() []string {
	out := make([]string, len(r.Assignments))
	for i, a := range r.Assignments {
		out[i] = a.Symbol
	}
	return out
}

// Gate re-validates every permission-requiring glyph in the candidate
// against the engine-owned eligibility predicate over the document content.
// The model's rationale is never consulted: a permission glyph survives only
// if the content itself qualifies. Removed glyphs are recorded as denials.
func Gate(cand *Candidate, content string, lex *lexicon.Lexicon) *Result {
	res := &Result{
		Violations: cand.Violations,
		Warnings:   cand.Warnings,
	}

	eligible := Eligible(content)
	for _, a := range cand.Assignments {
		g, ok := lex.Get(a.Symbol)
		if !ok {
			// The parser only emits lexicon symbols; an unknown symbol here
			// means the candidate was built by hand. Drop it.
			res.Warnings = append(res.Warnings, fmt.Sprintf("unknown glyph %q dropped", a.Symbol))
			continue
		}
		if g.RequiresPermission && !eligible {
			res.Denials = append(res.Denials,
				fmt.Sprintf("%s denied: eligibility check failed", a.Symbol))
			continue
		}
		res.Assignments = append(res.Assignments, a)
	}

	return res
}

// Eligible reports whether document content qualifies for permission glyphs.
// The predicate is content-based, not glyph-based: it looks for markers of
// shared-trauma language, threshold/rite-of-passage narrative, or non-linear
// temporal content. Model self-reports never substitute for this check.
func Eligible(content string) bool {
	c := strings.ToLower(content)
	return hasSharedTrauma(c) || hasThresholdNarrative(c) || hasNonlinearTime(c)
}

var sharedTraumaMarkers = []string{
	"we survived",
	"we both",
	"both of us",
	"our grief",
	"our loss",
	"we lost",
	"we grieved",
	"we witnessed",
	"together we",
	"shared trauma",
	"shared experience",
}

var thresholdMarkers = []string{
	"rite of passage",
	"initiation",
	"liminal",
	"threshold",
	"crossing over",
	"crossed over",
	"crossed into",
	"the portal",
	"a portal",
	"the gate opened",
	"point of no return",
}

var nonlinearTimeMarkers = []string{
	"deja vu",
	"déjà vu",
	"flashback",
	"time dilation",
	"time folded",
	"time folds",
	"out of sequence",
	"out of order",
	"non-linear",
	"nonlinear",
	"past and future",
	"the future bled",
	"before it happened",
}

func hasSharedTrauma(c string) bool       { return containsAny(c, sharedTraumaMarkers) }
func hasThresholdNarrative(c string) bool { return containsAny(c, thresholdMarkers) }
func hasNonlinearTime(c string) bool      { return containsAny(c, nonlinearTimeMarkers) }

func containsAny(c string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(c, m) {
			return true
		}
	}
	return false
}
