package engine

import (
	"fmt"
	"strings"

	"github.com/lazypower/autoglyph/internal/lexicon"
)

// Assignment is one glyph choice with the model's rationale for it.
type Assignment struct {
	Symbol    string
	Rationale string
}

// Candidate is the parsed but unvalidated model proposal for one document.
type Candidate struct {
	Assignments []Assignment
	Warnings    []string // unknown glyphs dropped, duplicates collapsed
	Violations  []string // cap truncation, recorded and auto-corrected
}

// maxTagLen bounds how long a token can be and still plausibly reference a
// glyph. Longer left-hand sides are prose, not drifted grammar.
const maxTagLen = 40

// separators tried in order when splitting a grammar line into
// glyph-reference and rationale.
var separators = []string{"::", " — ", " – ", " - ", ":"}

// ParseResponse decodes raw completion text into a Candidate. It tolerates
// code fences, bullets, punctuation drift in the separator, and glyphs
// referenced by display name. Unknown glyphs are dropped with a warning.
// Text with no recognizable grammar at all returns ErrUnparsable.
// nonPermissionCap bounds the non-permission glyph count; extras are
// truncated in model-stated order and recorded as a violation.
func ParseResponse(raw string, lex *lexicon.Lexicon, nonPermissionCap int) (*Candidate, error) {
	cand := &Candidate{}
	seen := make(map[string]bool)
	grammarFound := false

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		line = stripBullet(line)

		if sym, rationale, ok := splitGrammarLine(line, lex, cand); ok {
			grammarFound = true
			if seen[sym] {
				cand.Warnings = append(cand.Warnings, fmt.Sprintf("duplicate glyph %s collapsed", sym))
				continue
			}
			seen[sym] = true
			cand.Assignments = append(cand.Assignments, Assignment{Symbol: sym, Rationale: rationale})
			continue
		}

		// Fallback: a bare comma-separated symbol list, the loosest drift
		// the parser accepts.
		if syms, matched := parseBareList(line, lex, cand); matched {
			grammarFound = true
			for _, sym := range syms {
				if seen[sym] {
					continue
				}
				seen[sym] = true
				cand.Assignments = append(cand.Assignments, Assignment{Symbol: sym})
			}
		}
	}

	if !grammarFound {
		return nil, fmt.Errorf("%w: no glyph grammar in completion", ErrUnparsable)
	}

	enforceCap(cand, lex, nonPermissionCap)
	return cand, nil
}

// splitGrammarLine tries to read a line as "<glyph ref> <sep> <rationale>".
// Unknown short references are dropped with a warning and still count as
// grammar; long unmatched left-hand sides are prose and do not.
func splitGrammarLine(line string, lex *lexicon.Lexicon, cand *Candidate) (string, string, bool) {
	for _, sep := range separators {
		idx := strings.Index(line, sep)
		if idx <= 0 {
			continue
		}
		ref := strings.Trim(strings.TrimSpace(line[:idx]), "*_`\"'")
		rationale := strings.TrimSpace(line[idx+len(sep):])
		if ref == "" || len(ref) > maxTagLen {
			continue
		}

		if g, ok := lex.Resolve(ref); ok {
			return g.Symbol, rationale, true
		}

		// Looks like the grammar, names a glyph we don't have. Longer
		// left-hand sides ("Here are the glyphs:") are prose, not drift.
		if rationale != "" && len(strings.Fields(ref)) <= 3 {
			cand.Warnings = append(cand.Warnings, fmt.Sprintf("unknown glyph %q dropped", ref))
			return "", "", false
		}
	}
	return "", "", false
}

// parseBareList reads a line as comma-separated glyph references. The line
// matches only if at least one token resolves and every token is tag-sized.
func parseBareList(line string, lex *lexicon.Lexicon, cand *Candidate) ([]string, bool) {
	tokens := strings.Split(line, ",")
	var resolved []string
	var unknown []string

	for _, tok := range tokens {
		tok = strings.Trim(strings.TrimSpace(tok), "*_`\"'.")
		if tok == "" {
			continue
		}
		if len(tok) > maxTagLen {
			return nil, false
		}
		if g, ok := lex.Resolve(tok); ok {
			resolved = append(resolved, g.Symbol)
		} else {
			unknown = append(unknown, tok)
		}
	}

	if len(resolved) == 0 {
		return nil, false
	}
	for _, tok := range unknown {
		cand.Warnings = append(cand.Warnings, fmt.Sprintf("unknown glyph %q dropped", tok))
	}
	return resolved, true
}

// enforceCap truncates non-permission glyphs past the limit, keeping model
// order. Permission glyphs pass through untouched; the gate owns their fate.
func enforceCap(cand *Candidate, lex *lexicon.Lexicon, limit int) {
	kept := cand.Assignments[:0:0]
	nonPermission := 0
	truncated := 0

	for _, a := range cand.Assignments {
		g, ok := lex.Get(a.Symbol)
		if ok && !g.RequiresPermission {
			if nonPermission >= limit {
				truncated++
				continue
			}
			nonPermission++
		}
		kept = append(kept, a)
	}

	if truncated > 0 {
		cand.Violations = append(cand.Violations,
			fmt.Sprintf("glyph cap exceeded: %d non-permission glyphs truncated to %d", nonPermission+truncated, limit))
	}
	cand.Assignments = kept
}

func stripBullet(line string) string {
	line = strings.TrimLeft(line, "-*•>")
	line = strings.TrimSpace(line)
	// numbered list prefix: "1. " / "2) "
	if len(line) > 2 && line[0] >= '0' && line[0] <= '9' && (line[1] == '.' || line[1] == ')') {
		line = strings.TrimSpace(line[2:])
	}
	return line
}
