package engine

import (
	"time"

	"github.com/lazypower/autoglyph/internal/lexicon"
)

// The four header keys the engine owns. Everything else in a document header
// passes through a merge untouched.
const (
	KeyGlyphstream   = "glyphstream"
	KeyGlyphMetadata = "glyph_metadata"
	KeyLastProcessed = "last_processed"
	KeyStreamType    = "stream_type"
)

// Merge combines a validated result with a document's existing header. It is
// a pure function: the input header is never mutated, every field outside
// the four owned keys carries over unchanged regardless of type or shape,
// and the owned keys are fully overwritten with freshly computed values.
func Merge(header map[string]any, res *Result, lex *lexicon.Lexicon, now time.Time) map[string]any {
	merged := make(map[string]any, len(header)+4)
	for k, v := range header {
		switch k {
		case KeyGlyphstream, KeyGlyphMetadata, KeyLastProcessed, KeyStreamType:
			// fully replaced below
		default:
			merged[k] = v
		}
	}

	meta := make(map[string]any, len(res.Assignments))
	for _, a := range res.Assignments {
		g, ok := lex.Get(a.Symbol)
		if !ok {
			continue
		}
		meta[a.Symbol] = map[string]any{
			"name":       g.Name,
			"meanings":   append([]string(nil), g.Meanings...),
			"archetypes": append([]string(nil), g.Archetypes...),
			"rationale":  a.Rationale,
		}
	}

	merged[KeyGlyphstream] = res.Symbols()
	merged[KeyGlyphMetadata] = meta
	merged[KeyLastProcessed] = now.UTC().Format(time.RFC3339)
	merged[KeyStreamType] = res.StreamType
	return merged
}
