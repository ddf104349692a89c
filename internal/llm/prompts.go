package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lazypower/autoglyph/internal/lexicon"
)

// maxContentChars caps how much document content is sent to the model.
const maxContentChars = 3000

// Generation settings shared by every provider. Low temperature keeps
// assignments stable across reruns of the same note; a full grammar response
// is a handful of short lines, well under the token cap.
const (
	genTemperature = 0.3
	genMaxTokens   = 512
)

// AssignmentPrompt renders document content, the glyph catalog, and the
// assignment rules into a single instruction prompt with a fixed output
// grammar. Returns an error only for empty content; an empty document must
// never reach the model.
func AssignmentPrompt(content string, lex *lexicon.Lexicon, shared bool, maxGlyphs int) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("empty document content")
	}
	content = capContent(content, maxContentChars)

	var catalog strings.Builder
	for _, g := range lex.Glyphs() {
		fmt.Fprintf(&catalog, "%s (%s): %s. Archetypes: %s.",
			g.Symbol, g.Name, strings.Join(g.Meanings, ", "), strings.Join(g.Archetypes, ", "))
		if g.RequiresPermission {
			catalog.WriteString(" [REQUIRES PERMISSION]")
		}
		catalog.WriteString("\n")
	}

	streamKind := "a personal reflection"
	if shared {
		streamKind = "a shared experience"
	}

	return fmt.Sprintf(`You are a glyph assignment system. Read the journal entry below and choose the glyphs that best represent its themes.

AVAILABLE GLYPHS:
%s
RULES:
- This entry is %s. Choose at most %d glyphs that do not require permission.
- Glyphs marked [REQUIRES PERMISSION] may only be chosen when the entry itself exhibits shared trauma, an explicit threshold or rite-of-passage narrative, or non-linear temporal content. Your choice will be independently verified.
- Give a short rationale for every glyph, grounded in the entry's content.

OUTPUT FORMAT:
Return one line per chosen glyph, nothing else:
SYMBOL :: rationale

Example:
∷ :: the entry circles back to the same argument three times

ENTRY:
%s`, catalog.String(), streamKind, maxGlyphs, content), nil
}

// capContent truncates content to maxLen bytes, backing up to the last space
// so the prompt never ends mid-word (or mid-rune).
func capContent(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	// Never cut inside a multi-byte rune; glyph-heavy notes are full of them.
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	truncated := s[:cut]
	if idx := strings.LastIndex(truncated, " "); idx > 0 && idx > maxLen-200 {
		truncated = truncated[:idx]
	}
	return strings.TrimSpace(truncated)
}
