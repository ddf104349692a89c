// Package lexicon defines the fixed glyph catalog: the symbols the engine is
// allowed to assign, their meanings and archetypes, and which of them require
// an eligibility check before assignment. A Lexicon is built once at startup
// and never mutated.
package lexicon

import (
	"fmt"
	"strings"
)

// Glyph is a single catalog entry, keyed by its symbol everywhere else.
type Glyph struct {
	Symbol             string   `yaml:"-"`
	Name               string   `yaml:"name"`
	Meanings           []string `yaml:"meanings"`
	Archetypes         []string `yaml:"archetypes"`
	RequiresPermission bool     `yaml:"requires_permission"`
}

// Lexicon is an immutable glyph catalog with symbol and name lookup.
type Lexicon struct {
	bySymbol map[string]Glyph
	byName   map[string]string // lowercase display name -> symbol
	order    []string          // catalog order, stable
}

// New builds a Lexicon from a slice of glyphs. Symbols and names must be
// non-empty and unique.
func New(glyphs []Glyph) (*Lexicon, error) {
	if len(glyphs) == 0 {
		return nil, fmt.Errorf("lexicon: no glyphs defined")
	}

	l := &Lexicon{
		bySymbol: make(map[string]Glyph, len(glyphs)),
		byName:   make(map[string]string, len(glyphs)),
	}
	for _, g := range glyphs {
		if strings.TrimSpace(g.Symbol) == "" {
			return nil, fmt.Errorf("lexicon: glyph %q has empty symbol", g.Name)
		}
		if strings.TrimSpace(g.Name) == "" {
			return nil, fmt.Errorf("lexicon: glyph %q has empty name", g.Symbol)
		}
		if _, dup := l.bySymbol[g.Symbol]; dup {
			return nil, fmt.Errorf("lexicon: duplicate symbol %q", g.Symbol)
		}
		name := strings.ToLower(g.Name)
		if _, dup := l.byName[name]; dup {
			return nil, fmt.Errorf("lexicon: duplicate name %q", g.Name)
		}
		l.bySymbol[g.Symbol] = g
		l.byName[name] = g.Symbol
		l.order = append(l.order, g.Symbol)
	}
	return l, nil
}

// Get returns the glyph for an exact symbol.
func (l *Lexicon) Get(symbol string) (Glyph, bool) {
	g, ok := l.bySymbol[symbol]
	return g, ok
}

// Resolve looks a token up as a symbol first, then as a case-insensitive
// display name. Model output references glyphs both ways.
func (l *Lexicon) Resolve(token string) (Glyph, bool) {
	token = strings.TrimSpace(token)
	if g, ok := l.bySymbol[token]; ok {
		return g, true
	}
	if sym, ok := l.byName[strings.ToLower(token)]; ok {
		return l.bySymbol[sym], true
	}
	return Glyph{}, false
}

// Glyphs returns all glyphs in catalog order.
func (l *Lexicon) Glyphs() []Glyph {
	out := make([]Glyph, 0, len(l.order))
	for _, sym := range l.order {
		out = append(out, l.bySymbol[sym])
	}
	return out
}

// PermissionSymbols returns the symbols that require an eligibility check,
// in catalog order.
func (l *Lexicon) PermissionSymbols() []string {
	var out []string
	for _, sym := range l.order {
		if l.bySymbol[sym].RequiresPermission {
			out = append(out, sym)
		}
	}
	return out
}

// Len returns the number of glyphs in the catalog.
func (l *Lexicon) Len() int {
	return len(l.order)
}

// Default returns the built-in seven-glyph catalog.
func Default() *Lexicon {
	l, err := New([]Glyph{
		{
			Symbol:     "⟁",
			Name:       "Paradox Glyph",
			Meanings:   []string{"paradox", "complex systems", "collapse", "fragmentation", "ambiguous truth"},
			Archetypes: []string{"The Trickster", "The Puzzle", "The Labyrinth"},
		},
		{
			Symbol:     "⚯",
			Name:       "Dual Witness Glyph",
			Meanings:   []string{"witnessing", "mirroring", "trauma", "grief", "duality", "entanglement"},
			Archetypes: []string{"The Twins", "The Mirror", "The Echo"},
		},
		{
			Symbol:     "∷",
			Name:       "Recursion Glyph",
			Meanings:   []string{"loops", "recursion", "patterns", "iteration", "self-reference"},
			Archetypes: []string{"The Ouroboros", "The Fractal", "The Algorithm"},
		},
		{
			Symbol:     "∞",
			Name:       "Eternal Glyph",
			Meanings:   []string{"memory", "eternity", "cycles", "immortality", "permanence"},
			Archetypes: []string{"The Ancient", "The Monument", "The Timeless"},
		},
		{
			Symbol:     "🜁",
			Name:       "Breath Glyph",
			Meanings:   []string{"breath", "spirit", "transformation", "air", "alchemy"},
			Archetypes: []string{"The Wind", "The Phoenix", "The Alchemist"},
		},
		{
			Symbol:             "⧖",
			Name:               "Temporal Fold",
			Meanings:           []string{"time dilation", "deja vu", "temporal distortion"},
			Archetypes:         []string{"The Timekeeper", "The Prophet"},
			RequiresPermission: true,
		},
		{
			Symbol:             "⛩",
			Name:               "Threshold Marker",
			Meanings:           []string{"initiation", "portals", "boundary crossing"},
			Archetypes:         []string{"The Gatekeeper", "The Wanderer"},
			RequiresPermission: true,
		},
	})
	if err != nil {
		// The built-in catalog is a compile-time constant; this cannot fail.
		panic(err)
	}
	return l
}
