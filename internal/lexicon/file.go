package lexicon

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// fileSchema is the on-disk lexicon format: a map keyed by glyph symbol.
//
//	glyphs:
//	  "∷":
//	    name: Recursion Glyph
//	    meanings: [loops, recursion]
//	    archetypes: [The Ouroboros]
//	    requires_permission: false
type fileSchema struct {
	Glyphs map[string]Glyph `yaml:"glyphs"`
}

// LoadFile reads a YAML lexicon file. Adding a glyph to the file requires no
// code change anywhere else.
func LoadFile(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: read %s: %w", path, err)
	}

	var schema fileSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("lexicon: decode %s: %w", path, err)
	}
	if len(schema.Glyphs) == 0 {
		return nil, fmt.Errorf("lexicon: %s defines no glyphs", path)
	}

	// Map iteration order is random; sort symbols so catalog order is stable
	// across runs.
	symbols := make([]string, 0, len(schema.Glyphs))
	for sym := range schema.Glyphs {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	glyphs := make([]Glyph, 0, len(symbols))
	for _, sym := range symbols {
		g := schema.Glyphs[sym]
		g.Symbol = sym
		glyphs = append(glyphs, g)
	}

	return New(glyphs)
}
