package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var lexiconCmd = &cobra.Command{
	Use:   "lexicon",
	Short: "Show the glyph catalog",
	RunE:  runLexicon,
}

func runLexicon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lex, err := buildLexicon(cfg)
	if err != nil {
		return err
	}

	source := "built-in"
	if cfg.Lexicon != "" {
		source = cfg.Lexicon
	}
	fmt.Printf("Lexicon (%s): %d glyphs\n\n", source, lex.Len())

	for _, g := range lex.Glyphs() {
		marker := ""
		if g.RequiresPermission {
			marker = "  [requires permission]"
		}
		fmt.Printf("%s  %s%s\n", g.Symbol, g.Name, marker)
		fmt.Printf("    meanings:   %s\n", strings.Join(g.Meanings, ", "))
		fmt.Printf("    archetypes: %s\n", strings.Join(g.Archetypes, ", "))
	}
	return nil
}
