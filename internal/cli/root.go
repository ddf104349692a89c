package cli

import (
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "autoglyph",
	Short: "Semantic glyph assignment for markdown vaults",
	Long:  "Autoglyph analyzes journal-style markdown notes with a local LLM and assigns thematic glyphs from a fixed lexicon, writing results into note front matter and an append-only assignment log.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.autoglyph/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(lexiconCmd)
}
