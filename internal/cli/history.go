package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lazypower/autoglyph/internal/audit"
)

var (
	historyLimit    int
	historyFailures bool
)

var historyCmd = &cobra.Command{
	Use:   "history [path]",
	Short: "Show assignment history",
	Long:  "With no argument, shows the latest assignment state per note. With a note path, shows that note's full record history, newest first.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "maximum number of records")
	historyCmd.Flags().BoolVar(&historyFailures, "failures", false, "show recent failures across all notes")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openIndex(cfg)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer db.Close()

	if historyFailures {
		records, err := db.RecentFailures(historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No failures recorded.")
			return nil
		}
		for _, rec := range records {
			fmt.Printf("%s  %s  %s\n", rec.Timestamp.Format("2006-01-02 15:04"), rec.Path, rec.Reason)
			if rec.Error != "" {
				fmt.Printf("    %s\n", rec.Error)
			}
		}
		return nil
	}

	if len(args) == 1 {
		records, err := db.History(args[0], historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Printf("No records for %s\n", args[0])
			return nil
		}
		for _, rec := range records {
			printRecord(rec)
		}
		return nil
	}

	states, err := db.LatestAssignments()
	if err != nil {
		return err
	}
	if len(states) == 0 {
		fmt.Println("No assignments recorded. Run `autoglyph run` first.")
		return nil
	}
	for _, s := range states {
		glyphs := strings.Join(s.Glyphs, " ")
		if glyphs == "" {
			glyphs = "-"
		}
		fmt.Printf("%-9s %-20s %s\n", s.Action, glyphs, s.Path)
	}
	return nil
}

func printRecord(rec audit.Record) {
	fmt.Printf("%s  %s", rec.Timestamp.Format("2006-01-02 15:04:05"), rec.Action)
	if rec.Reason != "" {
		fmt.Printf(" (%s)", rec.Reason)
	}
	fmt.Println()
	if len(rec.Glyphs) > 0 {
		fmt.Printf("    glyphs: %s\n", strings.Join(rec.Glyphs, " "))
	}
	for sym, why := range rec.Rationales {
		fmt.Printf("    %s: %s\n", sym, why)
	}
	for _, d := range rec.Denials {
		fmt.Printf("    denied: %s\n", d)
	}
	for _, v := range rec.Violations {
		fmt.Printf("    violation: %s\n", v)
	}
	if rec.Error != "" {
		fmt.Printf("    error: %s\n", rec.Error)
	}
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the sqlite index from the assignment log",
	Long:  "Replays the JSONL assignment log (the ground truth) into a fresh sqlite index.",
	RunE:  runReindex,
}

func runReindex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	records, err := audit.ReadAll(cfg.LogPath())
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}

	db, err := openIndex(cfg)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer db.Close()

	if err := db.Reindex(records); err != nil {
		return err
	}

	fmt.Printf("Reindexed %d records from %s\n", len(records), cfg.LogPath())
	return nil
}
