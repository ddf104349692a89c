package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lazypower/autoglyph/internal/audit"
	"github.com/lazypower/autoglyph/internal/engine"
	"github.com/lazypower/autoglyph/internal/llm"
)

var (
	runVault string
	runForce bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every note in the vault",
	Long:  "Walks the vault, assigns glyphs to each unprocessed note, updates front matter, and appends one record per note to the assignment log.",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runVault, "vault", "", "vault root directory")
	runCmd.Flags().BoolVar(&runForce, "force", false, "reprocess notes whose content is unchanged")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requireVault(runVault, &cfg); err != nil {
		return err
	}

	lex, err := buildLexicon(cfg)
	if err != nil {
		return err
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return fmt.Errorf("configure LLM: %w", err)
	}

	alog, err := audit.Open(cfg.LogPath())
	if err != nil {
		return fmt.Errorf("open assignment log: %w", err)
	}
	defer alog.Close()

	eng := engine.New(client, lex, alog)
	eng.Force = runForce

	if idx, err := openIndex(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: index unavailable (%v), fingerprint skips disabled\n", err)
	} else {
		eng.SetIndex(idx)
		defer idx.Close()
	}

	// Interrupt stops between documents; no half-processed note survives.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "autoglyph processing vault: %s\n", cfg.Vault.Path)
	fmt.Fprintf(os.Stderr, "  llm: %s\n", cfg.LLM.Provider)
	fmt.Fprintf(os.Stderr, "  log: %s\n", cfg.LogPath())

	sum, runErr := eng.Run(ctx, cfg.Vault.Path, cfg.Vault.Ignore)
	if sum != nil {
		fmt.Println(sum.String())
	}
	return runErr
}
