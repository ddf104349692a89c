package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lazypower/autoglyph/internal/audit"
	"github.com/lazypower/autoglyph/internal/engine"
	"github.com/lazypower/autoglyph/internal/llm"
	"github.com/lazypower/autoglyph/internal/watch"
)

var watchVault string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reprocess notes as they change",
	Long:  "Watches the vault for markdown changes and runs the glyph engine on each changed note after it settles.",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchVault, "vault", "", "vault root directory")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requireVault(watchVault, &cfg); err != nil {
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
	if idx, err := openIndex(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: index unavailable (%v), fingerprint skips disabled\n", err)
	} else {
		eng.SetIndex(idx)
		defer idx.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "autoglyph watching vault: %s\n", cfg.Vault.Path)

	err = watch.New(eng, cfg.Vault.Path, cfg.Vault.Ignore).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
