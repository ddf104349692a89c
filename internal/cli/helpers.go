package cli

import (
	"fmt"
	"os"

	"github.com/lazypower/autoglyph/internal/config"
	"github.com/lazypower/autoglyph/internal/lexicon"
	"github.com/lazypower/autoglyph/internal/store"
)

// loadConfig resolves the config file (flag, then default location) and
// applies env overrides.
func loadConfig() (config.Config, error) {
	path := cfgPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

// buildLexicon returns the configured lexicon file or the built-in catalog.
func buildLexicon(cfg config.Config) (*lexicon.Lexicon, error) {
	if cfg.Lexicon == "" {
		return lexicon.Default(), nil
	}
	return lexicon.LoadFile(cfg.Lexicon)
}

// openIndex opens the sqlite index. Callers that can run without one warn
// and continue on error.
func openIndex(cfg config.Config) (*store.DB, error) {
	path, err := cfg.IndexPath()
	if err != nil {
		return nil, err
	}
	return store.Open(path)
}

// requireVault resolves the vault root from flag or config, failing when
// neither is set.
func requireVault(flagVal string, cfg *config.Config) error {
	if flagVal != "" {
		cfg.Vault.Path = flagVal
	}
	if cfg.Vault.Path == "" {
		return fmt.Errorf("no vault configured: set vault.path, AUTOGLYPH_VAULT, or --vault")
	}
	if info, err := os.Stat(cfg.Vault.Path); err != nil || !info.IsDir() {
		return fmt.Errorf("vault path %s is not a directory", cfg.Vault.Path)
	}
	return nil
}
