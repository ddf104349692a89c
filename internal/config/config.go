// Package config holds all autoglyph configuration: vault location, log
// paths, LLM provider settings, and the HTTP API bind address.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all autoglyph configuration.
type Config struct {
	Vault   VaultConfig  `yaml:"vault"`
	Log     LogConfig    `yaml:"log"`
	Lexicon string       `yaml:"lexicon"` // optional YAML lexicon file; empty = built-in catalog
	LLM     LLMConfig    `yaml:"llm"`
	Server  ServerConfig `yaml:"server"`
}

type VaultConfig struct {
	Path   string   `yaml:"path"`
	Ignore []string `yaml:"ignore"` // doublestar patterns, relative to the vault root
}

type LogConfig struct {
	Path      string `yaml:"path"`       // JSONL assignment log; empty = <vault>/glyph_assignments.jsonl
	IndexPath string `yaml:"index_path"` // sqlite index; empty = ~/.autoglyph/index.db
}

type LLMConfig struct {
	Provider     string `yaml:"provider"`     // "ollama", "llamacpp", "anthropic"
	Model        string `yaml:"model"`        // anthropic model name
	OllamaURL    string `yaml:"ollama_url"`
	OllamaModel  string `yaml:"ollama_model"` // e.g. "llama3.2"
	LlamaBinary  string `yaml:"llama_binary"` // llama.cpp CLI binary, e.g. "llama-cli"
	LlamaModel   string `yaml:"llama_model"`  // path to a GGUF model file
	AnthropicKey string `yaml:"anthropic_key"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Vault: VaultConfig{
			Ignore: []string{".obsidian/**", ".trash/**", "templates/**"},
		},
		LLM: LLMConfig{
			Provider: "ollama",
		},
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37881,
		},
	}
}

// Load reads a YAML config file over the defaults, then applies environment
// overrides. A missing file is not an error; env overrides still apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// DefaultPath returns the default config file location: ~/.autoglyph/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".autoglyph", "config.yaml")
}

func (c *Config) applyEnv() {
	if v := os.Getenv("AUTOGLYPH_VAULT"); v != "" {
		c.Vault.Path = v
	}
	if v := os.Getenv("AUTOGLYPH_LOG"); v != "" {
		c.Log.Path = v
	}
	if v := os.Getenv("AUTOGLYPH_INDEX"); v != "" {
		c.Log.IndexPath = v
	}
	if v := os.Getenv("AUTOGLYPH_LEXICON"); v != "" {
		c.Lexicon = v
	}
	if v := os.Getenv("AUTOGLYPH_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		c.LLM.OllamaURL = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.LLM.AnthropicKey = v
	}
}

// LogPath resolves the assignment log location, defaulting to a file inside
// the vault so log and notes travel together.
func (c *Config) LogPath() string {
	if c.Log.Path != "" {
		return c.Log.Path
	}
	return filepath.Join(c.Vault.Path, "glyph_assignments.jsonl")
}

// IndexPath resolves the sqlite index location: ~/.autoglyph/index.db
func (c *Config) IndexPath() (string, error) {
	if c.Log.IndexPath != "" {
		return c.Log.IndexPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".autoglyph", "index.db"), nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
