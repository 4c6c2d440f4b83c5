package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider kinds understood by the app wiring.
const (
	ProviderHash   = "hash"
	ProviderOpenAI = "openai"
)

// Config contains runtime configuration for faq-search.
type Config struct {
	AppName        string         `yaml:"app_name"`
	DBPath         string         `yaml:"db_path"`
	LogLevel       string         `yaml:"log_level"`
	SeedFile       string         `yaml:"seed_file"`
	DefaultTopK    int            `yaml:"default_top_k"`
	Prefilter      bool           `yaml:"prefilter"`
	PrefilterLimit int            `yaml:"prefilter_limit"`
	Ranking        RankingConfig  `yaml:"ranking"`
	Provider       ProviderConfig `yaml:"provider"`
}

// RankingConfig controls how similarity calls are scheduled.
type RankingConfig struct {
	Concurrency       int `yaml:"concurrency"`
	ProviderTimeoutMS int `yaml:"provider_timeout_ms"`
}

// ProviderTimeout returns the per-call deadline, zero when disabled.
func (r RankingConfig) ProviderTimeout() time.Duration {
	if r.ProviderTimeoutMS <= 0 {
		return 0
	}
	return time.Duration(r.ProviderTimeoutMS) * time.Millisecond
}

// ProviderConfig selects and tunes the similarity provider.
type ProviderConfig struct {
	Kind       string `yaml:"kind"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	APIKeyEnv  string `yaml:"api_key_env"`
	User       string `yaml:"user"`
}

// APIKey reads the provider key from the configured environment variable.
func (p ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(p.APIKeyEnv))
}

// Default returns a Config populated with safe defaults.
func Default() Config {
	return Config{
		AppName:        "faq-search",
		DBPath:         filepath.Join(userHomeDir(), ".faq-search", "faq_database.db"),
		LogLevel:       "info",
		DefaultTopK:    10,
		PrefilterLimit: 100,
		Ranking: RankingConfig{
			Concurrency:       4,
			ProviderTimeoutMS: 10000,
		},
		Provider: ProviderConfig{
			Kind:       ProviderHash,
			Dimensions: 1024,
			CacheSize:  4096,
			Model:      "text-embedding-3-small",
			APIKeyEnv:  "OPENAI_API_KEY",
		},
	}
}

// Load loads config from disk; if path does not exist, default config is returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks configuration sanity.
func (c *Config) Validate() error {
	if c.AppName == "" {
		return errors.New("app_name must not be empty")
	}
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if c.DefaultTopK < 0 {
		return errors.New("default_top_k must be >= 0")
	}
	if c.PrefilterLimit <= 0 {
		return errors.New("prefilter_limit must be > 0")
	}
	if c.Ranking.Concurrency < 0 {
		return errors.New("ranking.concurrency must be >= 0")
	}
	if c.Ranking.ProviderTimeoutMS < 0 {
		return errors.New("ranking.provider_timeout_ms must be >= 0")
	}
	switch c.Provider.Kind {
	case ProviderHash:
		if c.Provider.Dimensions <= 0 {
			return errors.New("provider.dimensions must be > 0")
		}
	case ProviderOpenAI:
		if c.Provider.Model == "" {
			return errors.New("provider.model must not be empty")
		}
		if c.Provider.Dimensions < 0 {
			return errors.New("provider.dimensions must be >= 0")
		}
	default:
		return fmt.Errorf("unknown provider.kind %q", c.Provider.Kind)
	}
	if c.Provider.CacheSize < 0 {
		return errors.New("provider.cache_size must be >= 0")
	}
	return nil
}

// EnsurePaths creates parent directories for config-managed paths.
func (c *Config) EnsurePaths() error {
	c.DBPath = ExpandPath(c.DBPath)
	c.SeedFile = ExpandPath(c.SeedFile)
	parent := filepath.Dir(c.DBPath)
	if parent == "." {
		return nil
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create db parent dir: %w", err)
	}
	return nil
}

// ExpandPath expands "~/" to the current user's home directory.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p == "~" {
		return userHomeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(userHomeDir(), p[2:])
	}
	return p
}

func userHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
