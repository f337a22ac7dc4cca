// Package daemon holds the long-running server configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Config is the full daemon configuration, loaded from a TOML file with
// environment-variable overrides for secrets.
type Config struct {
	API       APIConfig       `toml:"api"`
	Storage   StorageConfig   `toml:"storage"`
	Postback  PostbackConfig  `toml:"postback"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Audit     AuditConfig     `toml:"audit"`
	Alerts    AlertsConfig    `toml:"alerts"`
	Economy   EconomyConfig   `toml:"economy"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// StorageConfig configures the sqlite database.
type StorageConfig struct {
	Path string `toml:"path"`
}

// PostbackConfig holds the game-server shared secret and the operator
// admin token. Both are secrets; prefer the env overrides over the file.
type PostbackConfig struct {
	Key        string `toml:"key" env:"POSTBACK_KEY"`
	AdminToken string `toml:"admin_token" env:"ADMIN_TOKEN"`
}

// RateLimitConfig sets the per-minute admission budgets.
type RateLimitConfig struct {
	PostbackPerMinute int `toml:"postback_per_minute"`
	APIPerMinute      int `toml:"api_per_minute"`
}

// AuditConfig configures the async audit writer.
type AuditConfig struct {
	BufferSize int `toml:"buffer_size"`
}

// AlertsConfig configures the Discord notification channel. An empty
// webhook URL disables alerts entirely.
type AlertsConfig struct {
	DiscordWebhookURL string `toml:"discord_webhook_url" env:"DISCORD_WEBHOOK_URL"`
}

// EconomyConfig sets the alerting thresholds on economy mutations.
type EconomyConfig struct {
	LargeSpendThreshold int64 `toml:"large_spend_threshold"`
	HighLootThreshold   int64 `toml:"high_loot_threshold"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8090,
			Metrics: true,
		},
		Storage: StorageConfig{
			Path: defaultDBPath(),
		},
		RateLimit: RateLimitConfig{
			PostbackPerMinute: 60,
			APIPerMinute:      100,
		},
		Audit: AuditConfig{
			BufferSize: 256,
		},
		Economy: EconomyConfig{
			LargeSpendThreshold: 5000,
			HighLootThreshold:   5000,
		},
	}
}

// Load reads the config file at path (defaults apply for a missing file),
// then applies environment overrides for the secret fields.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	if err := env.Parse(&cfg.Postback); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := env.Parse(&cfg.Alerts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api port %d", c.API.Port)
	}
	if c.RateLimit.PostbackPerMinute < 1 {
		return fmt.Errorf("postback_per_minute must be positive")
	}
	if c.RateLimit.APIPerMinute < 1 {
		return fmt.Errorf("api_per_minute must be positive")
	}
	if c.Audit.BufferSize < 1 {
		return fmt.Errorf("audit buffer_size must be positive")
	}
	return nil
}

// Addr returns the host:port the API listener binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// DefaultConfigPath returns ~/.dragonfall/config.toml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".dragonfall", "config.toml")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "dragonfall.db"
	}
	return filepath.Join(home, ".dragonfall", "dragonfall.db")
}
