package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8090 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8090)
	}
	if !cfg.API.Metrics {
		t.Error("API.Metrics should be true by default")
	}
	if cfg.RateLimit.PostbackPerMinute != 60 {
		t.Errorf("RateLimit.PostbackPerMinute = %d, want 60", cfg.RateLimit.PostbackPerMinute)
	}
	if cfg.RateLimit.APIPerMinute != 100 {
		t.Errorf("RateLimit.APIPerMinute = %d, want 100", cfg.RateLimit.APIPerMinute)
	}
	if cfg.Audit.BufferSize != 256 {
		t.Errorf("Audit.BufferSize = %d, want 256", cfg.Audit.BufferSize)
	}
	if cfg.Economy.LargeSpendThreshold != 5000 {
		t.Errorf("Economy.LargeSpendThreshold = %d, want 5000", cfg.Economy.LargeSpendThreshold)
	}
	if cfg.Economy.HighLootThreshold != 5000 {
		t.Errorf("Economy.HighLootThreshold = %d, want 5000", cfg.Economy.HighLootThreshold)
	}
	if cfg.Postback.Key != "" {
		t.Errorf("Postback.Key should be empty by default, got %q", cfg.Postback.Key)
	}
	if cfg.Alerts.DiscordWebhookURL != "" {
		t.Errorf("Alerts.DiscordWebhookURL should be empty by default, got %q", cfg.Alerts.DiscordWebhookURL)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Port != 8090 {
		t.Errorf("API.Port = %d, want default 8090", cfg.API.Port)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[api]
host = "0.0.0.0"
port = 9000
metrics = false

[postback]
key = "file-key"

[rate_limit]
postback_per_minute = 10
api_per_minute = 20

[economy]
large_spend_threshold = 100
high_loot_threshold = 200
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host = %q, want 0.0.0.0", cfg.API.Host)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
	if cfg.API.Metrics {
		t.Error("API.Metrics should be false")
	}
	if cfg.Postback.Key != "file-key" {
		t.Errorf("Postback.Key = %q, want file-key", cfg.Postback.Key)
	}
	if cfg.RateLimit.PostbackPerMinute != 10 {
		t.Errorf("RateLimit.PostbackPerMinute = %d, want 10", cfg.RateLimit.PostbackPerMinute)
	}
	if cfg.Economy.LargeSpendThreshold != 100 {
		t.Errorf("Economy.LargeSpendThreshold = %d, want 100", cfg.Economy.LargeSpendThreshold)
	}
	// Unset sections keep defaults.
	if cfg.Audit.BufferSize != 256 {
		t.Errorf("Audit.BufferSize = %d, want default 256", cfg.Audit.BufferSize)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[postback]
key = "file-key"
admin_token = "file-token"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("POSTBACK_KEY", "env-key")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/x")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Postback.Key != "env-key" {
		t.Errorf("Postback.Key = %q, want env override env-key", cfg.Postback.Key)
	}
	if cfg.Postback.AdminToken != "file-token" {
		t.Errorf("Postback.AdminToken = %q, want file value file-token", cfg.Postback.AdminToken)
	}
	if cfg.Alerts.DiscordWebhookURL != "https://discord.com/api/webhooks/1/x" {
		t.Errorf("Alerts.DiscordWebhookURL = %q", cfg.Alerts.DiscordWebhookURL)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad port", "[api]\nport = 70000\n"},
		{"zero postback rate", "[rate_limit]\npostback_per_minute = 0\n"},
		{"zero api rate", "[rate_limit]\napi_per_minute = 0\n"},
		{"zero audit buffer", "[audit]\nbuffer_size = 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load should fail validation")
			}
		})
	}
}

func TestAddr(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Addr(); got != "127.0.0.1:8090" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8090", got)
	}
}
