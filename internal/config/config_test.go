package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/pairdash/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func TestLoad_FromFile(t *testing.T) {
	cfgPath := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9090

storage:
  type: sqlite
  dsn: "/tmp/pairdash/state.db"

bridge:
  connect_latency: 250ms

signals:
  cooldown: 5m
  types: [exit]

alerts:
  rules:
    - name: deep_drawdown
      expr: "drawdown_pct > 20"
      for: 2m
      severity: warning
      message: "Drawdown above 20%"

notifiers:
  webhook:
    enabled: true
    url: "https://hooks.example.com/pairdash"
    headers:
      Authorization: "Bearer abc"
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Type != "sqlite" {
		t.Errorf("expected sqlite, got %s", cfg.Storage.Type)
	}
	if cfg.Bridge.ConnectLatency != 250*time.Millisecond {
		t.Errorf("expected 250ms connect latency, got %s", cfg.Bridge.ConnectLatency)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Bridge.DisconnectLatency != time.Second {
		t.Errorf("expected default disconnect latency, got %s", cfg.Bridge.DisconnectLatency)
	}
	if cfg.Scheduler.AccountRefresh != "@every 30s" {
		t.Errorf("expected default refresh spec, got %q", cfg.Scheduler.AccountRefresh)
	}
	if cfg.Signals.Cooldown != 5*time.Minute || len(cfg.Signals.Types) != 1 || cfg.Signals.Types[0] != "exit" {
		t.Errorf("unexpected signals config %+v", cfg.Signals)
	}
	if len(cfg.Alerts.Rules) != 1 || cfg.Alerts.Rules[0].Name != "deep_drawdown" || cfg.Alerts.Rules[0].For != 2*time.Minute {
		t.Errorf("unexpected alert rules %+v", cfg.Alerts.Rules)
	}
	if !cfg.Signals.Enabled {
		t.Error("expected signals enabled by default")
	}
	if cfg.Notifiers.Webhook.Headers["authorization"] == "" && cfg.Notifiers.Webhook.Headers["Authorization"] == "" {
		t.Errorf("expected webhook header, got %v", cfg.Notifiers.Webhook.Headers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PAIRDASH_SERVER_PORT", "7070")
	t.Setenv("PAIRDASH_STORAGE_TYPE", "memory")

	cfg, err := Load(writeConfig(t, "server:\n  host: localhost\n"))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("expected env storage type, got %s", cfg.Storage.Type)
	}
}

func TestLoad_ConnectionAlertsToggle(t *testing.T) {
	cfg, err := Load(writeConfig(t, "notifiers:\n  connection_alerts: false\n"))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Notifiers.ConnectionAlerts {
		t.Error("expected connection alerts disabled")
	}
	if cfg.Notifiers.InboxCapacity != 100 {
		t.Errorf("expected default inbox capacity, got %d", cfg.Notifiers.InboxCapacity)
	}
}

func TestLoad_ExpandsEnvReferences(t *testing.T) {
	t.Setenv("TEST_PAIRDASH_KEY", "s3cret")

	cfg, err := Load(writeConfig(t, "server:\n  api_key: \"${TEST_PAIRDASH_KEY}\"\n"))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.APIKey != "s3cret" {
		t.Errorf("expected expanded api key, got %q", cfg.Server.APIKey)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Bridge.ConnectLatency != 2*time.Second {
		t.Errorf("expected default connect latency 2s, got %s", cfg.Bridge.ConnectLatency)
	}
	if !cfg.Notifiers.ConnectionAlerts {
		t.Error("expected connection alerts enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr *core.Error
	}{
		{"valid config", func(c *Config) {}, nil},
		{"invalid port - zero", func(c *Config) { c.Server.Port = 0 }, core.ErrConfigInvalid},
		{"invalid port - too high", func(c *Config) { c.Server.Port = 70000 }, core.ErrConfigInvalid},
		{"unknown storage", func(c *Config) { c.Storage.Type = "redis" }, core.ErrConfigInvalid},
		{"localfs without path", func(c *Config) { c.Storage.Path = "" }, core.ErrConfigMissing},
		{"sqlite without dsn", func(c *Config) { c.Storage.Type = "sqlite" }, core.ErrConfigMissing},
		{"s3 without bucket", func(c *Config) { c.Storage.Type = "s3" }, core.ErrConfigMissing},
		{"unknown bridge", func(c *Config) { c.Bridge.Provider = "mt4" }, core.ErrConfigInvalid},
		{"negative latency", func(c *Config) { c.Indicators.Latency = -time.Second }, core.ErrConfigInvalid},
		{"bad cron spec", func(c *Config) { c.Scheduler.AccountRefresh = "every so often" }, core.ErrConfigInvalid},
		{"disabled job", func(c *Config) { c.Scheduler.IndicatorBroadcast = "" }, nil},
		{"negative cooldown", func(c *Config) { c.Signals.Cooldown = -time.Minute }, core.ErrConfigInvalid},
		{"unknown signal type", func(c *Config) { c.Signals.Types = []string{"wait"} }, core.ErrConfigInvalid},
		{"bad alert rule", func(c *Config) { c.Alerts.Rules[0].Expr = "margin is low" }, core.ErrConfigInvalid},
		{"no alert rules", func(c *Config) { c.Alerts.Rules = nil }, nil},
		{"webhook without url", func(c *Config) { c.Notifiers.Webhook.Enabled = true }, core.ErrConfigMissing},
		{"telegram without token", func(c *Config) { c.Notifiers.Telegram.Enabled = true }, core.ErrConfigMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %s, got %v", tt.wantErr.Code, err)
			}
		})
	}
}

func TestStorageConfig_KV(t *testing.T) {
	s := StorageConfig{Type: "s3", S3: S3Config{Bucket: "b", Prefix: "p"}}
	kc := s.KV()
	if kc.Type != "s3" || kc.S3.Bucket != "b" || kc.S3.Prefix != "p" {
		t.Errorf("unexpected kv config: %+v", kc)
	}
}
