package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/newthinker/pairdash/internal/alert"
	"github.com/newthinker/pairdash/internal/core"
	"github.com/newthinker/pairdash/internal/storage/kv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. PAIRDASH_SERVER_PORT.
const EnvPrefix = "PAIRDASH"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Bridge     BridgeConfig     `mapstructure:"bridge"`
	Indicators IndicatorsConfig `mapstructure:"indicators"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Signals    SignalsConfig    `mapstructure:"signals"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Notifiers  NotifiersConfig  `mapstructure:"notifiers"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	APIKey          string        `mapstructure:"api_key"`
	JobTTLHours     int           `mapstructure:"job_ttl_hours"`
	MaxJobs         int           `mapstructure:"max_jobs"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	Encoding    string `mapstructure:"encoding"`
}

type StorageConfig struct {
	Type string   `mapstructure:"type"` // "memory", "localfs", "s3" or "sqlite"
	Path string   `mapstructure:"path"` // For localfs
	DSN  string   `mapstructure:"dsn"`  // For sqlite
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// KV converts the section into a kv.Config.
func (s StorageConfig) KV() kv.Config {
	return kv.Config{
		Type: s.Type,
		Path: s.Path,
		DSN:  s.DSN,
		S3: kv.S3Config{
			Bucket:    s.S3.Bucket,
			Endpoint:  s.S3.Endpoint,
			Region:    s.S3.Region,
			AccessKey: s.S3.AccessKey,
			SecretKey: s.S3.SecretKey,
			Prefix:    s.S3.Prefix,
		},
	}
}

// BridgeConfig holds terminal bridge settings.
type BridgeConfig struct {
	Provider          string        `mapstructure:"provider"`
	ConnectLatency    time.Duration `mapstructure:"connect_latency"`
	DisconnectLatency time.Duration `mapstructure:"disconnect_latency"`
	AccountLatency    time.Duration `mapstructure:"account_latency"`
}

// IndicatorsConfig holds indicator service settings.
type IndicatorsConfig struct {
	Latency time.Duration `mapstructure:"latency"`
}

// SchedulerConfig holds cron specs for background jobs. An empty spec
// disables that job.
type SchedulerConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	AccountRefresh     string `mapstructure:"account_refresh"`
	IndicatorBroadcast string `mapstructure:"indicator_broadcast"`
}

// SignalsConfig controls signal notifications from the broadcast job.
type SignalsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Cooldown time.Duration `mapstructure:"cooldown"`
	Types    []string      `mapstructure:"types"`
}

// AlertsConfig holds account alert rules checked after each refresh.
type AlertsConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
	Rules    []alert.Rule  `mapstructure:"rules"`
}

// NotifiersConfig configures notification channels. ConnectionAlerts
// gates the connect and disconnect notices sent by the session.
type NotifiersConfig struct {
	InboxCapacity    int            `mapstructure:"inbox_capacity"`
	ConnectionAlerts bool           `mapstructure:"connection_alerts"`
	Webhook          WebhookConfig  `mapstructure:"webhook"`
	Telegram         TelegramConfig `mapstructure:"telegram"`
}

type WebhookConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file over the defaults. A .env file in the
// working directory is loaded first when present. An empty path uses
// defaults and environment only.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every scalar key so AutomaticEnv can override it
// even when the file does not mention it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.api_key", d.Server.APIKey)
	v.SetDefault("server.job_ttl_hours", d.Server.JobTTLHours)
	v.SetDefault("server.max_jobs", d.Server.MaxJobs)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("log.encoding", d.Log.Encoding)

	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.dsn", d.Storage.DSN)
	v.SetDefault("storage.s3.bucket", d.Storage.S3.Bucket)
	v.SetDefault("storage.s3.endpoint", d.Storage.S3.Endpoint)
	v.SetDefault("storage.s3.region", d.Storage.S3.Region)
	v.SetDefault("storage.s3.access_key", d.Storage.S3.AccessKey)
	v.SetDefault("storage.s3.secret_key", d.Storage.S3.SecretKey)
	v.SetDefault("storage.s3.prefix", d.Storage.S3.Prefix)

	v.SetDefault("bridge.provider", d.Bridge.Provider)
	v.SetDefault("bridge.connect_latency", d.Bridge.ConnectLatency)
	v.SetDefault("bridge.disconnect_latency", d.Bridge.DisconnectLatency)
	v.SetDefault("bridge.account_latency", d.Bridge.AccountLatency)

	v.SetDefault("indicators.latency", d.Indicators.Latency)

	v.SetDefault("scheduler.enabled", d.Scheduler.Enabled)
	v.SetDefault("scheduler.account_refresh", d.Scheduler.AccountRefresh)
	v.SetDefault("scheduler.indicator_broadcast", d.Scheduler.IndicatorBroadcast)

	v.SetDefault("signals.enabled", d.Signals.Enabled)
	v.SetDefault("signals.cooldown", d.Signals.Cooldown)
	v.SetDefault("signals.types", d.Signals.Types)

	v.SetDefault("alerts.cooldown", d.Alerts.Cooldown)

	v.SetDefault("notifiers.inbox_capacity", d.Notifiers.InboxCapacity)
	v.SetDefault("notifiers.connection_alerts", d.Notifiers.ConnectionAlerts)
	v.SetDefault("notifiers.webhook.enabled", d.Notifiers.Webhook.Enabled)
	v.SetDefault("notifiers.webhook.url", d.Notifiers.Webhook.URL)
	v.SetDefault("notifiers.telegram.enabled", d.Notifiers.Telegram.Enabled)
	v.SetDefault("notifiers.telegram.bot_token", d.Notifiers.Telegram.BotToken)
	v.SetDefault("notifiers.telegram.chat_id", d.Notifiers.Telegram.ChatID)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			JobTTLHours:     1,
			MaxJobs:         100,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			Type: "localfs",
			Path: "data",
		},
		Bridge: BridgeConfig{
			Provider:          "sim",
			ConnectLatency:    2 * time.Second,
			DisconnectLatency: time.Second,
			AccountLatency:    500 * time.Millisecond,
		},
		Indicators: IndicatorsConfig{
			Latency: time.Second,
		},
		Scheduler: SchedulerConfig{
			Enabled:            true,
			AccountRefresh:     "@every 30s",
			IndicatorBroadcast: "@every 60s",
		},
		Signals: SignalsConfig{
			Enabled:  true,
			Cooldown: 15 * time.Minute,
			Types:    []string{"entry_long_short", "entry_short_long", "exit"},
		},
		Alerts: AlertsConfig{
			Cooldown: 5 * time.Minute,
			Rules: []alert.Rule{{
				Name:     "low_margin_level",
				Expr:     "margin_level < 150",
				Severity: "critical",
				Message:  "Margin level below 150%",
			}},
		},
		Notifiers: NotifiersConfig{
			InboxCapacity:    100,
			ConnectionAlerts: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxJobs < 0 || c.Server.JobTTLHours < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("job limits cannot be negative"))
	}

	// Storage validation
	switch c.Storage.Type {
	case "", "memory":
	case "localfs":
		if c.Storage.Path == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("storage path required for localfs"))
		}
	case "sqlite":
		if c.Storage.DSN == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("storage dsn required for sqlite"))
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("storage s3 bucket required for s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown storage type %q", c.Storage.Type))
	}

	// Bridge validation
	if c.Bridge.Provider != "sim" {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown bridge provider %q", c.Bridge.Provider))
	}
	if c.Bridge.ConnectLatency < 0 || c.Bridge.DisconnectLatency < 0 || c.Bridge.AccountLatency < 0 || c.Indicators.Latency < 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("latencies cannot be negative"))
	}

	// Scheduler validation
	for name, spec := range map[string]string{
		"account_refresh":     c.Scheduler.AccountRefresh,
		"indicator_broadcast": c.Scheduler.IndicatorBroadcast,
	} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("scheduler %s: %w", name, err))
		}
	}

	// Signals validation
	if c.Signals.Cooldown < 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("signals cooldown cannot be negative"))
	}
	for _, t := range c.Signals.Types {
		switch t {
		case "entry_long_short", "entry_short_long", "exit":
		default:
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown signal type %q", t))
		}
	}

	// Alerts validation
	if c.Alerts.Cooldown < 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("alerts cooldown cannot be negative"))
	}
	for i := range c.Alerts.Rules {
		if err := c.Alerts.Rules[i].Validate(); err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
	}

	// Notifier validation
	if c.Notifiers.InboxCapacity < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("inbox_capacity cannot be negative, got %d", c.Notifiers.InboxCapacity))
	}
	if c.Notifiers.Webhook.Enabled && c.Notifiers.Webhook.URL == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("webhook url required when webhook is enabled"))
	}
	if c.Notifiers.Telegram.Enabled && (c.Notifiers.Telegram.BotToken == "" || c.Notifiers.Telegram.ChatID == "") {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("telegram bot_token and chat_id required when telegram is enabled"))
	}

	return nil
}
