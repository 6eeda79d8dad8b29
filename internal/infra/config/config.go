package config

// Unified configuration: defaults -> config.yaml -> .env -> env vars
// -> flags. Flat env names (WALLET_TRACKING_INTERVAL_SECONDS etc.) are
// bound explicitly so deployments keep their existing variable names.

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Vybe     VybeConfig     `mapstructure:"vybe"`
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	App      AppConfig      `mapstructure:"app"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
}

// VybeConfig configures the Vybe Network API client.
type VybeConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	RequestTimeout int    `mapstructure:"request_timeout"` // seconds
	MaxRetries     int    `mapstructure:"max_retries"`
}

// TrackerConfig configures the poll scheduler.
type TrackerConfig struct {
	WalletIntervalSeconds int  `mapstructure:"wallet_interval_seconds"`
	WhaleIntervalSeconds  int  `mapstructure:"whale_interval_seconds"`
	FetchConcurrency      int  `mapstructure:"fetch_concurrency"`
	WalletCycleEnabled    bool `mapstructure:"wallet_cycle_enabled"`
	WhaleCycleEnabled     bool `mapstructure:"whale_cycle_enabled"`
	SeenRetentionHours    int  `mapstructure:"seen_retention_hours"` // 0 = auto
}

type AppConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// ValidationError is fatal at startup: the process must not start in
// a half-configured state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// WalletInterval returns the wallet cycle interval as a duration.
func (c *Config) WalletInterval() time.Duration {
	return time.Duration(c.Tracker.WalletIntervalSeconds) * time.Second
}

// WhaleInterval returns the whale cycle interval as a duration.
func (c *Config) WhaleInterval() time.Duration {
	return time.Duration(c.Tracker.WhaleIntervalSeconds) * time.Second
}

// LoadConfig reads configuration from all sources and validates it.
func LoadConfig() (*Config, error) {
	godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	// config.yaml is optional.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.ReadInConfig()

	v.AutomaticEnv()
	setupEnvAliases(v)
	setupFlags(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the startup invariants: positive intervals and a
// provider credential.
func Validate(cfg *Config) error {
	if cfg.Tracker.WalletIntervalSeconds <= 0 {
		return &ValidationError{Field: "WALLET_TRACKING_INTERVAL_SECONDS", Reason: fmt.Sprintf("must be > 0, got %d", cfg.Tracker.WalletIntervalSeconds)}
	}
	if cfg.Tracker.WhaleIntervalSeconds <= 0 {
		return &ValidationError{Field: "WHALE_ALERT_INTERVAL_SECONDS", Reason: fmt.Sprintf("must be > 0, got %d", cfg.Tracker.WhaleIntervalSeconds)}
	}
	if cfg.Vybe.APIKey == "" {
		return &ValidationError{Field: "VYBE_API_KEY", Reason: "missing provider credential"}
	}
	if cfg.Vybe.BaseURL == "" || !strings.HasPrefix(cfg.Vybe.BaseURL, "http") {
		return &ValidationError{Field: "VYBE_BASE_URL", Reason: "must be an http(s) URL"}
	}
	return nil
}

func setupEnvAliases(v *viper.Viper) {
	v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")

	v.BindEnv("vybe.api_key", "VYBE_API_KEY")
	v.BindEnv("vybe.base_url", "VYBE_BASE_URL")
	v.BindEnv("vybe.request_timeout", "VYBE_REQUEST_TIMEOUT")
	v.BindEnv("vybe.max_retries", "VYBE_MAX_RETRIES")

	v.BindEnv("tracker.wallet_interval_seconds", "WALLET_TRACKING_INTERVAL_SECONDS")
	v.BindEnv("tracker.whale_interval_seconds", "WHALE_ALERT_INTERVAL_SECONDS")
	v.BindEnv("tracker.fetch_concurrency", "FETCH_CONCURRENCY")
	v.BindEnv("tracker.wallet_cycle_enabled", "WALLET_CYCLE_ENABLED")
	v.BindEnv("tracker.whale_cycle_enabled", "WHALE_CYCLE_ENABLED")
	v.BindEnv("tracker.seen_retention_hours", "SEEN_RETENTION_HOURS")

	v.BindEnv("app.data_dir", "DATA_DIR")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.bot_token", "")

	v.SetDefault("vybe.api_key", "")
	v.SetDefault("vybe.base_url", "https://api.vybenetwork.xyz")
	v.SetDefault("vybe.request_timeout", 30)
	v.SetDefault("vybe.max_retries", 3)

	v.SetDefault("tracker.wallet_interval_seconds", 120)
	v.SetDefault("tracker.whale_interval_seconds", 120)
	v.SetDefault("tracker.fetch_concurrency", 4)
	v.SetDefault("tracker.wallet_cycle_enabled", true)
	v.SetDefault("tracker.whale_cycle_enabled", true)
	v.SetDefault("tracker.seen_retention_hours", 0)

	v.SetDefault("app.data_dir", "data")
}

func setupFlags(v *viper.Viper) {
	if pflag.Lookup("tracker.wallet_interval_seconds") == nil {
		pflag.String("telegram.bot_token", "", "Telegram bot token (env: TELEGRAM_BOT_TOKEN)")
		pflag.String("vybe.api_key", "", "Vybe Network API key (env: VYBE_API_KEY)")
		pflag.Int("tracker.wallet_interval_seconds", 120, "Wallet tracking poll interval in seconds")
		pflag.Int("tracker.whale_interval_seconds", 120, "Whale alert poll interval in seconds")
		pflag.Int("tracker.fetch_concurrency", 4, "Max concurrent provider fetches per tick")
		pflag.String("app.data_dir", "data", "Directory for persisted user state")
	}
	if !pflag.Parsed() {
		pflag.Parse()
	}
	v.BindPFlags(pflag.CommandLine)
}
