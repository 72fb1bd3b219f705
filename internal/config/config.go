// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Intel    IntelConfig    `mapstructure:"intel"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// IntelConfig holds the intelligence API configuration
type IntelConfig struct {
	APIURL              string        `mapstructure:"api_url"`
	Asset               string        `mapstructure:"asset"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRetries          int           `mapstructure:"max_retries"`
	RetryDelayBase      time.Duration `mapstructure:"retry_delay_base"`
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`
}

// AlertsConfig holds the evaluation thresholds and cooldown
type AlertsConfig struct {
	MarketScoreThreshold float64       `mapstructure:"market_score_threshold"`
	NewsScoreThreshold   float64       `mapstructure:"news_score_threshold"`
	WhaleFlowThreshold   float64       `mapstructure:"whale_flow_threshold"`
	Cooldown             time.Duration `mapstructure:"cooldown"`
}

// DispatchConfig holds delivery-level throttle configuration
type DispatchConfig struct {
	ChannelCooldown time.Duration `mapstructure:"channel_cooldown"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds storage and persistence configuration.
// An empty db_path keeps all state in memory for the process lifetime.
type StorageConfig struct {
	DBPath    string `mapstructure:"db_path"`
	MaxAlerts int    `mapstructure:"max_alerts"`
}

// MetricsConfig holds Prometheus listener configuration
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("INTELSENTRY")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Intel defaults
	v.SetDefault("intel.api_url", "http://127.0.0.1:8000")
	v.SetDefault("intel.asset", "BTC")
	v.SetDefault("intel.poll_interval", "5m")
	v.SetDefault("intel.timeout", "30s")
	v.SetDefault("intel.max_retries", 3)
	v.SetDefault("intel.retry_delay_base", "1s")
	v.SetDefault("intel.max_idle_conns", 10)
	v.SetDefault("intel.max_idle_conns_per_host", 10)
	v.SetDefault("intel.idle_conn_timeout", "90s")

	// Alert defaults
	v.SetDefault("alerts.market_score_threshold", 70.0)
	v.SetDefault("alerts.news_score_threshold", 8.0)
	v.SetDefault("alerts.whale_flow_threshold", 2000.0)
	v.SetDefault("alerts.cooldown", "30m")

	// Dispatch defaults
	v.SetDefault("dispatch.channel_cooldown", "15m")

	// Telegram defaults
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Storage defaults
	v.SetDefault("storage.db_path", "")
	v.SetDefault("storage.max_alerts", 1000)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", ":9109")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Intel config
	if c.Intel.APIURL == "" {
		return fmt.Errorf("intel.api_url is required")
	}
	if c.Intel.Asset == "" {
		return fmt.Errorf("intel.asset is required")
	}
	if c.Intel.PollInterval < 10*time.Second {
		return fmt.Errorf("intel.poll_interval must be at least 10 seconds")
	}
	if c.Intel.Timeout <= 0 {
		return fmt.Errorf("intel.timeout must be positive")
	}

	// Validate Alerts config
	if c.Alerts.MarketScoreThreshold <= 0 {
		return fmt.Errorf("alerts.market_score_threshold must be positive")
	}
	if c.Alerts.NewsScoreThreshold < 0 || c.Alerts.NewsScoreThreshold > 10 {
		return fmt.Errorf("alerts.news_score_threshold must be between 0 and 10")
	}
	if c.Alerts.WhaleFlowThreshold <= 0 {
		return fmt.Errorf("alerts.whale_flow_threshold must be positive")
	}
	if c.Alerts.Cooldown <= 0 {
		return fmt.Errorf("alerts.cooldown must be positive")
	}

	// Validate Dispatch config
	if c.Dispatch.ChannelCooldown <= 0 {
		return fmt.Errorf("dispatch.channel_cooldown must be positive")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Storage config
	if c.Storage.MaxAlerts < 0 {
		return fmt.Errorf("storage.max_alerts must not be negative")
	}

	// Validate Metrics config
	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics.listen_addr is required when metrics are enabled")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, console")
	}

	return nil
}
