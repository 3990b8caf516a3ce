package config

import (
	"time"
)

// Config represents the complete application configuration.
// Values merge in three layers: embedded defaults, the user config file
// (XDG paths), then ZOOCART_* environment variables and runtime overrides.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	AI       AIConfig       `mapstructure:"ai"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Health   HealthConfig   `mapstructure:"health"`
	Debug    DebugConfig    `mapstructure:"debug"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// AIConfig contains the upstream completion provider and quota settings.
type AIConfig struct {
	Provider     string        `mapstructure:"provider"`
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	SystemPrompt string        `mapstructure:"system_prompt"`
	HistoryLimit int           `mapstructure:"history_limit"`
	Quota        QuotaConfig   `mapstructure:"quota"`
}

// QuotaConfig sizes the dual sliding-window budget. Both windows guard the
// same shared upstream API key.
type QuotaConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	PerDay    int `mapstructure:"per_day"`
}

// DeliveryConfig contains the quote aggregator and per-carrier settings.
type DeliveryConfig struct {
	CarrierTimeout time.Duration  `mapstructure:"carrier_timeout"`
	CDEK           CDEKConfig     `mapstructure:"cdek"`
	Boxberry       BoxberryConfig `mapstructure:"boxberry"`
	FivePost       FivePostConfig `mapstructure:"fivepost"`
}

// CDEKConfig contains CDEK tariff API credentials.
type CDEKConfig struct {
	BaseURL               string  `mapstructure:"base_url"`
	Account               string  `mapstructure:"account"`
	Secret                string  `mapstructure:"secret"`
	FreeShippingThreshold float64 `mapstructure:"free_shipping_threshold"`
}

// BoxberryConfig contains Boxberry API credentials.
type BoxberryConfig struct {
	BaseURL               string  `mapstructure:"base_url"`
	Token                 string  `mapstructure:"token"`
	FreeShippingThreshold float64 `mapstructure:"free_shipping_threshold"`
}

// FivePostConfig contains 5Post API credentials.
type FivePostConfig struct {
	BaseURL               string  `mapstructure:"base_url"`
	APIKey                string  `mapstructure:"api_key"`
	FreeShippingThreshold float64 `mapstructure:"free_shipping_threshold"`
}

// LoggingConfig contains logging configuration
// Supports progressive logging profiles:
// - SIMPLE: Console output only, minimal configuration (CLI tools)
// - STRUCTURED: Structured sinks, correlation IDs (API services)
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	// Enabled controls whether health endpoints are exposed
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	// Enabled controls whether debug mode is active
	Enabled bool `mapstructure:"enabled"`

	// PprofEnabled controls whether pprof endpoints are exposed
	// WARNING: Only enable in development/staging environments
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}
