// Package config provides centralized configuration management for ZooCart.
// Values merge in three layers:
// Layer 1: embedded defaults (defaults.yaml)
// Layer 2: user overrides from XDG config paths
// Layer 3: ZOOCART_* environment variables and runtime overrides
package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

const (
	appName   = "zoocart"
	envPrefix = "ZOOCART_"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: ZOOCART_{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// Load loads configuration using the three-layer pattern.
// This function is safe to call multiple times (e.g., for config reload).
func Load(_ context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	merged := map[string]any{}
	if err := yaml.Unmarshal(defaultsYAML, &merged); err != nil {
		return nil, fmt.Errorf("failed to parse embedded defaults: %w", err)
	}

	for _, path := range getUserConfigPaths() {
		layer, err := loadYAMLFile(path)
		if err != nil {
			return nil, err
		}
		if layer != nil {
			mergeMaps(merged, layer)
			break
		}
	}

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	mergeMaps(merged, envOverrides)

	for _, overrides := range runtimeOverrides {
		mergeMaps(merged, overrides)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	setConfig(cfg)

	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// loadYAMLFile reads one user config layer. A missing file is not an error.
func loadYAMLFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	layer := map[string]any{}
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return layer, nil
}

// mergeMaps overlays src onto dst, descending into nested maps so a partial
// override does not wipe sibling keys.
func mergeMaps(dst, src map[string]any) {
	for key, value := range src {
		srcMap, srcOK := value.(map[string]any)
		dstMap, dstOK := dst[key].(map[string]any)
		if srcOK && dstOK {
			mergeMaps(dstMap, srcMap)
			continue
		}
		dst[key] = value
	}
}

// getUserConfigPaths returns the list of user config file paths to check
// Uses gofulmen/config for XDG-compliant path discovery
func getUserConfigPaths() []string {
	return gfconfig.GetAppConfigPaths(appName)
}

// getEnvSpecs returns environment variable specifications for config mapping
// Maps ZOOCART_{NAME} environment variables to config paths
func getEnvSpecs() []EnvVarSpec {
	return []EnvVarSpec{
		// Server config
		{Name: envPrefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: envPrefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: envPrefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: envPrefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: envPrefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: envPrefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},

		// Logging config
		{Name: envPrefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: envPrefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Store config
		{Name: envPrefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: envPrefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: envPrefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: envPrefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},

		// AI gateway config
		{Name: envPrefix + "AI_PROVIDER", Path: []string{"ai", "provider"}, Type: EnvString},
		{Name: envPrefix + "AI_BASE_URL", Path: []string{"ai", "base_url"}, Type: EnvString},
		{Name: envPrefix + "AI_API_KEY", Path: []string{"ai", "api_key"}, Type: EnvString},
		{Name: envPrefix + "AI_MODEL", Path: []string{"ai", "model"}, Type: EnvString},
		{Name: envPrefix + "AI_TIMEOUT", Path: []string{"ai", "timeout"}, Type: EnvString},
		{Name: envPrefix + "AI_SYSTEM_PROMPT", Path: []string{"ai", "system_prompt"}, Type: EnvString},
		{Name: envPrefix + "AI_HISTORY_LIMIT", Path: []string{"ai", "history_limit"}, Type: EnvInt},
		{Name: envPrefix + "AI_QUOTA_PER_MINUTE", Path: []string{"ai", "quota", "per_minute"}, Type: EnvInt},
		{Name: envPrefix + "AI_QUOTA_PER_DAY", Path: []string{"ai", "quota", "per_day"}, Type: EnvInt},

		// Delivery aggregator config
		{Name: envPrefix + "DELIVERY_CARRIER_TIMEOUT", Path: []string{"delivery", "carrier_timeout"}, Type: EnvString},
		{Name: envPrefix + "DELIVERY_CDEK_BASE_URL", Path: []string{"delivery", "cdek", "base_url"}, Type: EnvString},
		{Name: envPrefix + "DELIVERY_CDEK_ACCOUNT", Path: []string{"delivery", "cdek", "account"}, Type: EnvString},
		{Name: envPrefix + "DELIVERY_CDEK_SECRET", Path: []string{"delivery", "cdek", "secret"}, Type: EnvString},
		{Name: envPrefix + "DELIVERY_CDEK_FREE_SHIPPING_THRESHOLD", Path: []string{"delivery", "cdek", "free_shipping_threshold"}, Type: EnvString},
		{Name: envPrefix + "DELIVERY_BOXBERRY_BASE_URL", Path: []string{"delivery", "boxberry", "base_url"}, Type: EnvString},
		{Name: envPrefix + "DELIVERY_BOXBERRY_TOKEN", Path: []string{"delivery", "boxberry", "token"}, Type: EnvString},
		{Name: envPrefix + "DELIVERY_BOXBERRY_FREE_SHIPPING_THRESHOLD", Path: []string{"delivery", "boxberry", "free_shipping_threshold"}, Type: EnvString},
		{Name: envPrefix + "DELIVERY_FIVEPOST_BASE_URL", Path: []string{"delivery", "fivepost", "base_url"}, Type: EnvString},
		{Name: envPrefix + "DELIVERY_FIVEPOST_API_KEY", Path: []string{"delivery", "fivepost", "api_key"}, Type: EnvString},
		{Name: envPrefix + "DELIVERY_FIVEPOST_FREE_SHIPPING_THRESHOLD", Path: []string{"delivery", "fivepost", "free_shipping_threshold"}, Type: EnvString},

		// Metrics config
		{Name: envPrefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: envPrefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		// Health config
		{Name: envPrefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},

		// Debug config
		{Name: envPrefix + "DEBUG_ENABLED", Path: []string{"debug", "enabled"}, Type: EnvBool},
		{Name: envPrefix + "DEBUG_PPROF_ENABLED", Path: []string{"debug", "pprof_enabled"}, Type: EnvBool},
	}
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(appName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(appName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(appName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + appName + ".db"
	}
	return filepath.Join(dataDir, appName+".db")
}
