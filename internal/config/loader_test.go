package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	// Test basic config loading with defaults
	t.Run("LoadDefaults", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("XDG_DATA_HOME", t.TempDir())

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify server defaults
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		// Verify store defaults
		assert.Equal(t, "libsql", cfg.Store.Driver)
		assert.NotEmpty(t, cfg.Store.Path)
		assert.Equal(t, "", cfg.Store.URL)
		assert.Equal(t, "", cfg.Store.AuthToken)

		// Verify AI gateway defaults
		assert.Equal(t, "openai", cfg.AI.Provider)
		assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
		assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
		assert.Equal(t, 10, cfg.AI.Quota.PerMinute)
		assert.Equal(t, 500, cfg.AI.Quota.PerDay)
		assert.Equal(t, 20, cfg.AI.HistoryLimit)
		assert.NotEmpty(t, cfg.AI.SystemPrompt)

		// Verify delivery defaults
		assert.Equal(t, 5*time.Second, cfg.Delivery.CarrierTimeout)
		assert.Equal(t, 3000.0, cfg.Delivery.CDEK.FreeShippingThreshold)
		assert.Equal(t, 2500.0, cfg.Delivery.Boxberry.FreeShippingThreshold)
		assert.Equal(t, 2000.0, cfg.Delivery.FivePost.FreeShippingThreshold)

		// Verify logging defaults
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "structured", cfg.Logging.Profile)

		// Verify metrics defaults
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)

		// Verify health defaults
		assert.True(t, cfg.Health.Enabled)

		// Verify debug defaults
		assert.False(t, cfg.Debug.Enabled)
		assert.False(t, cfg.Debug.PprofEnabled)
	})

	// Test user config file layer
	t.Run("UserConfigFile", func(t *testing.T) {
		configHome := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", configHome)

		configDir := filepath.Join(configHome, "zoocart")
		require.NoError(t, os.MkdirAll(configDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(`
server:
  port: 8888
ai:
  quota:
    per_minute: 3
`), 0o644))

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, 8888, cfg.Server.Port)
		assert.Equal(t, 3, cfg.AI.Quota.PerMinute)
		// Sibling keys under the same section survive a partial override
		assert.Equal(t, 500, cfg.AI.Quota.PerDay)
	})

	// Test runtime overrides
	t.Run("RuntimeOverrides", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "127.0.0.1",
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify overrides were applied
		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)

		// Verify non-overridden values remain default
		assert.Equal(t, "structured", cfg.Logging.Profile)
		assert.Equal(t, 9090, cfg.Metrics.Port)
	})

	// Test environment variable overrides
	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("ZOOCART_PORT", "3000")
		t.Setenv("ZOOCART_LOG_LEVEL", "warn")
		t.Setenv("ZOOCART_METRICS_ENABLED", "false")
		t.Setenv("ZOOCART_AI_QUOTA_PER_DAY", "50")
		t.Setenv("ZOOCART_DELIVERY_CDEK_FREE_SHIPPING_THRESHOLD", "4500")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify env overrides were applied
		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.False(t, cfg.Metrics.Enabled)
		assert.Equal(t, 50, cfg.AI.Quota.PerDay)
		assert.Equal(t, 4500.0, cfg.Delivery.CDEK.FreeShippingThreshold)
	})

	// Test config precedence: runtime > env > defaults
	t.Run("ConfigPrecedence", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("ZOOCART_PORT", "4000")

		// Runtime override should win
		overrides := map[string]any{
			"server": map[string]any{
				"port": 5000,
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Runtime override should take precedence over env var
		assert.Equal(t, 5000, cfg.Server.Port)
	})
}

func TestGetConfig(t *testing.T) {
	ctx := context.Background()

	// Load config first
	cfg, err := Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Test GetConfig returns the same instance
	t.Run("GetConfigReturnsLoadedConfig", func(t *testing.T) {
		retrieved := GetConfig()
		assert.NotNil(t, retrieved)
		assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)
		assert.Equal(t, cfg.Logging.Level, retrieved.Logging.Level)
	})
}

func TestEnvSpecs(t *testing.T) {
	specs := getEnvSpecs()
	assert.NotEmpty(t, specs)

	// Verify critical env var mappings exist
	envVarNames := make(map[string]bool)
	for _, spec := range specs {
		envVarNames[spec.Name] = true
	}

	assert.True(t, envVarNames["ZOOCART_LOG_LEVEL"], "LOG_LEVEL env var must be mapped")
	assert.True(t, envVarNames["ZOOCART_PORT"], "PORT env var must be mapped")
	assert.True(t, envVarNames["ZOOCART_HOST"], "HOST env var must be mapped")
	assert.True(t, envVarNames["ZOOCART_METRICS_PORT"], "METRICS_PORT env var must be mapped")
	assert.True(t, envVarNames["ZOOCART_DB_PATH"], "DB_PATH env var must be mapped")
	assert.True(t, envVarNames["ZOOCART_AI_API_KEY"], "AI_API_KEY env var must be mapped")
	assert.True(t, envVarNames["ZOOCART_AI_QUOTA_PER_MINUTE"], "AI_QUOTA_PER_MINUTE env var must be mapped")
}

func TestDurationParsing(t *testing.T) {
	ctx := context.Background()

	// Test duration parsing from string env var
	t.Run("DurationFromEnv", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("ZOOCART_READ_TIMEOUT", "45s")
		t.Setenv("ZOOCART_SHUTDOWN_TIMEOUT", "5m")
		t.Setenv("ZOOCART_DELIVERY_CARRIER_TIMEOUT", "2s")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 5*time.Minute, cfg.Server.ShutdownTimeout)
		assert.Equal(t, 2*time.Second, cfg.Delivery.CarrierTimeout)
	})
}

func TestConfigReload(t *testing.T) {
	ctx := context.Background()

	// Load initial config
	cfg1, err := Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg1)
	initialPort := cfg1.Server.Port

	// Reload with different runtime overrides
	overrides := map[string]any{
		"server": map[string]any{
			"port": initialPort + 1000,
		},
	}

	cfg2, err := Load(ctx, overrides)
	require.NoError(t, err)
	require.NotNil(t, cfg2)

	// Verify reload updated the config
	assert.Equal(t, initialPort+1000, cfg2.Server.Port)

	// Verify GetConfig returns the updated config
	current := GetConfig()
	assert.Equal(t, cfg2.Server.Port, current.Server.Port)
}
