package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/zoocart/zoocart/internal/aigate"
	"github.com/zoocart/zoocart/internal/aigate/driver/openai"
	"github.com/zoocart/zoocart/internal/config"
	"github.com/zoocart/zoocart/internal/core/carrier"
	"github.com/zoocart/zoocart/internal/core/delivery"
	"github.com/zoocart/zoocart/internal/core/quota"
	"github.com/zoocart/zoocart/internal/core/store"
	errwrap "github.com/zoocart/zoocart/internal/errors"
	"github.com/zoocart/zoocart/internal/observability"
	"github.com/zoocart/zoocart/internal/server"
	"github.com/zoocart/zoocart/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// aiQuotaHealthChecker reports whether the shared upstream budget is exhausted.
// Exhaustion is not a failure (the server still answers), but it surfaces in
// the health detail via the registered checker name.
type aiQuotaHealthChecker struct {
	gateway *aigate.Gateway
}

func (c aiQuotaHealthChecker) CheckHealth(ctx context.Context) error {
	if c.gateway == nil {
		return errwrap.NewInternalError("ai gateway not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload

The server cleanly shuts down HTTP, closes the store and flushes logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := map[string]any{}
		if cmd.Flags().Changed("host") {
			overrides["server"] = map[string]any{"host": serverHost}
		}
		if cmd.Flags().Changed("port") {
			srvOverride, _ := overrides["server"].(map[string]any)
			if srvOverride == nil {
				srvOverride = map[string]any{}
			}
			srvOverride["port"] = serverPort
			overrides["server"] = srvOverride
		}

		cfg, err := config.Load(cmd.Context(), overrides)
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration load failed")
		}

		observability.InitServerLogger(appName, cfg.Logging.Level)

		metricsPort := cfg.Metrics.Port
		if metricsPort == 0 {
			metricsPort = 9090
		}

		if err := observability.InitMetrics(appName, metricsPort); err != nil {
			observability.ServerLogger.Error("Failed to initialize metrics",
				zap.Error(err))
			return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
		}

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", appName),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Int("metrics_port", metricsPort))

		// Open the store before wiring anything that persists through it
		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			observability.ServerLogger.Error("Failed to open store",
				zap.String("path", cfg.Store.Path),
				zap.Error(err))
			return errwrap.WrapDatabaseError(cmd.Context(), err, "store open failed")
		}
		if err := st.Migrate(cmd.Context()); err != nil {
			_ = st.Close()
			return errwrap.WrapDatabaseError(cmd.Context(), err, "store migration failed")
		}

		gateway := buildGateway(cfg, st)
		aggregator := buildAggregator(cfg)

		// Initialize health manager
		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("store", st)
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		hm.RegisterChecker("ai_gateway", aiQuotaHealthChecker{gateway: gateway})

		handlers.SetVersionInfo(versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)

		srv := server.New(cfg.Server.Host, cfg.Server.Port, server.Dependencies{
			Gateway:    gateway,
			Aggregator: aggregator,
			Auditor:    st,
		})

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Register graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		// Handler 2: Close the store (executed second)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Closing store...")
			if err := st.Close(); err != nil {
				observability.ServerLogger.Warn("Store close returned error",
					zap.Error(err))
			}
			return nil
		})

		// Handler 3: Shutdown HTTP server (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		// Register config reload handler (SIGHUP)
		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: attempting config reload")

			reloaded, err := config.Load(ctx, overrides)
			if err != nil {
				observability.ServerLogger.Error("Failed to reload config",
					zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			observability.ServerLogger.Info("Configuration reloaded",
				zap.String("log_level", reloaded.Logging.Level))

			// TODO: propagate quota size changes to the live limiter on reload
			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		// Start server in background goroutine
		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		// Start signal listener in background
		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		// Wait for error or shutdown completion
		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

// buildGateway wires the AI chat gateway from configuration.
func buildGateway(cfg *config.Config, st *store.Store) *aigate.Gateway {
	client := openai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey)
	if cfg.AI.Timeout > 0 {
		client.Timeout = cfg.AI.Timeout
	}

	limiter := quota.New(cfg.AI.Quota.PerMinute, cfg.AI.Quota.PerDay)

	gateway := aigate.New(client, limiter, cfg.AI.Model)
	gateway.Store = st
	gateway.SystemPrompt = cfg.AI.SystemPrompt
	if cfg.AI.HistoryLimit > 0 {
		gateway.HistoryLimit = cfg.AI.HistoryLimit
	}
	return gateway
}

// buildAggregator wires all carriers from configuration. Unconfigured carriers
// stay registered: their quotes fail with ErrNotConfigured and the aggregator
// synthesizes fallback estimates for them.
func buildAggregator(cfg *config.Config) *delivery.Aggregator {
	cdek := carrier.NewCDEK(cfg.Delivery.CDEK.BaseURL, cfg.Delivery.CDEK.Account, cfg.Delivery.CDEK.Secret)
	cdek.FreeShippingThreshold = cfg.Delivery.CDEK.FreeShippingThreshold

	boxberry := carrier.NewBoxberry(cfg.Delivery.Boxberry.BaseURL, cfg.Delivery.Boxberry.Token)
	boxberry.FreeShippingThreshold = cfg.Delivery.Boxberry.FreeShippingThreshold

	fivepost := carrier.NewFivePost(cfg.Delivery.FivePost.BaseURL, cfg.Delivery.FivePost.APIKey)
	fivepost.FreeShippingThreshold = cfg.Delivery.FivePost.FreeShippingThreshold

	fallback, err := delivery.LoadFallbackTable()
	if err != nil {
		// The table is embedded; a parse failure means a broken build.
		if observability.ServerLogger != nil {
			observability.ServerLogger.Error("Failed to load fallback tariff table",
				zap.Error(err))
		}
		fallback = delivery.FallbackTable{}
	}

	aggregator := delivery.NewAggregator([]carrier.Carrier{cdek, boxberry, fivepost}, fallback)
	if cfg.Delivery.CarrierTimeout > 0 {
		aggregator.Timeout = cfg.Delivery.CarrierTimeout
	}
	return aggregator
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
