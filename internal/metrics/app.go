package metrics

import (
	"time"

	"github.com/zoocart/zoocart/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Operations metrics
	OperationsTotal       = "app_operations_total"
	OperationsErrorsTotal = "app_operations_errors_total"

	// AI gateway metrics
	AIQuotaDeniedTotal   = "app_ai_quota_denied_total"
	AIUpstreamErrorTotal = "app_ai_upstream_errors_total"
	AIChatDuration       = "app_ai_chat_duration_ms"

	// Delivery aggregator metrics
	CarrierQuoteTotal    = "app_carrier_quote_total"
	CarrierFallbackTotal = "app_carrier_fallback_total"
	QuoteDuration        = "app_quote_duration_ms"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
	ServerUptime    = "app_server_uptime_seconds"
)

// RecordOperation records an application operation with status
func RecordOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			OperationsTotal,
			1,
			map[string]string{
				"operation": operation,
				"status":    status,
			},
		)
	}
}

// RecordAIQuotaDenied records a chat request rejected by the quota gate.
// Scope names the exhausted window ("minute" or "day").
func RecordAIQuotaDenied(scope string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			AIQuotaDeniedTotal,
			1,
			map[string]string{
				"scope": scope,
			},
		)
	}
}

// RecordAIUpstreamError records a failed completion call to the AI provider.
func RecordAIUpstreamError(provider string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			AIUpstreamErrorTotal,
			1,
			map[string]string{
				"provider": provider,
			},
		)
	}
}

// RecordAIChatDuration records end-to-end latency of one chat turn.
func RecordAIChatDuration(duration time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(
			AIChatDuration,
			duration,
			nil,
		)
	}
}

// RecordCarrierQuote records the outcome of one carrier call.
func RecordCarrierQuote(provider string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			CarrierQuoteTotal,
			1,
			map[string]string{
				"provider": provider,
				"status":   status,
			},
		)
	}
}

// RecordCarrierFallback records a synthesized fallback option for a carrier
// that failed or timed out.
func RecordCarrierFallback(provider string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			CarrierFallbackTotal,
			1,
			map[string]string{
				"provider": provider,
			},
		)
	}
}

// RecordQuoteDuration records end-to-end latency of one aggregation call.
func RecordQuoteDuration(duration time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(
			QuoteDuration,
			duration,
			nil,
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

// SetServerUptime records the server uptime in seconds
func SetServerUptime(seconds int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerUptime,
			float64(seconds),
			nil,
		)
	}
}
