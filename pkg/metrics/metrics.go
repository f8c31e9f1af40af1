package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authflow_auth_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// AccountEvents counts account lifecycle transitions
	// (registered|verified|reset_requested|password_reset).
	AccountEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authflow_account_events_total",
			Help: "Total number of account lifecycle events",
		},
		[]string{"event"},
	)

	// Notifications tracks outbound notification deliveries by kind and result
	// (sent|failed|skipped).
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authflow_notifications_total",
			Help: "Total number of notification deliveries",
		},
		[]string{"kind", "result"},
	)

	// SweptSecrets counts expired one-time secrets cleared by the sweeper.
	SweptSecrets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authflow_swept_secrets_total",
			Help: "Total number of expired secrets cleared by maintenance",
		},
		[]string{"kind"},
	)

	// ProbeStatus reports the last readiness result per component
	// (1 up, 0.5 degraded, 0 down).
	ProbeStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "authflow_probe_status",
			Help: "Last readiness probe result per component",
		},
		[]string{"component"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authflow_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
