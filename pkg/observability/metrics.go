package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the bridge
type Metrics struct {
	// LoginsTotal counts authentication attempts by outcome
	LoginsTotal *prometheus.CounterVec

	// AutoLoginsTotal counts SSO auto-login attempts by outcome
	AutoLoginsTotal *prometheus.CounterVec

	// WatchdogActionsTotal counts per-request watchdog decisions
	WatchdogActionsTotal *prometheus.CounterVec

	// DirectoryRequestsTotal counts remote directory round trips
	DirectoryRequestsTotal *prometheus.CounterVec

	// DirectoryRequestDuration tracks remote round trip latency
	DirectoryRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perimeter_logins_total",
				Help: "Total number of authentication attempts by outcome",
			},
			[]string{"result"},
		),
		AutoLoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perimeter_sso_autologins_total",
				Help: "Total number of SSO auto-login attempts by outcome",
			},
			[]string{"result"},
		),
		WatchdogActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perimeter_watchdog_actions_total",
				Help: "Total number of session watchdog decisions",
			},
			[]string{"action"},
		),
		DirectoryRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perimeter_directory_requests_total",
				Help: "Total number of remote directory requests",
			},
			[]string{"operation", "status"},
		),
		DirectoryRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "perimeter_directory_request_duration_seconds",
				Help:    "Remote directory request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(
		m.LoginsTotal,
		m.AutoLoginsTotal,
		m.WatchdogActionsTotal,
		m.DirectoryRequestsTotal,
		m.DirectoryRequestDuration,
	)

	return m
}
