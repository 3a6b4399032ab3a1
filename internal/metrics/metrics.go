package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPActiveConnections *prometheus.GaugeVec

	// WebSocket metrics
	WSConnectionsTotal  prometheus.Counter
	WSConnectionsActive prometheus.Gauge
	WSMessagesSent      prometheus.Counter

	// Notification fan-out metrics; result is one of
	// delivered, offline, dropped
	NotificationFanout *prometheus.CounterVec

	// Cascade delete metrics by root entity kind
	CascadeDeletesTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),
			WSConnectionsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "websocket_connections_total",
					Help: "Total number of WebSocket connections accepted",
				},
			),
			WSConnectionsActive: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "websocket_connections_active",
					Help: "Number of currently open WebSocket connections",
				},
			),
			WSMessagesSent: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "websocket_messages_sent_total",
					Help: "Total number of WebSocket messages sent",
				},
			),
			NotificationFanout: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notification_fanout_total",
					Help: "Notification push attempts by result",
				},
				[]string{"result"},
			),
			CascadeDeletesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cascade_deletes_total",
					Help: "Cascade deletions by root entity kind",
				},
				[]string{"entity"},
			),
		}
	})
	return instance
}

// Get returns the metrics instance, initializing it if needed
func Get() *Metrics {
	return Initialize()
}
