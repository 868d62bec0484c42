// Package metrics provides Prometheus instrumentation for ledgerlens.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled     bool
	serviceName string

	// HTTP metrics
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	// Analyzer domain metrics
	analyzeTotal     *prometheus.CounterVec
	gasEstimateTotal *prometheus.CounterVec

	// Registry domain metrics
	treeRegisterTotal *prometheus.CounterVec
	treeRemoveTotal   *prometheus.CounterVec
	treeUpdateTotal   *prometheus.CounterVec

	// Event feed metrics
	wsConnections prometheus.Gauge
)

// Init initializes the metrics system.
func Init(enabledFlag bool, svcName string) {
	enabled = enabledFlag
	serviceName = svcName

	if !enabled {
		return
	}

	// HTTP request counter
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration histogram
	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Account analysis counter
	analyzeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyze_total",
			Help: "Total number of account analyses",
		},
		[]string{"status"},
	)

	// Gas estimate counter
	gasEstimateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gas_estimate_total",
			Help: "Total number of simulated gas estimates",
		},
		[]string{"status", "outcome"},
	)

	// Tree registration counter
	treeRegisterTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tree_register_total",
			Help: "Total number of merkle tree registrations",
		},
		[]string{"status"},
	)

	// Tree removal counter
	treeRemoveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tree_remove_total",
			Help: "Total number of merkle tree deactivations",
		},
		[]string{"status"},
	)

	// Tree description update counter
	treeUpdateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tree_update_total",
			Help: "Total number of merkle tree description updates",
		},
		[]string{"status"},
	)

	// Live event feed connection gauge
	wsConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "event_feed_connections",
			Help: "Number of open WebSocket event feed connections",
		},
	)

	// Note: Go runtime metrics (goroutines, memory, GC) are automatically
	// collected by prometheus/client_golang - no custom collector needed
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	if !enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.Handler()
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}

// ServiceName returns the configured service name for metric labels.
func ServiceName() string {
	return serviceName
}
