// Package metrics exposes prometheus instrumentation for the store server
// and the console poller.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tvloop/tvloop/pkg/configs"
)

var (
	// RequestCounter counts HTTP requests by method and path.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint"},
	)

	// RequestDuration observes HTTP request latency.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// UploadsTotal counts accepted uploads.
	UploadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tvloop_uploads_total",
			Help: "Total number of accepted video uploads",
		},
	)

	// DeletesTotal counts completed deletions.
	DeletesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tvloop_deletes_total",
			Help: "Total number of deleted videos",
		},
	)

	// StoredAssets tracks how many video slots are occupied.
	StoredAssets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tvloop_stored_assets",
			Help: "Number of videos currently stored",
		},
	)

	// ExpiredAssets tracks how many stored videos are past expiration.
	ExpiredAssets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tvloop_expired_assets",
			Help: "Number of stored videos past their expiration date",
		},
	)

	// PollCycles counts poll cycles by outcome (online/offline).
	PollCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tvloop_poll_cycles_total",
			Help: "Total poll cycles by resulting endpoint status",
		},
		[]string{"status"},
	)

	registry = prometheus.NewRegistry()
)

// InitMetrics registers collectors according to the configuration.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	if config.RuntimeMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	registry.MustRegister(
		RequestCounter, RequestDuration,
		UploadsTotal, DeletesTotal,
		StoredAssets, ExpiredAssets,
		PollCycles,
	)

	return nil
}

// RegisterHandler mounts the /metrics endpoint on the engine.
func RegisterHandler(config configs.MetricsConfig, engine *gin.Engine) {
	if !config.Enabled {
		return
	}

	engine.GET(config.Path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}
