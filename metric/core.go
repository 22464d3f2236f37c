package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all platform-level metrics for the stream subsystem
type Metrics struct {
	// Stream lifecycle metrics
	ActiveStreams    *prometheus.GaugeVec
	StreamsStarted   *prometheus.CounterVec
	StreamsStopped   *prometheus.CounterVec
	AdmissionDenials *prometheus.CounterVec

	// Ingestion metrics
	MessagesReceived *prometheus.CounterVec
	MessageLatency   *prometheus.HistogramVec
	StreamErrors     *prometheus.CounterVec

	// Service metrics
	ServiceStatus     *prometheus.GaugeVec
	HealthCheckStatus *prometheus.GaugeVec

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ActiveStreams: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "marketstreams",
				Subsystem: "streams",
				Name:      "active",
				Help:      "Number of streams currently in the ACTIVE state",
			},
			[]string{"tenant"},
		),

		StreamsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "marketstreams",
				Subsystem: "streams",
				Name:      "started_total",
				Help:      "Total number of streams admitted and started",
			},
			[]string{"tenant", "source_type"},
		),

		StreamsStopped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "marketstreams",
				Subsystem: "streams",
				Name:      "stopped_total",
				Help:      "Total number of streams stopped",
			},
			[]string{"tenant"},
		),

		AdmissionDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "marketstreams",
				Subsystem: "admission",
				Name:      "denials_total",
				Help:      "Total number of stream starts denied by quota",
			},
			[]string{"tenant"},
		),

		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "marketstreams",
				Subsystem: "messages",
				Name:      "received_total",
				Help:      "Total number of feed messages recorded",
			},
			[]string{"tenant", "source_type"},
		),

		MessageLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "marketstreams",
				Subsystem: "messages",
				Name:      "latency_seconds",
				Help:      "Per-message feed latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tenant"},
		),

		StreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "marketstreams",
				Subsystem: "streams",
				Name:      "errors_total",
				Help:      "Total number of feed errors recorded",
			},
			[]string{"tenant"},
		),

		ServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "marketstreams",
				Subsystem: "service",
				Name:      "status",
				Help:      "Service status (0=stopped, 1=starting, 2=running, 3=stopping)",
			},
			[]string{"service"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "marketstreams",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"component"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "marketstreams",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "marketstreams",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// SetActiveStreams records the current ACTIVE stream count for a tenant
func (c *Metrics) SetActiveStreams(tenant string, count int) {
	c.ActiveStreams.WithLabelValues(tenant).Set(float64(count))
}

// RecordStreamStarted increments the started-stream counter
func (c *Metrics) RecordStreamStarted(tenant, sourceType string) {
	c.StreamsStarted.WithLabelValues(tenant, sourceType).Inc()
}

// RecordStreamStopped increments the stopped-stream counter
func (c *Metrics) RecordStreamStopped(tenant string) {
	c.StreamsStopped.WithLabelValues(tenant).Inc()
}

// RecordAdmissionDenied increments the quota denial counter
func (c *Metrics) RecordAdmissionDenied(tenant string) {
	c.AdmissionDenials.WithLabelValues(tenant).Inc()
}

// RecordMessage records one feed message and its latency
func (c *Metrics) RecordMessage(tenant, sourceType string, latency time.Duration) {
	c.MessagesReceived.WithLabelValues(tenant, sourceType).Inc()
	c.MessageLatency.WithLabelValues(tenant).Observe(latency.Seconds())
}

// RecordStreamError increments the feed error counter
func (c *Metrics) RecordStreamError(tenant string) {
	c.StreamErrors.WithLabelValues(tenant).Inc()
}

// RecordServiceStatus updates service status metric
func (c *Metrics) RecordServiceStatus(service string, status int) {
	c.ServiceStatus.WithLabelValues(service).Set(float64(status))
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(component).Set(value)
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}
