// Package metric provides Prometheus instrumentation for the stream
// subsystem: core platform metrics (admission, lifecycle, ingestion, NATS),
// a registry that layers duplicate-detection on top of a dedicated
// prometheus.Registry, and an HTTP server exposing the scrape endpoint.
//
// Metric cardinality is bounded by tenant (and source type where useful);
// per-stream labels are deliberately avoided since stream ids are unbounded.
package metric
