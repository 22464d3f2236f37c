// Package marketstreams is the stream lifecycle and tenant admission control
// subsystem of a multi-tenant crypto-trading intelligence backend.
//
// # What it does
//
// A stream is a long-lived subscription to an external data source (price,
// news, sentiment, or on-chain feed) for a set of instrument symbols, owned by
// exactly one tenant. This module is the authority over that lifecycle:
//
//   - Admission control: a tenant may never hold more concurrently ACTIVE
//     streams than its configured quota, even under parallel start requests.
//   - Lifecycle state machine: ACTIVE → PAUSED → ACTIVE, any non-terminal
//     state → STOPPED (terminal), with ERROR reachable only by explicit
//     opt-in when an error is recorded.
//   - Metrics aggregation: per-stream message counts, running-average latency
//     and error accounting maintained incrementally in O(1) memory.
//   - Health evaluation: point-in-time verdicts over error rate, staleness,
//     latency and connection state.
//
// # Package layout
//
//	stream      Core: registry, admission, lifecycle, metrics, health rules
//	catalog     Data-source catalog (lookup collaborator, memory + NATS KV)
//	tenant      Per-tenant stream quota configuration stores
//	service     Long-running service wrapper, health sweeps, event publishing
//	gateway     HTTP/WebSocket surface wrapping the core operations
//	health      Reusable health status, monitor and aggregation
//	metric      Prometheus metrics and the metrics HTTP server
//	natsclient  Managed NATS connection, JetStream and KV helpers
//	config      Layered JSON configuration with environment overrides
//	errors      Error classification and domain error types
//	pkg/retry   Exponential backoff with jitter
//
// All shared mutable state is owned by explicit instances constructed in
// cmd/marketstreams and passed by reference; there are no ambient singletons.
package marketstreams
