// Package stream implements stream lifecycle management and per-tenant
// admission control.
//
// A DataStream is a tenant-owned subscription to one catalog source. Its
// lifecycle is a small state machine: streams start ACTIVE, may pause and
// resume, and stop into a terminal STOPPED state. An ERROR state is reachable
// only when an error is recorded with the explicit escalation flag.
//
// Admission control bounds each tenant's concurrently ACTIVE streams. Only
// ACTIVE streams count; pausing a stream immediately frees a quota slot. The
// count-then-insert step of StartStream runs under a per-tenant lock so
// concurrent starts at the quota boundary cannot both succeed, while the
// catalog lookup runs before the lock so a slow catalog never serializes
// admission across tenants.
//
// Per-stream statistics (message count, running-average latency, error count)
// are folded incrementally under the stream's own lock. CheckHealth derives a
// point-in-time verdict from those statistics without mutating anything.
package stream
