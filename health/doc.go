// Package health provides the health reporting vocabulary shared across
// MarketStreams: a Status value with an Issues list, constructor helpers,
// aggregation rules and a thread-safe Monitor for tracking many components.
//
// Stream-level health verdicts are produced by the stream package and
// expressed as health.Status values; the service layer sweeps them into a
// Monitor so the gateway can serve a single aggregated system view.
//
// Messages that leave the process should pass through SanitizeMessage first
// so URLs, paths, addresses and credentials never reach external callers.
package health
