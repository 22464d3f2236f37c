package stream

import (
	"fmt"
	"time"

	"github.com/c360/marketstreams/health"
)

// HealthThresholds tunes the health evaluation rules.
type HealthThresholds struct {
	// StaleAfter is how long an ACTIVE stream may go without activity before
	// it is reported stale. PAUSED and STOPPED streams are never stale.
	StaleAfter time.Duration

	// ErrorRateThreshold is the errors/messages ratio above which a stream is
	// unhealthy. Only evaluated once at least one message has been received.
	ErrorRateThreshold float64

	// LatencyThresholdMs flags streams whose running-average latency exceeds it.
	LatencyThresholdMs float64
}

// DefaultHealthThresholds returns the standard evaluation thresholds.
func DefaultHealthThresholds() HealthThresholds {
	return HealthThresholds{
		StaleAfter:         60 * time.Second,
		ErrorRateThreshold: 0.10,
		LatencyThresholdMs: 1000,
	}
}

// WithHealthThresholds overrides the health evaluation thresholds.
func WithHealthThresholds(t HealthThresholds) ManagerOption {
	return func(m *Manager) {
		if t.StaleAfter > 0 {
			m.thresholds.StaleAfter = t.StaleAfter
		}
		if t.ErrorRateThreshold > 0 {
			m.thresholds.ErrorRateThreshold = t.ErrorRateThreshold
		}
		if t.LatencyThresholdMs > 0 {
			m.thresholds.LatencyThresholdMs = t.LatencyThresholdMs
		}
	}
}

// Health is the point-in-time health verdict for one stream.
type Health struct {
	health.Status

	ConnectionHealthy bool    `json:"connection_healthy"`
	Stale             bool    `json:"stale"`
	ErrorRate         float64 `json:"error_rate"`
	StreamStatus      string  `json:"stream_status"`
}

// CheckHealth evaluates every health rule against a consistent snapshot of the
// stream and collects all findings. Rules are independent; evaluation never
// short-circuits on the first issue. The check is read-only.
func (m *Manager) CheckHealth(tenantID, streamID string) (*Health, error) {
	e, err := m.registry.get(tenantID, streamID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	e.mu.RLock()
	snap := e.stream.snapshot(now)
	e.mu.RUnlock()

	var issues []string

	if snap.Status == StatusError {
		issues = append(issues, fmt.Sprintf("stream is in error state: %s",
			health.SanitizeMessage(snap.Metrics.LastError)))
	}

	// Zero messages means error rate 0, not a divide-by-zero failure.
	errorRate := 0.0
	if snap.Metrics.MessagesReceived > 0 {
		errorRate = float64(snap.Metrics.ErrorCount) / float64(snap.Metrics.MessagesReceived)
		if errorRate > m.thresholds.ErrorRateThreshold {
			issues = append(issues, fmt.Sprintf("error rate %.1f%% exceeds %.1f%% threshold",
				errorRate*100, m.thresholds.ErrorRateThreshold*100))
		}
	}

	stale := false
	if snap.Status == StatusActive && now.Sub(snap.LastActivity) > m.thresholds.StaleAfter {
		stale = true
		issues = append(issues, fmt.Sprintf("no activity for %s (threshold %s)",
			now.Sub(snap.LastActivity).Round(time.Second), m.thresholds.StaleAfter))
	}

	if snap.Metrics.AverageLatencyMs > m.thresholds.LatencyThresholdMs {
		issues = append(issues, fmt.Sprintf("average latency %.0fms exceeds %.0fms threshold",
			snap.Metrics.AverageLatencyMs, m.thresholds.LatencyThresholdMs))
	}

	connectionHealthy := snap.Status == StatusActive || snap.Status == StatusPaused

	component := "stream:" + streamID
	var status health.Status
	if len(issues) == 0 {
		status = health.NewHealthy(component, "stream operating normally")
	} else {
		status = health.NewUnhealthy(component, issues[0])
	}
	for _, issue := range issues {
		status = status.WithIssue(issue)
	}
	status = status.WithMetrics(&health.Metrics{
		Uptime:            now.Sub(snap.CreatedAt),
		ErrorCount:        snap.Metrics.ErrorCount,
		MessagesProcessed: snap.Metrics.MessagesReceived,
		AverageLatencyMs:  snap.Metrics.AverageLatencyMs,
		LastActivity:      snap.LastActivity,
	})

	if m.metrics != nil {
		m.metrics.RecordHealthStatus(component, status.Healthy)
	}

	return &Health{
		Status:            status,
		ConnectionHealthy: connectionHealthy,
		Stale:             stale,
		ErrorRate:         errorRate,
		StreamStatus:      snap.Status.String(),
	}, nil
}
