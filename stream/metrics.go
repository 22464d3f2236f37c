package stream

import (
	"time"

	"github.com/c360/marketstreams/errors"
)

// RecordMessage folds one message observation into the stream's running
// statistics. The average is updated incrementally:
//
//	newAvg = (oldAvg*n + latencyMs) / (n + 1)
//
// so no per-message history is retained.
func (m *Manager) RecordMessage(tenantID, streamID string, latencyMs float64) error {
	if latencyMs < 0 {
		return errors.NewInvalid("stream", "RecordMessage", "latency cannot be negative")
	}

	e, err := m.registry.get(tenantID, streamID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	n := float64(e.stream.Metrics.MessagesReceived)
	e.stream.Metrics.AverageLatencyMs = (e.stream.Metrics.AverageLatencyMs*n + latencyMs) / (n + 1)
	e.stream.Metrics.MessagesReceived++
	e.stream.LastActivity = m.now()
	sourceType := string(e.stream.Type)
	e.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordMessage(tenantID, sourceType, time.Duration(latencyMs*float64(time.Millisecond)))
	}
	return nil
}

// RecordError notes an upstream feed error on the stream. The counter update
// always succeeds regardless of state; when setErrorState is true the stream
// additionally moves to ERROR unless already STOPPED. Recording against a
// STOPPED stream is logged as a probable caller bug but not rejected.
func (m *Manager) RecordError(tenantID, streamID, message string, setErrorState bool) error {
	e, err := m.registry.get(tenantID, streamID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	status := e.stream.Status
	e.stream.Metrics.ErrorCount++
	e.stream.Metrics.LastError = message
	if setErrorState && status != StatusStopped {
		e.stream.Status = StatusError
	}
	e.stream.LastActivity = m.now()
	e.mu.Unlock()

	if status == StatusStopped {
		m.logger.Warn("error recorded on stopped stream",
			"tenant_id", tenantID,
			"stream_id", streamID,
			"error", message)
	} else {
		m.logger.Debug("stream error recorded",
			"tenant_id", tenantID,
			"stream_id", streamID,
			"set_error_state", setErrorState,
			"error", message)
	}

	if m.metrics != nil {
		m.metrics.RecordStreamError(tenantID)
		if setErrorState && status != StatusStopped {
			m.metrics.SetActiveStreams(tenantID, m.registry.countActive(tenantID))
		}
	}
	return nil
}

// UpdateMessageRate stores an externally sampled messages-per-second figure.
// The rate is pushed by the ingest layer, not derived here.
func (m *Manager) UpdateMessageRate(tenantID, streamID string, rate float64) error {
	if rate < 0 {
		return errors.NewInvalid("stream", "UpdateMessageRate", "rate cannot be negative")
	}

	e, err := m.registry.get(tenantID, streamID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.stream.Metrics.MessagesPerSecond = rate
	e.stream.LastActivity = m.now()
	e.mu.Unlock()
	return nil
}

// GetStreamMetrics returns the stream's metrics with uptime derived at read
// time. Uptime is wall clock since creation; pausing does not stop it.
func (m *Manager) GetStreamMetrics(tenantID, streamID string) (*Metrics, error) {
	e, err := m.registry.get(tenantID, streamID)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	metrics := e.stream.Metrics
	metrics.UptimeSeconds = m.now().Sub(e.stream.CreatedAt).Seconds()
	e.mu.RUnlock()
	return &metrics, nil
}
