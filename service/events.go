package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360/marketstreams/stream"
)

// EventType names a stream lifecycle event.
type EventType string

// Lifecycle event types published to NATS.
const (
	EventStreamStarted    EventType = "stream.started"
	EventStreamStopped    EventType = "stream.stopped"
	EventStreamPaused     EventType = "stream.paused"
	EventStreamResumed    EventType = "stream.resumed"
	EventTenantConfigured EventType = "tenant.configured"
)

// Event is the wire form of a lifecycle notification. Downstream consumers
// (billing, audit, dashboards) subscribe on the event subjects; delivery is
// best effort and never blocks the lifecycle operation that produced it.
type Event struct {
	Type      EventType `json:"type"`
	TenantID  string    `json:"tenant_id"`
	StreamID  string    `json:"stream_id,omitempty"`
	SourceID  string    `json:"source_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// subject builds "<prefix>.streams.events.<tenant>.<stream>". Events without a
// stream use "_" as the stream token so subscribers can wildcard either level.
func (s *StreamService) subject(tenantID, streamID string) string {
	if streamID == "" {
		streamID = "_"
	}
	return fmt.Sprintf("%s.streams.events.%s.%s", s.eventPrefix, tenantID, streamID)
}

// publishEvent publishes a full event built from a stream snapshot.
func (s *StreamService) publishEvent(eventType EventType, ds *stream.DataStream) {
	s.publish(Event{
		Type:      eventType,
		TenantID:  ds.TenantID,
		StreamID:  ds.StreamID,
		SourceID:  ds.SourceID,
		Status:    ds.Status.String(),
		Timestamp: time.Now(),
	})
}

// publishStreamEvent publishes an event identified only by tenant and stream.
func (s *StreamService) publishStreamEvent(eventType EventType, tenantID, streamID string) {
	s.publish(Event{
		Type:      eventType,
		TenantID:  tenantID,
		StreamID:  streamID,
		Timestamp: time.Now(),
	})
}

func (s *StreamService) publish(event Event) {
	if s.nats == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal lifecycle event failed", "type", string(event.Type), "error", err)
		return
	}

	subj := s.subject(event.TenantID, event.StreamID)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.nats.Publish(ctx, subj, data); err != nil {
		s.logger.Warn("lifecycle event publish failed",
			"subject", subj,
			"type", string(event.Type),
			"error", err)
	}
}
