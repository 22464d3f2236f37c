package stream

import (
	"time"

	"github.com/c360/marketstreams/catalog"
)

// Status represents the lifecycle state of a data stream
type Status int

const (
	// StatusActive indicates the stream is running and counted against quota
	StatusActive Status = iota
	// StatusPaused indicates the stream is suspended and not counted against quota
	StatusPaused
	// StatusStopped indicates the stream is permanently terminal
	StatusStopped
	// StatusError indicates the stream was explicitly marked failed
	StatusError
)

// String returns a string representation of the stream status
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPaused:
		return "paused"
	case StatusStopped:
		return "stopped"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseStatus converts a string into a Status. Unknown strings return false.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "active":
		return StatusActive, true
	case "paused":
		return StatusPaused, true
	case "stopped":
		return StatusStopped, true
	case "error":
		return StatusError, true
	}
	return StatusStopped, false
}

// Operation names a lifecycle mutation for transition checks and errors.
type Operation string

// Lifecycle operations.
const (
	OpPause  Operation = "pause"
	OpResume Operation = "resume"
	OpStop   Operation = "stop"
)

// transitions holds the legal state machine edges. A missing entry means the
// operation is illegal from that state.
var transitions = map[Status]map[Operation]Status{
	StatusActive: {
		OpPause: StatusPaused,
		OpStop:  StatusStopped,
	},
	StatusPaused: {
		OpResume: StatusActive,
		OpStop:   StatusStopped,
	},
	StatusError: {
		OpStop: StatusStopped,
	},
	// StatusStopped is terminal.
}

// nextState returns the target state for an operation from a given state.
func nextState(from Status, op Operation) (Status, bool) {
	edges, ok := transitions[from]
	if !ok {
		return from, false
	}
	to, ok := edges[op]
	return to, ok
}

// Metrics holds the running statistics for one stream. Memory use is constant
// per stream; the latency series is folded into averageLatencyMs rather than
// retained.
type Metrics struct {
	MessagesReceived  int64   `json:"messages_received"`
	MessagesPerSecond float64 `json:"messages_per_second"`
	AverageLatencyMs  float64 `json:"average_latency_ms"`
	ErrorCount        int64   `json:"error_count"`
	LastError         string  `json:"last_error,omitempty"`

	// UptimeSeconds is derived at read time from the creation timestamp. It is
	// populated on snapshots, never stored.
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// DataStream is one tenant-owned subscription to a data source. TenantID,
// SourceID, Symbols and Type are fixed at creation.
type DataStream struct {
	StreamID     string             `json:"stream_id"`
	TenantID     string             `json:"tenant_id"`
	SourceID     string             `json:"source_id"`
	Symbols      []string           `json:"symbols"`
	Type         catalog.SourceType `json:"type"`
	Status       Status             `json:"-"`
	StatusName   string             `json:"status"`
	Metrics      Metrics            `json:"metrics"`
	CreatedAt    time.Time          `json:"created_at"`
	LastActivity time.Time          `json:"last_activity"`
}

// snapshot returns a copy with derived fields filled in. Callers hold the
// stream lock (read or write) while calling this.
func (d *DataStream) snapshot(now time.Time) DataStream {
	out := *d
	out.Symbols = append([]string(nil), d.Symbols...)
	out.StatusName = d.Status.String()
	out.Metrics.UptimeSeconds = now.Sub(d.CreatedAt).Seconds()
	return out
}
