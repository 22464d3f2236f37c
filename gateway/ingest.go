package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// upgrader accepts any origin; tenant identity comes from the authenticated
// path, not the Origin header, and auth happens upstream of this service.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ingestFrame is one inbound WebSocket frame on the ingest connection.
type ingestFrame struct {
	// Type is "message", "error" or "rate".
	Type string `json:"type"`

	// LatencyMs applies to "message" frames.
	LatencyMs float64 `json:"latency_ms,omitempty"`

	// Message and SetErrorState apply to "error" frames.
	Message       string `json:"message,omitempty"`
	SetErrorState bool   `json:"set_error_state,omitempty"`

	// MessagesPerSecond applies to "rate" frames.
	MessagesPerSecond float64 `json:"messages_per_second,omitempty"`
}

// ingestAck is sent back when a frame is rejected. Accepted frames are not
// acknowledged; the connection stays write-mostly.
type ingestAck struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// handleIngest upgrades the connection and folds inbound frames into the
// stream's metrics until the peer disconnects. Frames beyond the per-connection
// rate limit are rejected with a "rate_limited" ack rather than closing the
// connection.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")
	streamID := r.PathValue("id")

	// The stream must exist before we upgrade; upgrade failures after this
	// point are connection-level, not domain-level.
	if _, err := s.svc.Manager().GetStream(tenantID, streamID); err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed",
			"tenant_id", tenantID, "stream_id", streamID, "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	s.logger.Info("ingest connected", "tenant_id", tenantID, "stream_id", streamID)
	limiter := rate.NewLimiter(s.cfg.IngestRate, s.cfg.IngestBurst)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("ingest closed unexpectedly",
					"tenant_id", tenantID, "stream_id", streamID, "error", err)
			}
			return
		}

		var frame ingestFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.reject(conn, "malformed frame", "invalid_frame")
			continue
		}

		if !limiter.Allow() {
			s.reject(conn, "ingest rate limit exceeded", "rate_limited")
			continue
		}

		switch frame.Type {
		case "message":
			err = s.svc.Manager().RecordMessage(tenantID, streamID, frame.LatencyMs)
		case "error":
			err = s.svc.Manager().RecordError(tenantID, streamID, frame.Message, frame.SetErrorState)
		case "rate":
			err = s.svc.Manager().UpdateMessageRate(tenantID, streamID, frame.MessagesPerSecond)
		default:
			s.reject(conn, "unknown frame type", "invalid_frame")
			continue
		}

		if err != nil {
			s.reject(conn, err.Error(), "record_failed")
		}
	}
}

// reject sends a failure ack, tolerating write errors (the read loop will see
// the broken connection on its next iteration).
func (s *Server) reject(conn *websocket.Conn, message, code string) {
	_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_ = conn.WriteJSON(ingestAck{OK: false, Error: message, Code: code})
}
