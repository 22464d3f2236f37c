package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/c360/marketstreams/stream"
	"github.com/c360/marketstreams/tenant"
)

// startStreamRequest is the body of POST /v1/tenants/{tenant}/streams.
type startStreamRequest struct {
	SourceID string   `json:"source_id"`
	Symbols  []string `json:"symbols"`
}

func (s *Server) handleStartStream(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")

	var req startStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body", Code: "invalid_request"})
		return
	}

	ds, err := s.svc.StartStream(r.Context(), tenantID, req.SourceID, req.Symbols)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ds)
}

func (s *Server) handleListStreams(w http.ResponseWriter, r *http.Request) {
	streams, err := s.svc.Manager().ListStreams(r.PathValue("tenant"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	if q := r.URL.Query().Get("status"); q != "" {
		want, ok := stream.ParseStatus(q)
		if !ok {
			s.writeJSON(w, http.StatusBadRequest,
				errorBody{Error: "unknown status filter: " + q, Code: "invalid_request"})
			return
		}
		filtered := make([]*stream.DataStream, 0, len(streams))
		for _, ds := range streams {
			if ds.Status == want {
				filtered = append(filtered, ds)
			}
		}
		streams = filtered
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"streams": streams, "count": len(streams)})
}

func (s *Server) handleGetStream(w http.ResponseWriter, r *http.Request) {
	ds, err := s.svc.Manager().GetStream(r.PathValue("tenant"), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleStopStream(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.StopStream(r.PathValue("tenant"), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handlePauseStream(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.PauseStream(r.PathValue("tenant"), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleResumeStream(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ResumeStream(r.PathValue("tenant"), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

func (s *Server) handleStreamHealth(w http.ResponseWriter, r *http.Request) {
	h, err := s.svc.Manager().CheckHealth(r.PathValue("tenant"), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleStreamMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.svc.Manager().GetStreamMetrics(r.PathValue("tenant"), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, metrics)
}

// tenantConfigRequest is the body of PUT /v1/tenants/{tenant}/config.
type tenantConfigRequest struct {
	MaxConcurrentStreams int `json:"max_concurrent_streams"`
}

func (s *Server) handleSetTenantConfig(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")

	var req tenantConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body", Code: "invalid_request"})
		return
	}

	cfg := &tenant.Config{TenantID: tenantID, MaxConcurrentStreams: req.MaxConcurrentStreams}
	if err := s.svc.SetTenantConfig(r.Context(), cfg); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleAdmission(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")

	ok, err := s.svc.Manager().CanStart(r.Context(), tenantID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"tenant_id": tenantID, "can_start": ok})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	h := s.svc.Health()
	status := http.StatusOK
	if h.IsUnhealthy() {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, h)
}
