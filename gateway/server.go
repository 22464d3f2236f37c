// Package gateway exposes the stream service over HTTP: a REST control
// surface for lifecycle and admission operations, and a WebSocket ingest
// endpoint that feeds per-message metrics into the stream manager.
package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/marketstreams/service"
)

// Config tunes the HTTP gateway.
type Config struct {
	Port int

	// ReadTimeout and WriteTimeout bound request handling. WriteTimeout does
	// not apply to hijacked WebSocket connections.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// IngestRate caps messages per second accepted on one ingest connection.
	// Zero means the default.
	IngestRate rate.Limit
	// IngestBurst is the limiter burst size. Zero means the default.
	IngestBurst int
}

const (
	defaultIngestRate  rate.Limit = 500
	defaultIngestBurst            = 100
)

// Server is the HTTP gateway over one stream service.
type Server struct {
	svc    *service.StreamService
	logger *slog.Logger
	cfg    Config

	httpServer *http.Server
	running    atomic.Bool

	requestsTotal  atomic.Uint64
	requestsFailed atomic.Uint64
}

// NewServer creates a gateway for the given service.
func NewServer(svc *service.StreamService, cfg Config, logger *slog.Logger) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("gateway: service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IngestRate == 0 {
		cfg.IngestRate = defaultIngestRate
	}
	if cfg.IngestBurst == 0 {
		cfg.IngestBurst = defaultIngestBurst
	}

	return &Server{
		svc:    svc,
		logger: logger.With("component", "gateway"),
		cfg:    cfg,
	}, nil
}

// Routes builds the gateway's HTTP handler. Exposed separately from Start so
// tests can drive it through httptest without binding a port.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/tenants/{tenant}/streams", s.handleStartStream)
	mux.HandleFunc("GET /v1/tenants/{tenant}/streams", s.handleListStreams)
	mux.HandleFunc("GET /v1/tenants/{tenant}/streams/{id}", s.handleGetStream)
	mux.HandleFunc("POST /v1/tenants/{tenant}/streams/{id}/stop", s.handleStopStream)
	mux.HandleFunc("POST /v1/tenants/{tenant}/streams/{id}/pause", s.handlePauseStream)
	mux.HandleFunc("POST /v1/tenants/{tenant}/streams/{id}/resume", s.handleResumeStream)
	mux.HandleFunc("GET /v1/tenants/{tenant}/streams/{id}/health", s.handleStreamHealth)
	mux.HandleFunc("GET /v1/tenants/{tenant}/streams/{id}/metrics", s.handleStreamMetrics)
	mux.HandleFunc("GET /v1/tenants/{tenant}/streams/{id}/ingest", s.handleIngest)
	mux.HandleFunc("PUT /v1/tenants/{tenant}/config", s.handleSetTenantConfig)
	mux.HandleFunc("GET /v1/tenants/{tenant}/admission", s.handleAdmission)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return s.withRequestID(mux)
}

// Start runs the HTTP server until the context is canceled or ListenAndServe
// fails. It blocks.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("gateway: already started")
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Routes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", "port", s.cfg.Port)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.Stop(5 * time.Second)
	case err := <-errCh:
		s.running.Store(false)
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(timeout time.Duration) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}
	return nil
}

// withRequestID tags each request with an X-Request-ID, propagating one from
// the caller when present.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", reqID)
		s.requestsTotal.Add(1)
		next.ServeHTTP(w, r)
	})
}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// writeJSON encodes a response body with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
