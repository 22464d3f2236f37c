// Package service runs the long-lived stream service: it wraps the stream
// manager with lifecycle event publishing, a periodic health sweep over all
// registered streams, and service-level health reporting.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/marketstreams/health"
	"github.com/c360/marketstreams/metric"
	"github.com/c360/marketstreams/natsclient"
	"github.com/c360/marketstreams/stream"
	"github.com/c360/marketstreams/tenant"
)

// Status represents the current status of the service
type Status int

// Possible service statuses
const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Option is a functional option for configuring StreamService
type Option func(*StreamService)

// WithNATS attaches a NATS client for lifecycle event publishing.
func WithNATS(client *natsclient.Client) Option {
	return func(s *StreamService) {
		s.nats = client
	}
}

// WithMetrics attaches a Prometheus metrics collector.
func WithMetrics(metrics *metric.Metrics) Option {
	return func(s *StreamService) {
		s.metrics = metrics
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *StreamService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSweepInterval sets how often the health sweep re-evaluates all streams.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *StreamService) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithEventPrefix sets the subject prefix for lifecycle events. Events are
// published on "<prefix>.streams.events.<tenant>.<stream>".
func WithEventPrefix(prefix string) Option {
	return func(s *StreamService) {
		if prefix != "" {
			s.eventPrefix = prefix
		}
	}
}

// StreamService owns the stream manager's runtime: lifecycle events out to
// NATS, a periodic health sweep feeding the health monitor, and graceful
// startup/shutdown.
type StreamService struct {
	name    string
	manager *stream.Manager
	nats    *natsclient.Client
	metrics *metric.Metrics
	monitor *health.Monitor
	logger  *slog.Logger

	status    atomic.Value // Status
	startTime atomic.Value // time.Time

	sweepInterval time.Duration
	eventPrefix   string

	done   chan struct{}
	doneMu sync.Mutex
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// New creates a stream service around the given manager.
func New(manager *stream.Manager, opts ...Option) (*StreamService, error) {
	if manager == nil {
		return nil, fmt.Errorf("service: manager cannot be nil")
	}

	s := &StreamService{
		name:          "marketstreams",
		manager:       manager,
		monitor:       health.NewMonitor(),
		logger:        slog.Default().With("service", "marketstreams"),
		sweepInterval: 30 * time.Second,
		eventPrefix:   "marketstreams",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.status.Store(StatusStopped)
	s.startTime.Store(time.Time{})
	return s, nil
}

// Name returns the service name
func (s *StreamService) Name() string {
	return s.name
}

// Manager returns the underlying stream manager.
func (s *StreamService) Manager() *stream.Manager {
	return s.manager
}

// Status returns the current service status
func (s *StreamService) Status() Status {
	return s.status.Load().(Status)
}

// Start begins the health sweep loop. Safe to call once; a second call while
// running is a no-op.
func (s *StreamService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.Status()
	if current == StatusRunning || current == StatusStarting {
		return nil
	}

	s.setStatus(StatusStarting)
	s.done = make(chan struct{})
	s.startTime.Store(time.Now())

	s.wg.Add(1)
	go s.sweepLoop()

	s.wg.Add(1)
	go s.contextMonitor(ctx)

	s.setStatus(StatusRunning)
	s.logger.Info("service started", "sweep_interval", s.sweepInterval.String())
	return nil
}

// Stop shuts the service down, waiting up to timeout for the sweep loop.
func (s *StreamService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.Status()
	if current == StatusStopped || current == StatusStopping {
		return nil
	}

	s.setStatus(StatusStopping)
	if s.done != nil {
		s.closeDone()
	}

	if timeout == 0 {
		timeout = 5 * time.Second
	}

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(timeout):
		s.logger.Warn("service stop timed out", "timeout", timeout.String())
	}

	s.setStatus(StatusStopped)
	s.logger.Info("service stopped")
	return nil
}

func (s *StreamService) setStatus(status Status) {
	s.status.Store(status)
	if s.metrics != nil {
		s.metrics.RecordServiceStatus(s.name, int(status))
	}
}

// closeDone closes the done channel exactly once. Stop and contextMonitor can
// race here on shutdown, so the close is serialized on its own mutex rather
// than s.mu, which Stop holds while waiting for the goroutines to drain.
func (s *StreamService) closeDone() {
	s.doneMu.Lock()
	defer s.doneMu.Unlock()

	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// contextMonitor shuts the sweep loop down when the parent context ends.
func (s *StreamService) contextMonitor(ctx context.Context) {
	defer s.wg.Done()

	select {
	case <-ctx.Done():
		s.closeDone()
		s.setStatus(StatusStopped)
	case <-s.done:
	}
}

// sweepLoop periodically re-evaluates every stream's health into the monitor.
func (s *StreamService) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs one health evaluation pass over all registered streams. Exported
// so operators and tests can force a pass outside the ticker cadence.
func (s *StreamService) Sweep() {
	checked, unhealthy := 0, 0
	for _, tenantID := range s.manager.Tenants() {
		streams, err := s.manager.ListStreams(tenantID)
		if err != nil {
			s.logger.Error("health sweep list failed", "tenant_id", tenantID, "error", err)
			continue
		}

		for _, ds := range streams {
			if ds.Status == stream.StatusStopped {
				s.monitor.Remove("stream:" + ds.StreamID)
				continue
			}

			h, err := s.manager.CheckHealth(tenantID, ds.StreamID)
			if err != nil {
				s.logger.Error("health sweep check failed",
					"tenant_id", tenantID, "stream_id", ds.StreamID, "error", err)
				continue
			}

			s.monitor.Update("stream:"+ds.StreamID, h.Status)
			checked++
			if !h.Healthy {
				unhealthy++
				s.logger.Warn("unhealthy stream",
					"tenant_id", tenantID,
					"stream_id", ds.StreamID,
					"issues", h.Issues)
			}
		}
	}

	s.logger.Debug("health sweep complete", "checked", checked, "unhealthy", unhealthy)
}

// Health aggregates stream health plus NATS connectivity into one verdict.
func (s *StreamService) Health() health.Status {
	all := s.monitor.GetAll()
	subs := make([]health.Status, 0, len(all)+1)
	for _, sub := range all {
		subs = append(subs, sub)
	}

	if s.nats != nil {
		if s.nats.IsHealthy() {
			subs = append(subs, health.NewHealthy("nats", "connected"))
		} else {
			subs = append(subs, health.NewUnhealthy("nats", "not connected"))
		}
	}

	status := health.Aggregate(s.name, subs)
	if s.Status() != StatusRunning {
		status = health.NewDegraded(s.name, "service is "+s.Status().String())
	}
	return status
}

// Monitor exposes the per-stream health monitor.
func (s *StreamService) Monitor() *health.Monitor {
	return s.monitor
}

// Uptime returns how long the service has been running, zero when stopped.
func (s *StreamService) Uptime() time.Duration {
	start := s.startTime.Load().(time.Time)
	if start.IsZero() || s.Status() != StatusRunning {
		return 0
	}
	return time.Since(start)
}

// StartStream admits a new stream and publishes a lifecycle event.
func (s *StreamService) StartStream(ctx context.Context, tenantID, sourceID string, symbols []string) (*stream.DataStream, error) {
	ds, err := s.manager.StartStream(ctx, tenantID, sourceID, symbols)
	if err != nil {
		return nil, err
	}
	s.publishEvent(EventStreamStarted, ds)
	return ds, nil
}

// StopStream stops a stream and publishes a lifecycle event.
func (s *StreamService) StopStream(tenantID, streamID string) error {
	if err := s.manager.StopStream(tenantID, streamID); err != nil {
		return err
	}
	s.publishStreamEvent(EventStreamStopped, tenantID, streamID)
	s.monitor.Remove("stream:" + streamID)
	return nil
}

// PauseStream pauses a stream and publishes a lifecycle event.
func (s *StreamService) PauseStream(tenantID, streamID string) error {
	if err := s.manager.PauseStream(tenantID, streamID); err != nil {
		return err
	}
	s.publishStreamEvent(EventStreamPaused, tenantID, streamID)
	return nil
}

// ResumeStream resumes a stream and publishes a lifecycle event.
func (s *StreamService) ResumeStream(tenantID, streamID string) error {
	if err := s.manager.ResumeStream(tenantID, streamID); err != nil {
		return err
	}
	s.publishStreamEvent(EventStreamResumed, tenantID, streamID)
	return nil
}

// SetTenantConfig updates a tenant quota and publishes a config event.
func (s *StreamService) SetTenantConfig(ctx context.Context, cfg *tenant.Config) error {
	if err := s.manager.SetTenantConfig(ctx, cfg); err != nil {
		return err
	}
	s.publishStreamEvent(EventTenantConfigured, cfg.TenantID, "")
	return nil
}
