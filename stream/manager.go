package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/marketstreams/catalog"
	"github.com/c360/marketstreams/errors"
	"github.com/c360/marketstreams/metric"
	"github.com/c360/marketstreams/tenant"
)

// Manager owns the stream registry and enforces admission control. One Manager
// is constructed per process and shared by the gateway and the service loop.
//
// Locking discipline: the per-tenant admission lock makes the count-then-insert
// step of StartStream atomic, so two concurrent starts at the quota boundary
// cannot both succeed. The source lookup happens before the lock is taken; a
// slow catalog must not serialize admission across tenants. All per-stream
// mutations serialize on the stream's own lock.
type Manager struct {
	registry *Registry
	sources  catalog.Lookup
	tenants  tenant.Store

	admissionMu sync.Mutex
	admission   map[string]*sync.Mutex

	logger     *slog.Logger
	metrics    *metric.Metrics
	thresholds HealthThresholds
	now        func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics attaches a Prometheus metrics collector.
func WithMetrics(metrics *metric.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager creates a stream manager.
func NewManager(sources catalog.Lookup, tenants tenant.Store, opts ...ManagerOption) (*Manager, error) {
	if sources == nil {
		return nil, errors.NewInvalid("stream", "NewManager", "source lookup cannot be nil")
	}
	if tenants == nil {
		return nil, errors.NewInvalid("stream", "NewManager", "tenant store cannot be nil")
	}

	m := &Manager{
		registry:   NewRegistry(),
		sources:    sources,
		tenants:    tenants,
		admission:  make(map[string]*sync.Mutex),
		logger:     slog.Default(),
		thresholds: DefaultHealthThresholds(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// admissionLock returns the tenant's admission lock, creating it on first use.
func (m *Manager) admissionLock(tenantID string) *sync.Mutex {
	m.admissionMu.Lock()
	defer m.admissionMu.Unlock()

	mu, ok := m.admission[tenantID]
	if !ok {
		mu = &sync.Mutex{}
		m.admission[tenantID] = mu
	}
	return mu
}

// StartStream admits and creates a new ACTIVE stream for the tenant.
//
// The source lookup and tenant config read run before the admission lock is
// taken. Only the count-check-and-insert step holds the lock.
func (m *Manager) StartStream(ctx context.Context, tenantID, sourceID string, symbols []string) (*DataStream, error) {
	if tenantID == "" {
		return nil, errors.NewInvalid("stream", "StartStream", "tenant ID cannot be empty")
	}
	if sourceID == "" {
		return nil, errors.NewInvalid("stream", "StartStream", "source ID cannot be empty")
	}
	if len(symbols) == 0 {
		return nil, errors.NewInvalid("stream", "StartStream", "symbols cannot be empty")
	}

	source, err := m.sources.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if !source.Enabled {
		return nil, errors.WrapInvalid(errors.ErrSourceDisabled, "stream", "StartStream",
			fmt.Sprintf("source %s is disabled", sourceID))
	}

	cfg, err := m.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, errors.WrapTransient(err, "stream", "StartStream", "load tenant config")
	}

	now := m.now()
	e := &entry{
		stream: DataStream{
			StreamID:     uuid.NewString(),
			TenantID:     tenantID,
			SourceID:     sourceID,
			Symbols:      append([]string(nil), symbols...),
			Type:         source.Type,
			Status:       StatusActive,
			CreatedAt:    now,
			LastActivity: now,
		},
	}

	lock := m.admissionLock(tenantID)
	lock.Lock()
	activeCount := m.registry.countActive(tenantID)
	if activeCount >= cfg.MaxConcurrentStreams {
		lock.Unlock()
		if m.metrics != nil {
			m.metrics.RecordAdmissionDenied(tenantID)
		}
		return nil, &errors.StreamLimitExceededError{
			TenantID:     tenantID,
			CurrentCount: activeCount,
			MaxCount:     cfg.MaxConcurrentStreams,
		}
	}
	err = m.registry.put(e)
	lock.Unlock()
	if err != nil {
		return nil, err
	}

	m.logger.Info("stream started",
		"tenant_id", tenantID,
		"stream_id", e.stream.StreamID,
		"source_id", sourceID,
		"source_type", string(source.Type),
		"symbols", len(symbols),
		"active_count", activeCount+1)

	if m.metrics != nil {
		m.metrics.RecordStreamStarted(tenantID, string(source.Type))
		m.metrics.SetActiveStreams(tenantID, activeCount+1)
	}

	snap := e.stream.snapshot(now)
	return &snap, nil
}

// CanStart reports whether the tenant currently has a free quota slot. The
// answer is advisory; only StartStream's own check is authoritative.
func (m *Manager) CanStart(ctx context.Context, tenantID string) (bool, error) {
	if tenantID == "" {
		return false, errors.NewInvalid("stream", "CanStart", "tenant ID cannot be empty")
	}

	cfg, err := m.tenants.Get(ctx, tenantID)
	if err != nil {
		return false, errors.WrapTransient(err, "stream", "CanStart", "load tenant config")
	}
	return m.registry.countActive(tenantID) < cfg.MaxConcurrentStreams, nil
}

// PauseStream suspends an ACTIVE stream, freeing its quota slot.
func (m *Manager) PauseStream(tenantID, streamID string) error {
	return m.transition(tenantID, streamID, OpPause)
}

// ResumeStream reactivates a PAUSED stream. Resuming does not re-run
// admission; a resumed stream may push the tenant past quota until something
// stops. Starting new streams remains gated on the live count.
func (m *Manager) ResumeStream(tenantID, streamID string) error {
	return m.transition(tenantID, streamID, OpResume)
}

// StopStream terminates a stream. STOPPED is terminal.
func (m *Manager) StopStream(tenantID, streamID string) error {
	return m.transition(tenantID, streamID, OpStop)
}

// transition applies one state machine edge under the stream's write lock.
func (m *Manager) transition(tenantID, streamID string, op Operation) error {
	e, err := m.registry.get(tenantID, streamID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	from := e.stream.Status
	to, ok := nextState(from, op)
	if !ok {
		e.mu.Unlock()
		return &errors.InvalidStreamStateError{
			StreamID:  streamID,
			State:     from.String(),
			Operation: string(op),
		}
	}
	e.stream.Status = to
	e.stream.LastActivity = m.now()
	e.mu.Unlock()

	m.logger.Info("stream state changed",
		"tenant_id", tenantID,
		"stream_id", streamID,
		"operation", string(op),
		"from", from.String(),
		"to", to.String())

	if m.metrics != nil {
		if op == OpStop {
			m.metrics.RecordStreamStopped(tenantID)
		}
		m.metrics.SetActiveStreams(tenantID, m.registry.countActive(tenantID))
	}

	return nil
}

// GetStream returns a consistent snapshot of one stream.
func (m *Manager) GetStream(tenantID, streamID string) (*DataStream, error) {
	e, err := m.registry.get(tenantID, streamID)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	snap := e.stream.snapshot(m.now())
	e.mu.RUnlock()
	return &snap, nil
}

// ListStreams returns snapshots of all the tenant's streams, stopped included.
func (m *Manager) ListStreams(tenantID string) ([]*DataStream, error) {
	if tenantID == "" {
		return nil, errors.NewInvalid("stream", "ListStreams", "tenant ID cannot be empty")
	}

	now := m.now()
	entries := m.registry.listByTenant(tenantID)
	out := make([]*DataStream, 0, len(entries))
	for _, e := range entries {
		e.mu.RLock()
		snap := e.stream.snapshot(now)
		e.mu.RUnlock()
		out = append(out, &snap)
	}
	return out, nil
}

// Tenants returns every tenant that has registered at least one stream,
// stopped streams included. Used by the service health sweep.
func (m *Manager) Tenants() []string {
	return m.registry.tenantIDs()
}

// SetTenantConfig stores an explicit quota for the tenant. Lowering the quota
// below the current active count does not stop running streams; it only blocks
// new admissions until the count drains beneath the new ceiling.
func (m *Manager) SetTenantConfig(ctx context.Context, cfg *tenant.Config) error {
	if err := m.tenants.Set(ctx, cfg); err != nil {
		return err
	}
	m.logger.Info("tenant config updated",
		"tenant_id", cfg.TenantID,
		"max_concurrent_streams", cfg.MaxConcurrentStreams)
	return nil
}
