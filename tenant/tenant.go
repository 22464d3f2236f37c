package tenant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/c360/marketstreams/errors"
)

// DefaultMaxConcurrentStreams applies to tenants without an explicit entry.
const DefaultMaxConcurrentStreams = 10

// Config holds per-tenant admission settings.
type Config struct {
	TenantID             string    `json:"tenant_id"`
	MaxConcurrentStreams int       `json:"max_concurrent_streams"`
	UpdatedAt            time.Time `json:"updated_at,omitempty"`
}

// Validate checks the config for structural problems.
func (c *Config) Validate() error {
	if c.TenantID == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}
	if c.MaxConcurrentStreams < 1 {
		return fmt.Errorf("max_concurrent_streams must be positive, got %d", c.MaxConcurrentStreams)
	}
	return nil
}

// Store provides per-tenant configuration with a default fallback. Get never
// fails for an unknown tenant; it returns the default quota instead.
type Store interface {
	// Get returns the config for the tenant, falling back to defaults when no
	// explicit entry exists.
	Get(ctx context.Context, tenantID string) (*Config, error)

	// Set stores an explicit config for the tenant.
	Set(ctx context.Context, cfg *Config) error

	// Delete removes the explicit entry so the tenant reverts to defaults.
	Delete(ctx context.Context, tenantID string) error
}

// Memory is an in-process Store used in tests and NATS-less deployments.
type Memory struct {
	mu         sync.RWMutex
	configs    map[string]*Config
	defaultMax int
}

// NewMemory creates an in-memory store with the given default quota. A
// non-positive defaultMax falls back to DefaultMaxConcurrentStreams.
func NewMemory(defaultMax int) *Memory {
	if defaultMax < 1 {
		defaultMax = DefaultMaxConcurrentStreams
	}
	return &Memory{
		configs:    make(map[string]*Config),
		defaultMax: defaultMax,
	}
}

// Get returns the tenant's config, or a default config for unknown tenants.
func (m *Memory) Get(_ context.Context, tenantID string) (*Config, error) {
	if tenantID == "" {
		return nil, errors.NewInvalid("tenant", "Get", "tenant ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if cfg, ok := m.configs[tenantID]; ok {
		copied := *cfg
		return &copied, nil
	}

	return &Config{
		TenantID:             tenantID,
		MaxConcurrentStreams: m.defaultMax,
	}, nil
}

// Set stores an explicit config for the tenant.
func (m *Memory) Set(_ context.Context, cfg *Config) error {
	if cfg == nil {
		return errors.NewInvalid("tenant", "Set", "config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return errors.WrapInvalid(err, "tenant", "Set", "validate config")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *cfg
	copied.UpdatedAt = time.Now()
	m.configs[cfg.TenantID] = &copied
	return nil
}

// Delete removes the explicit entry for the tenant.
func (m *Memory) Delete(_ context.Context, tenantID string) error {
	if tenantID == "" {
		return errors.NewInvalid("tenant", "Delete", "tenant ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.configs, tenantID)
	return nil
}
