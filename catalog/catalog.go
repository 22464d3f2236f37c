package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/c360/marketstreams/errors"
)

// Lookup resolves data sources by ID. The stream manager consults a Lookup
// during admission, before taking any per-tenant lock.
type Lookup interface {
	// Get returns the source with the given ID, or errors.ErrSourceNotFound.
	Get(ctx context.Context, id string) (*DataSource, error)
}

// Catalog is the full read-write interface over the source registry.
type Catalog interface {
	Lookup

	Put(ctx context.Context, source *DataSource) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*DataSource, error)
}

// Memory is an in-process Catalog backed by a map. It is used in tests and in
// deployments that run without NATS.
type Memory struct {
	mu      sync.RWMutex
	sources map[string]*DataSource
}

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{sources: make(map[string]*DataSource)}
}

// NewMemoryWith creates an in-memory catalog pre-populated with sources.
// Invalid sources are rejected.
func NewMemoryWith(sources ...*DataSource) (*Memory, error) {
	m := NewMemory()
	for _, s := range sources {
		if err := m.Put(context.Background(), s); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Get returns a copy of the source with the given ID.
func (m *Memory) Get(_ context.Context, id string) (*DataSource, error) {
	if id == "" {
		return nil, errors.NewInvalid("catalog", "Get", "source ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	src, ok := m.sources[id]
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrSourceNotFound, "catalog", "Get", "lookup source "+id)
	}

	copied := *src
	return &copied, nil
}

// Put inserts or replaces a source.
func (m *Memory) Put(_ context.Context, source *DataSource) error {
	if source == nil {
		return errors.NewInvalid("catalog", "Put", "source cannot be nil")
	}
	if err := source.Validate(); err != nil {
		return errors.WrapInvalid(err, "catalog", "Put", "validate source")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *source
	now := time.Now()
	if existing, ok := m.sources[source.ID]; ok {
		copied.CreatedAt = existing.CreatedAt
	} else {
		copied.CreatedAt = now
	}
	copied.UpdatedAt = now
	m.sources[source.ID] = &copied
	return nil
}

// Delete removes a source. Deleting an unknown ID is not an error.
func (m *Memory) Delete(_ context.Context, id string) error {
	if id == "" {
		return errors.NewInvalid("catalog", "Delete", "source ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sources, id)
	return nil
}

// List returns all sources ordered by ID.
func (m *Memory) List(_ context.Context) ([]*DataSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*DataSource, 0, len(m.sources))
	for _, src := range m.sources {
		copied := *src
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
