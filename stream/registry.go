package stream

import (
	"fmt"
	"sort"
	"sync"

	"github.com/c360/marketstreams/errors"
)

// entry wraps one stream with its lock. All mutations of the stream happen
// under mu held for writing; snapshots take it for reading.
type entry struct {
	mu     sync.RWMutex
	stream DataStream
}

// Registry is the authoritative in-memory store of stream records, partitioned
// by tenant. The registry lock guards only the maps; stream fields are guarded
// by each entry's own lock, so unrelated streams never contend.
type Registry struct {
	mu      sync.RWMutex
	tenants map[string]map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tenants: make(map[string]map[string]*entry)}
}

// put inserts a new entry. The stream ID must not already exist for the tenant.
func (r *Registry) put(e *entry) error {
	tenantID := e.stream.TenantID
	streamID := e.stream.StreamID

	r.mu.Lock()
	defer r.mu.Unlock()

	streams, ok := r.tenants[tenantID]
	if !ok {
		streams = make(map[string]*entry)
		r.tenants[tenantID] = streams
	}
	if _, exists := streams[streamID]; exists {
		return errors.NewFatal("stream", "put",
			fmt.Sprintf("stream ID collision for %s", streamID))
	}
	streams[streamID] = e
	return nil
}

// get looks up an entry by the composite (tenant, stream) key. A record found
// under the tenant's partition whose own TenantID disagrees indicates registry
// corruption and is reported as a fatal error, never returned as data.
func (r *Registry) get(tenantID, streamID string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.tenants[tenantID][streamID]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.WrapInvalid(errors.ErrStreamNotFound, "stream", "get",
			fmt.Sprintf("lookup stream %s for tenant %s", streamID, tenantID))
	}

	if e.stream.TenantID != tenantID {
		return nil, errors.WrapFatal(errors.ErrTenantMismatch, "stream", "get",
			fmt.Sprintf("stream %s indexed under tenant %s but owned by %s",
				streamID, tenantID, e.stream.TenantID))
	}

	return e, nil
}

// listByTenant returns the tenant's entries in stable stream ID order.
func (r *Registry) listByTenant(tenantID string) []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	streams := r.tenants[tenantID]
	out := make([]*entry, 0, len(streams))
	for _, e := range streams {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].stream.StreamID < out[j].stream.StreamID
	})
	return out
}

// tenantIDs returns every tenant with at least one registered stream.
func (r *Registry) tenantIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.tenants))
	for id := range r.tenants {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// countActive returns the number of the tenant's streams currently in the
// ACTIVE state. Callers enforcing admission hold the tenant's admission lock
// so the count cannot move between check and insert.
func (r *Registry) countActive(tenantID string) int {
	r.mu.RLock()
	streams := make([]*entry, 0, len(r.tenants[tenantID]))
	for _, e := range r.tenants[tenantID] {
		streams = append(streams, e)
	}
	r.mu.RUnlock()

	count := 0
	for _, e := range streams {
		e.mu.RLock()
		if e.stream.Status == StatusActive {
			count++
		}
		e.mu.RUnlock()
	}
	return count
}
