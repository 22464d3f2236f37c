package tenant

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/marketstreams/errors"
	"github.com/c360/marketstreams/natsclient"
)

// KVStore persists tenant configs in a NATS KV bucket. Unknown tenants fall
// back to the default quota, so config loss degrades to defaults rather than
// failing admission.
type KVStore struct {
	kvStore    *natsclient.KVStore
	defaultMax int
}

// NewKVStore creates the tenant bucket if necessary and returns a KVStore.
func NewKVStore(client *natsclient.Client, defaultMax int) (*KVStore, error) {
	if client == nil {
		return nil, errors.NewInvalid("tenant", "NewKVStore", "nats client cannot be nil")
	}
	if defaultMax < 1 {
		defaultMax = DefaultMaxConcurrentStreams
	}

	ctx := context.Background()
	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      "marketstreams_tenants",
		Description: "Per-tenant stream admission configuration",
		History:     5,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "tenant", "NewKVStore", "create KV bucket")
	}

	return &KVStore{
		kvStore:    client.NewKVStore(bucket),
		defaultMax: defaultMax,
	}, nil
}

// Get returns the tenant's config, or the default config when no entry exists.
func (s *KVStore) Get(ctx context.Context, tenantID string) (*Config, error) {
	if tenantID == "" {
		return nil, errors.NewInvalid("tenant", "Get", "tenant ID cannot be empty")
	}

	entry, err := s.kvStore.Get(ctx, tenantID)
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return &Config{
				TenantID:             tenantID,
				MaxConcurrentStreams: s.defaultMax,
			}, nil
		}
		return nil, errors.WrapTransient(err, "tenant", "Get", "get from KV")
	}

	var cfg Config
	if err := json.Unmarshal(entry.Value, &cfg); err != nil {
		return nil, errors.WrapFatal(err, "tenant", "Get", "unmarshal config")
	}
	return &cfg, nil
}

// Set stores an explicit config for the tenant.
func (s *KVStore) Set(ctx context.Context, cfg *Config) error {
	if cfg == nil {
		return errors.NewInvalid("tenant", "Set", "config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return errors.WrapInvalid(err, "tenant", "Set", "validate config")
	}

	cfg.UpdatedAt = time.Now()
	data, err := json.Marshal(cfg)
	if err != nil {
		return errors.WrapFatal(err, "tenant", "Set", "marshal config")
	}

	if _, err := s.kvStore.Put(ctx, cfg.TenantID, data); err != nil {
		return errors.WrapTransient(err, "tenant", "Set", "put to KV")
	}
	return nil
}

// Delete removes the explicit entry so the tenant reverts to defaults.
func (s *KVStore) Delete(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return errors.NewInvalid("tenant", "Delete", "tenant ID cannot be empty")
	}

	if err := s.kvStore.Delete(ctx, tenantID); err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil
		}
		return errors.WrapTransient(err, "tenant", "Delete", "delete from KV")
	}
	return nil
}
