package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/marketstreams/errors"
	"github.com/c360/marketstreams/natsclient"
)

// Store persists data sources in a NATS KV bucket so every instance of the
// service sees the same catalog.
type Store struct {
	bucket  jetstream.KeyValue
	kvStore *natsclient.KVStore
}

// NewStore creates the catalog bucket if necessary and returns a Store.
func NewStore(client *natsclient.Client) (*Store, error) {
	if client == nil {
		return nil, errors.NewInvalid("catalog", "NewStore", "nats client cannot be nil")
	}

	ctx := context.Background()
	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      "marketstreams_sources",
		Description: "Market data source catalog",
		History:     5,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "catalog", "NewStore", "create KV bucket")
	}

	return &Store{
		bucket:  bucket,
		kvStore: client.NewKVStore(bucket),
	}, nil
}

// Get retrieves a source by ID.
func (s *Store) Get(ctx context.Context, id string) (*DataSource, error) {
	if id == "" {
		return nil, errors.NewInvalid("catalog", "Get", "source ID cannot be empty")
	}

	entry, err := s.kvStore.Get(ctx, id)
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil, errors.WrapInvalid(errors.ErrSourceNotFound, "catalog", "Get", "lookup source "+id)
		}
		return nil, errors.WrapTransient(err, "catalog", "Get", "get from KV")
	}

	var src DataSource
	if err := json.Unmarshal(entry.Value, &src); err != nil {
		return nil, errors.WrapFatal(err, "catalog", "Get", "unmarshal source")
	}
	return &src, nil
}

// Put inserts or replaces a source.
func (s *Store) Put(ctx context.Context, source *DataSource) error {
	if source == nil {
		return errors.NewInvalid("catalog", "Put", "source cannot be nil")
	}
	if err := source.Validate(); err != nil {
		return errors.WrapInvalid(err, "catalog", "Put", "validate source")
	}

	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now()
	}
	source.UpdatedAt = time.Now()

	data, err := json.Marshal(source)
	if err != nil {
		return errors.WrapFatal(err, "catalog", "Put", "marshal source")
	}

	if _, err := s.kvStore.Put(ctx, source.ID, data); err != nil {
		return errors.WrapTransient(err, "catalog", "Put", "put to KV")
	}
	return nil
}

// Delete removes a source by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.NewInvalid("catalog", "Delete", "source ID cannot be empty")
	}

	if err := s.kvStore.Delete(ctx, id); err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return nil
		}
		return errors.WrapTransient(err, "catalog", "Delete", "delete from KV")
	}
	return nil
}

// List retrieves every source in the catalog.
func (s *Store) List(ctx context.Context) ([]*DataSource, error) {
	keys, err := s.bucket.Keys(ctx)
	if err != nil {
		if natsclient.IsKVNotFoundError(err) {
			return []*DataSource{}, nil
		}
		return nil, errors.WrapTransient(err, "catalog", "List", "list KV keys")
	}

	sources := make([]*DataSource, 0, len(keys))
	for _, key := range keys {
		src, err := s.Get(ctx, key)
		if err != nil {
			return nil, errors.WrapTransient(err, "catalog", "List",
				fmt.Sprintf("get source %s", key))
		}
		sources = append(sources, src)
	}
	return sources, nil
}
